package models

import (
	"time"

	"gorm.io/gorm"

	"inspectra-system/internal/database"
)

type Inspection struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ProductID      int32     `gorm:"not null;index"`
	BatchCode      string    `gorm:"size:100;not null;index"`
	ResellerID     int32     `gorm:"not null"`
	ManufacturerID int32     `gorm:"not null"`
	ExpiryDate     time.Time `gorm:"not null"`
	Status         string    `gorm:"size:50;not null;index"`

	Color       *string `gorm:"size:100"`
	Odor        *string `gorm:"size:100"`
	Appearance  *string `gorm:"size:100"`
	Texture     *string `gorm:"size:100"`
	Temperature *string `gorm:"size:32"`
	Humidity    *string `gorm:"size:32"`
	Notes       *string `gorm:"type:text"`

	Photos database.StringArray `gorm:"type:jsonb"`

	CreatedBy int64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Product         *Product         `gorm:"foreignKey:ProductID"`
	Reseller        *Reseller        `gorm:"foreignKey:ResellerID"`
	Manufacturer    *Manufacturer    `gorm:"foreignKey:ManufacturerID"`
	Tests           []InspectionTest `gorm:"foreignKey:InspectionID"`
	NonConformities []NonConformity  `gorm:"foreignKey:InspectionID"`
	ActionPlans     []ActionPlan     `gorm:"foreignKey:InspectionID"`
}

// InspectionTest is the per-inspection snapshot of one applicable test.
// The (inspection, test) pair is unique; rows are created in bulk at
// inspection creation and updated in place afterwards.
type InspectionTest struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	InspectionID int64 `gorm:"not null;uniqueIndex:idx_inspection_test"`
	TestID       int32 `gorm:"not null;uniqueIndex:idx_inspection_test"`

	Result *string `gorm:"type:text"`
	Notes  *string `gorm:"type:text"`
	Passed bool    `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Test *Test `gorm:"foreignKey:TestID"`
}

type NonConformity struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	InspectionID int64  `gorm:"not null;index"`
	Description  string `gorm:"type:text;not null"`
	Severity     string `gorm:"size:20;not null"`
	CreatedBy    int64  `gorm:"not null"`
	CreatedAt    time.Time
}

type ActionPlan struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	InspectionID int64  `gorm:"not null;index"`
	Description  string `gorm:"type:text;not null"`
	Status       string `gorm:"size:30;not null"`
	DueDate      *time.Time
	CreatedBy    int64 `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Firstname string `gorm:"not null"`
	Lastname  string `gorm:"not null"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

func MigrateInspectionDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&Inspection{},
		&InspectionTest{},
		&NonConformity{},
		&ActionPlan{},
		&User{},
	)
}
