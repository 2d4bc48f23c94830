package models

import (
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID          int32   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:100;uniqueIndex;not null"`
	Description *string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Products []Product `gorm:"foreignKey:CategoryID"`
}

type Manufacturer struct {
	ID            int32   `gorm:"primaryKey;autoIncrement"`
	Name          string  `gorm:"size:255;not null"`
	ContactPerson *string `gorm:"size:100"`
	Phone         *string `gorm:"size:50"`
	Email         *string `gorm:"size:100"`
	Address       *string `gorm:"size:255"`
	IsActive      bool    `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Reseller is the supplier that delivers a batch; the manufacturer produced
// it. Both are referenced by every inspection.
type Reseller struct {
	ID            int32   `gorm:"primaryKey;autoIncrement"`
	Name          string  `gorm:"size:255;not null"`
	ContactPerson *string `gorm:"size:100"`
	Phone         *string `gorm:"size:50"`
	Email         *string `gorm:"size:100"`
	Address       *string `gorm:"size:255"`
	IsActive      bool    `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Test struct {
	ID          int32   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:255;not null"`
	Description *string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Products []Product `gorm:"many2many:product_tests"`
}

type Product struct {
	ID          int32   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:255;not null"`
	Description *string `gorm:"type:text"`
	CategoryID  int32   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Tests    []Test    `gorm:"many2many:product_tests"`
}

func MigrateCatalogDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{},
		&Manufacturer{},
		&Reseller{},
		&Test{},
		&Product{},
	)
}
