package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
	"inspectra-system/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := models.MigrateCatalogDB(db); err != nil {
		t.Fatalf("failed to migrate catalog tables: %v", err)
	}
	if err := models.MigrateInspectionDB(db); err != nil {
		t.Fatalf("failed to migrate inspection tables: %v", err)
	}

	return db
}

func newTestHandler(t *testing.T) (*QualityHandler, *gorm.DB) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db := setupTestDB(t)
	return NewQualityHandler(db, rdb, zap.NewNop()), db
}

func seedInspection(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	insp := models.Inspection{
		ProductID:      1,
		BatchCode:      "L-2026-001",
		ResellerID:     1,
		ManufacturerID: 1,
		ExpiryDate:     time.Now().AddDate(0, 0, 20),
		Status:         "Pendente",
		CreatedBy:      42,
	}
	require.NoError(t, db.Create(&insp).Error)
	return insp.ID
}

func authCtx() context.Context {
	return utils.WithUserID(context.Background(), 42)
}

func strPtr(s string) *string { return &s }

func TestCreateNonConformity(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	nc, err := h.CreateNonConformity(authCtx(), NonConformityInput{
		InspectionID: inspectionID,
		Description:  "Embalagem violada",
		Severity:     SeverityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, inspectionID, nc.InspectionID)
	assert.Equal(t, int64(42), nc.CreatedBy)
}

func TestCreateNonConformity_Validation(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	cases := []struct {
		name string
		in   NonConformityInput
	}{
		{"missing description", NonConformityInput{InspectionID: inspectionID, Severity: SeverityLow}},
		{"missing severity", NonConformityInput{InspectionID: inspectionID, Description: "x"}},
		{"unknown severity", NonConformityInput{InspectionID: inspectionID, Description: "x", Severity: "Gravíssima"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.CreateNonConformity(authCtx(), tc.in)
			var validation *apperr.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestCreateNonConformity_RequiresAuthentication(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	_, err := h.CreateNonConformity(context.Background(), NonConformityInput{
		InspectionID: inspectionID,
		Description:  "x",
		Severity:     SeverityLow,
	})
	var authErr *apperr.AuthenticationRequired
	assert.ErrorAs(t, err, &authErr)
}

func TestCreateNonConformity_UnknownInspection(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.CreateNonConformity(authCtx(), NonConformityInput{
		InspectionID: 9999,
		Description:  "x",
		Severity:     SeverityLow,
	})
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateNonConformityWithActionPlan_BothRetrievable(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	due := time.Now().AddDate(0, 0, 7)
	nc, ap, err := h.CreateNonConformityWithActionPlan(authCtx(),
		NonConformityInput{
			InspectionID: inspectionID,
			Description:  "Temperatura fora da faixa",
			Severity:     SeverityCritical,
		},
		ActionPlanInput{
			Description: "Revisar câmara fria",
			DueDate:     &due,
		},
	)
	require.NoError(t, err)
	require.NotZero(t, nc.ID)
	require.NotZero(t, ap.ID)

	// Both records are siblings under the same inspection.
	var storedNC models.NonConformity
	require.NoError(t, db.First(&storedNC, nc.ID).Error)
	assert.Equal(t, inspectionID, storedNC.InspectionID)

	var storedAP models.ActionPlan
	require.NoError(t, db.First(&storedAP, ap.ID).Error)
	assert.Equal(t, inspectionID, storedAP.InspectionID)
	assert.Equal(t, PlanStatusPending, storedAP.Status)
}

func TestCreateNonConformityWithActionPlan_MissingPlanDescription(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	_, _, err := h.CreateNonConformityWithActionPlan(authCtx(),
		NonConformityInput{InspectionID: inspectionID, Description: "x", Severity: SeverityLow},
		ActionPlanInput{},
	)
	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)

	// Fail fast: nothing was written.
	var count int64
	require.NoError(t, db.Model(&models.NonConformity{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRegisterNonConformity_WithActionPlan(t *testing.T) {
	// Scenario: illegible label, medium severity, plan due in 7 days.
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	due := time.Now().AddDate(0, 0, 7)
	nc, ap, err := h.RegisterNonConformity(authCtx(), inspectionID,
		"Etiqueta ilegível", SeverityMedium,
		true, strPtr("Reimprimir etiquetas"), &due)
	require.NoError(t, err)

	assert.Equal(t, SeverityMedium, nc.Severity)
	require.NotNil(t, ap)
	assert.Equal(t, PlanStatusPending, ap.Status)
	require.NotNil(t, ap.DueDate)
	assert.WithinDuration(t, due, *ap.DueDate, time.Second)
	assert.Equal(t, inspectionID, nc.InspectionID)
	assert.Equal(t, inspectionID, ap.InspectionID)
}

func TestRegisterNonConformity_PlanRequestedWithoutDescription(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	_, _, err := h.RegisterNonConformity(authCtx(), inspectionID,
		"Etiqueta ilegível", SeverityMedium, true, nil, nil)
	var validation *apperr.ValidationError
	require.ErrorAs(t, err, &validation)

	// Neither record was created.
	var ncCount, apCount int64
	require.NoError(t, db.Model(&models.NonConformity{}).Count(&ncCount).Error)
	require.NoError(t, db.Model(&models.ActionPlan{}).Count(&apCount).Error)
	assert.Equal(t, int64(0), ncCount)
	assert.Equal(t, int64(0), apCount)
}

func TestRegisterNonConformity_Standalone(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	nc, ap, err := h.RegisterNonConformity(authCtx(), inspectionID,
		"Caixa amassada", SeverityLow, false, nil, nil)
	require.NoError(t, err)
	assert.NotZero(t, nc.ID)
	assert.Nil(t, ap)
}

func TestUpdateActionPlanStatus(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	_, ap, err := h.RegisterNonConformity(authCtx(), inspectionID,
		"Caixa amassada", SeverityLow, true, strPtr("Reforçar embalagem"), nil)
	require.NoError(t, err)

	updated, err := h.UpdateActionPlanStatus(authCtx(), ap.ID, PlanStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, PlanStatusInProgress, updated.Status)

	_, err = h.UpdateActionPlanStatus(authCtx(), ap.ID, "Cancelado")
	var validation *apperr.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestListActionPlans(t *testing.T) {
	h, db := newTestHandler(t)
	inspectionID := seedInspection(t, db)

	_, _, err := h.RegisterNonConformity(authCtx(), inspectionID,
		"NC 1", SeverityLow, true, strPtr("Plano 1"), nil)
	require.NoError(t, err)

	plans, err := h.ListActionPlans(context.Background(), inspectionID)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}
