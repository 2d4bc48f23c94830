package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database"
	"inspectra-system/internal/database/models"
	"inspectra-system/internal/utils"
)

const (
	EventInspectionCreated     = "inspection.created"
	EventInspectionCompleted   = "inspection.completed"
	EventInspectionRecompleted = "inspection.recompleted"
)

// CatalogStore is the read-only reference-data collaborator.
type CatalogStore interface {
	GetProduct(ctx context.Context, id int32) (*models.Product, error)
	ApplicableTests(ctx context.Context, productID int32) ([]int32, error)
	GetManufacturer(ctx context.Context, id int32) (*models.Manufacturer, error)
	GetReseller(ctx context.Context, id int32) (*models.Reseller, error)
}

// PhotoStore is the external upload collaborator.
type PhotoStore interface {
	Save(ctx context.Context, inspectionID int64, filename string, data []byte) (string, error)
}

// Degraded reports which best-effort secondary steps failed during
// inspection creation. The primary record persists either way.
type Degraded struct {
	Tests  bool `json:"tests"`
	Photos bool `json:"photos"`
}

type InspectionHandler struct {
	db      *gorm.DB
	redis   *redis.Client
	catalog CatalogStore
	photos  PhotoStore
	log     *zap.Logger
	now     func() time.Time
}

func NewInspectionHandler(db *gorm.DB, redisClient *redis.Client, catalog CatalogStore, photos PhotoStore, log *zap.Logger) *InspectionHandler {
	return &InspectionHandler{
		db:      db,
		redis:   redisClient,
		catalog: catalog,
		photos:  photos,
		log:     log,
		now:     time.Now,
	}
}

type PhotoPayload struct {
	Filename string
	Data     []byte
}

type SensoryFields struct {
	Color       *string
	Odor        *string
	Appearance  *string
	Texture     *string
	Temperature *string
	Humidity    *string
	Notes       *string
}

type CreateInspectionInput struct {
	ProductID      int32
	BatchCode      string
	ResellerID     int32
	ManufacturerID int32
	ExpiryDate     time.Time
	Sensory        SensoryFields
	Photos         []PhotoPayload
}

// CreateInspection persists the inspection with its resolved initial
// status, then runs the best-effort secondary steps: test materialization
// from the product's bound test set and photo upload. Secondary failures
// are logged and reported through Degraded, never propagated.
func (s *InspectionHandler) CreateInspection(ctx context.Context, in CreateInspectionInput) (*models.Inspection, Degraded, error) {
	var degraded Degraded

	userID, ok := utils.UserIDFromContext(ctx)
	if !ok {
		return nil, degraded, apperr.AuthRequired("authentication required to create an inspection")
	}

	if in.ProductID == 0 {
		return nil, degraded, apperr.Validation("product is required")
	}
	if in.BatchCode == "" {
		return nil, degraded, apperr.Validation("batch code is required")
	}
	if in.ResellerID == 0 {
		return nil, degraded, apperr.Validation("reseller is required")
	}
	if in.ManufacturerID == 0 {
		return nil, degraded, apperr.Validation("manufacturer is required")
	}
	if in.ExpiryDate.IsZero() {
		return nil, degraded, apperr.Validation("expiry date is required")
	}
	if err := normalizeMeasurements(&in.Sensory); err != nil {
		return nil, degraded, err
	}

	if _, err := s.catalog.GetProduct(ctx, in.ProductID); err != nil {
		return nil, degraded, err
	}
	if _, err := s.catalog.GetReseller(ctx, in.ResellerID); err != nil {
		return nil, degraded, err
	}
	if _, err := s.catalog.GetManufacturer(ctx, in.ManufacturerID); err != nil {
		return nil, degraded, err
	}

	status, err := ResolveStatus(in.ExpiryDate, nil, s.now())
	if err != nil {
		return nil, degraded, err
	}

	inspection := models.Inspection{
		ProductID:      in.ProductID,
		BatchCode:      in.BatchCode,
		ResellerID:     in.ResellerID,
		ManufacturerID: in.ManufacturerID,
		ExpiryDate:     in.ExpiryDate,
		Status:         status,
		Color:          in.Sensory.Color,
		Odor:           in.Sensory.Odor,
		Appearance:     in.Sensory.Appearance,
		Texture:        in.Sensory.Texture,
		Temperature:    in.Sensory.Temperature,
		Humidity:       in.Sensory.Humidity,
		Notes:          in.Sensory.Notes,
		Photos:         database.StringArray{},
		CreatedBy:      userID,
	}

	if err := s.db.Create(&inspection).Error; err != nil {
		return nil, degraded, apperr.Dependency("inspection store", err)
	}

	// Test binding is a snapshot taken now; later changes to the product's
	// test set do not touch this inspection.
	testIDs, err := s.catalog.ApplicableTests(ctx, in.ProductID)
	if err != nil {
		s.log.Warn("test binding lookup failed, inspection created without tests",
			zap.Int64("inspection_id", inspection.ID), zap.Error(err))
		degraded.Tests = true
	} else if err := s.MaterializeInspectionTests(ctx, inspection.ID, testIDs); err != nil {
		s.log.Warn("test materialization failed, inspection created without tests",
			zap.Int64("inspection_id", inspection.ID), zap.Error(err))
		degraded.Tests = true
	}

	if len(in.Photos) > 0 {
		urls := make(database.StringArray, 0, len(in.Photos))
		for _, p := range in.Photos {
			url, err := s.photos.Save(ctx, inspection.ID, p.Filename, p.Data)
			if err != nil {
				s.log.Warn("photo upload failed",
					zap.Int64("inspection_id", inspection.ID),
					zap.String("filename", p.Filename), zap.Error(err))
				degraded.Photos = true
				continue
			}
			urls = append(urls, url)
		}
		if len(urls) > 0 {
			inspection.Photos = urls
			if err := s.db.Model(&models.Inspection{}).Where("id = ?", inspection.ID).
				Update("photos", urls).Error; err != nil {
				s.log.Warn("photo reference attach failed",
					zap.Int64("inspection_id", inspection.ID), zap.Error(err))
				degraded.Photos = true
			}
		}
	}

	if err := s.db.Preload("Tests").First(&inspection, inspection.ID).Error; err != nil {
		return nil, degraded, apperr.Dependency("inspection store", err)
	}

	s.publishInspectionEvent(ctx, InspectionEvent{
		EventType:    EventInspectionCreated,
		InspectionID: inspection.ID,
		ProductID:    inspection.ProductID,
		BatchCode:    inspection.BatchCode,
		Status:       inspection.Status,
		CreatedBy:    userID,
		Timestamp:    s.now(),
	})

	return &inspection, degraded, nil
}

// MaterializeInspectionTests creates one placeholder row per test id.
// Idempotent on the (inspection, test) unique pair: re-invocation never
// duplicates rows and never resets already-recorded results.
func (s *InspectionHandler) MaterializeInspectionTests(ctx context.Context, inspectionID int64, testIDs []int32) error {
	if len(testIDs) == 0 {
		return nil
	}

	rows := make([]models.InspectionTest, 0, len(testIDs))
	for _, testID := range testIDs {
		rows = append(rows, models.InspectionTest{
			InspectionID: inspectionID,
			TestID:       testID,
			Passed:       false,
		})
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inspection_id"}, {Name: "test_id"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return apperr.Dependency("inspection store", err)
	}
	return nil
}

// RecordTestResult updates result/notes/passed in place for the
// (inspection, test) pair, or upserts the row when the test was bound
// late. The inspection's own status field is never touched here.
func (s *InspectionHandler) RecordTestResult(ctx context.Context, inspectionID int64, testID int32, result *string, notes *string, passed bool) (*models.InspectionTest, error) {
	if inspectionID == 0 {
		return nil, apperr.Validation("inspection id must be provided")
	}
	if testID == 0 {
		return nil, apperr.Validation("test id must be provided")
	}

	if err := s.db.First(&models.Inspection{}, inspectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("inspection", inspectionID)
		}
		return nil, apperr.Dependency("inspection store", err)
	}

	var row models.InspectionTest
	err := s.db.Where("inspection_id = ? AND test_id = ?", inspectionID, testID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.InspectionTest{
			InspectionID: inspectionID,
			TestID:       testID,
			Result:       result,
			Notes:        notes,
			Passed:       passed,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, apperr.Dependency("inspection store", err)
		}
	case err != nil:
		return nil, apperr.Dependency("inspection store", err)
	default:
		row.Result = result
		row.Notes = notes
		row.Passed = passed
		if err := s.db.Save(&row).Error; err != nil {
			return nil, apperr.Dependency("inspection store", err)
		}
	}

	return &row, nil
}

// AddInspectionTests is the late-binding flow: it upserts placeholders for
// tests added after creation, keyed on the same uniqueness invariant.
func (s *InspectionHandler) AddInspectionTests(ctx context.Context, inspectionID int64, testIDs []int32) error {
	if inspectionID == 0 {
		return apperr.Validation("inspection id must be provided")
	}
	if len(testIDs) == 0 {
		return apperr.Validation("at least one test id must be provided")
	}

	if err := s.db.First(&models.Inspection{}, inspectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("inspection", inspectionID)
		}
		return apperr.Dependency("inspection store", err)
	}

	return s.MaterializeInspectionTests(ctx, inspectionID, testIDs)
}

// Complete records the inspector's final disposition. Re-completion with a
// different disposition is permitted as a correction: the prior terminal
// state is overwritten, logged and published, but a terminal inspection
// can never revert to pending or expired.
func (s *InspectionHandler) Complete(ctx context.Context, inspectionID int64, disposition string, sensory *SensoryFields) (*models.Inspection, error) {
	if _, ok := utils.UserIDFromContext(ctx); !ok {
		return nil, apperr.AuthRequired("authentication required to complete an inspection")
	}

	status, err := ResolveStatus(time.Time{}, &disposition, s.now())
	if err != nil {
		return nil, err
	}

	var inspection models.Inspection
	if err := s.db.First(&inspection, inspectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("inspection", inspectionID)
		}
		return nil, apperr.Dependency("inspection store", err)
	}

	if sensory != nil {
		if err := normalizeMeasurements(sensory); err != nil {
			return nil, err
		}
		mergeSensory(&inspection, sensory)
	}

	prior := inspection.Status
	inspection.Status = status
	inspection.UpdatedAt = s.now()

	if err := s.db.Save(&inspection).Error; err != nil {
		return nil, apperr.Dependency("inspection store", err)
	}

	event := EventInspectionCompleted
	if IsTerminal(prior) && prior != status {
		s.log.Warn("inspection re-completed with a different disposition",
			zap.Int64("inspection_id", inspection.ID),
			zap.String("prior_status", prior),
			zap.String("new_status", status))
		event = EventInspectionRecompleted
	}

	s.publishInspectionEvent(ctx, InspectionEvent{
		EventType:    event,
		InspectionID: inspection.ID,
		ProductID:    inspection.ProductID,
		BatchCode:    inspection.BatchCode,
		Status:       inspection.Status,
		PriorStatus:  prior,
		Timestamp:    s.now(),
	})

	return &inspection, nil
}

func (s *InspectionHandler) GetInspection(ctx context.Context, inspectionID int64) (*models.Inspection, error) {
	var inspection models.Inspection
	err := s.db.
		Preload("Product").
		Preload("Reseller").
		Preload("Manufacturer").
		Preload("Tests").
		Preload("Tests.Test").
		Preload("NonConformities").
		Preload("ActionPlans").
		First(&inspection, inspectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("inspection", inspectionID)
		}
		return nil, apperr.Dependency("inspection store", err)
	}
	return &inspection, nil
}

type ListInspectionsFilter struct {
	Status     *string
	ProductID  *int32
	ResellerID *int32
	From       *time.Time
	To         *time.Time
	PageSize   int
	PageToken  string
}

func (s *InspectionHandler) ListInspections(ctx context.Context, filter ListInspectionsFilter) ([]models.Inspection, int64, string, error) {
	var inspections []models.Inspection
	var total int64

	query := s.db.Model(&models.Inspection{}).Preload("Product").Preload("Tests")

	if filter.Status != nil {
		// Pending and expired are time-sensitive: a stored "Pendente" whose
		// expiry date has passed must match as expired, not pending.
		today := startOfDay(s.now())
		switch *filter.Status {
		case StatusExpired:
			query = query.Where("status = ? OR (status = ? AND expiry_date < ?)",
				StatusExpired, StatusPending, today)
		case StatusPending:
			query = query.Where("status = ? AND expiry_date >= ?", StatusPending, today)
		default:
			query = query.Where("status = ?", *filter.Status)
		}
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.ResellerID != nil {
		query = query.Where("reseller_id = ?", *filter.ResellerID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, "", apperr.Dependency("inspection store", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pageNumber := 1
	if filter.PageToken != "" {
		if n, err := strconv.Atoi(filter.PageToken); err == nil && n > 0 {
			pageNumber = n
		}
	}

	offset := (pageNumber - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&inspections).Error; err != nil {
		return nil, 0, "", apperr.Dependency("inspection store", err)
	}

	nextPageToken := ""
	if int64(pageNumber*pageSize) < total {
		nextPageToken = strconv.Itoa(pageNumber + 1)
	}

	return inspections, total, nextPageToken, nil
}

// -- Pub/Sub Related --

type InspectionEvent struct {
	EventType    string    `json:"event_type"`
	InspectionID int64     `json:"inspection_id"`
	ProductID    int32     `json:"product_id"`
	BatchCode    string    `json:"batch_code"`
	Status       string    `json:"status"`
	PriorStatus  string    `json:"prior_status,omitempty"`
	CreatedBy    int64     `json:"created_by,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *InspectionHandler) publishInspectionEvent(ctx context.Context, event InspectionEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal inspection event", zap.Error(err))
		return
	}

	channel := fmt.Sprintf("inspection:events:%s", event.EventType)
	if err := s.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		s.log.Warn("failed to publish inspection event", zap.String("channel", channel), zap.Error(err))
	}
	if err := s.redis.Publish(ctx, "inspection:events:all", eventJSON).Err(); err != nil {
		s.log.Warn("failed to publish inspection event", zap.String("channel", "inspection:events:all"), zap.Error(err))
	}
}

func mergeSensory(inspection *models.Inspection, sensory *SensoryFields) {
	if sensory.Color != nil {
		inspection.Color = sensory.Color
	}
	if sensory.Odor != nil {
		inspection.Odor = sensory.Odor
	}
	if sensory.Appearance != nil {
		inspection.Appearance = sensory.Appearance
	}
	if sensory.Texture != nil {
		inspection.Texture = sensory.Texture
	}
	if sensory.Temperature != nil {
		inspection.Temperature = sensory.Temperature
	}
	if sensory.Humidity != nil {
		inspection.Humidity = sensory.Humidity
	}
	if sensory.Notes != nil {
		inspection.Notes = sensory.Notes
	}
}

// normalizeMeasurements validates temperature/humidity as decimals and
// stores them normalized (e.g. "4.50" -> "4.5").
func normalizeMeasurements(sensory *SensoryFields) error {
	if sensory.Temperature != nil {
		d, err := decimal.NewFromString(*sensory.Temperature)
		if err != nil {
			return apperr.Validation("temperature must be a decimal value, got %q", *sensory.Temperature)
		}
		v := d.String()
		sensory.Temperature = &v
	}
	if sensory.Humidity != nil {
		d, err := decimal.NewFromString(*sensory.Humidity)
		if err != nil {
			return apperr.Validation("humidity must be a decimal value, got %q", *sensory.Humidity)
		}
		v := d.String()
		sensory.Humidity = &v
	}
	return nil
}
