package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
	"inspectra-system/internal/utils"
)

const (
	EventNonConformityRegistered = "nonconformity.registered"
)

// Severity levels, ordered low to critical.
const (
	SeverityLow      = "Baixa"
	SeverityMedium   = "Média"
	SeverityHigh     = "Alta"
	SeverityCritical = "Crítica"
)

// Action plan statuses.
const (
	PlanStatusPending    = "Pendente"
	PlanStatusInProgress = "Em andamento"
	PlanStatusDone       = "Concluído"
	PlanStatusLate       = "Atrasado"
)

var validSeverities = map[string]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

var validPlanStatuses = map[string]bool{
	PlanStatusPending:    true,
	PlanStatusInProgress: true,
	PlanStatusDone:       true,
	PlanStatusLate:       true,
}

// QualityHandler couples non-conformity discovery to corrective action
// plan creation. Paired writes share one transaction: no non-conformity
// is ever left silently "promised" an action plan that failed to insert.
type QualityHandler struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
	now   func() time.Time
}

func NewQualityHandler(db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *QualityHandler {
	return &QualityHandler{
		db:    db,
		redis: redisClient,
		log:   log,
		now:   time.Now,
	}
}

type NonConformityInput struct {
	InspectionID int64
	Description  string
	Severity     string
}

type ActionPlanInput struct {
	Description string
	Status      string
	DueDate     *time.Time
}

func (s *QualityHandler) CreateNonConformity(ctx context.Context, in NonConformityInput) (*models.NonConformity, error) {
	userID, ok := utils.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.AuthRequired("authentication required to register a non-conformity")
	}
	if err := validateNonConformity(in); err != nil {
		return nil, err
	}
	if err := s.checkInspection(in.InspectionID); err != nil {
		return nil, err
	}

	nc := models.NonConformity{
		InspectionID: in.InspectionID,
		Description:  in.Description,
		Severity:     in.Severity,
		CreatedBy:    userID,
	}
	if err := s.db.Create(&nc).Error; err != nil {
		return nil, apperr.Dependency("quality store", err)
	}

	s.publishNonConformityEvent(ctx, nc, nil)

	return &nc, nil
}

// CreateNonConformityWithActionPlan creates both records as one unit.
// The non-conformity is inserted first, then the action plan referencing
// the same inspection; a failure on either side rolls back both.
func (s *QualityHandler) CreateNonConformityWithActionPlan(ctx context.Context, ncIn NonConformityInput, apIn ActionPlanInput) (*models.NonConformity, *models.ActionPlan, error) {
	userID, ok := utils.UserIDFromContext(ctx)
	if !ok {
		return nil, nil, apperr.AuthRequired("authentication required to register a non-conformity")
	}
	if err := validateNonConformity(ncIn); err != nil {
		return nil, nil, err
	}
	if apIn.Description == "" {
		return nil, nil, apperr.Validation("action plan description is required")
	}
	if apIn.Status == "" {
		apIn.Status = PlanStatusPending
	}
	if !validPlanStatuses[apIn.Status] {
		return nil, nil, apperr.Validation("unknown action plan status %q", apIn.Status)
	}
	if err := s.checkInspection(ncIn.InspectionID); err != nil {
		return nil, nil, err
	}

	nc := models.NonConformity{
		InspectionID: ncIn.InspectionID,
		Description:  ncIn.Description,
		Severity:     ncIn.Severity,
		CreatedBy:    userID,
	}
	ap := models.ActionPlan{
		InspectionID: ncIn.InspectionID,
		Description:  apIn.Description,
		Status:       apIn.Status,
		DueDate:      apIn.DueDate,
		CreatedBy:    userID,
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&nc).Error; err != nil {
		tx.Rollback()
		return nil, nil, apperr.Dependency("quality store", err)
	}
	if err := tx.Create(&ap).Error; err != nil {
		tx.Rollback()
		return nil, nil, apperr.Dependency("quality store", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, apperr.Dependency("quality store", err)
	}

	s.publishNonConformityEvent(ctx, nc, &ap)

	return &nc, &ap, nil
}

// RegisterNonConformity is the inspection-detail convenience flow. When
// createActionPlan is set, the plan description becomes mandatory and is
// validated before anything is written.
func (s *QualityHandler) RegisterNonConformity(ctx context.Context, inspectionID int64, description, severity string, createActionPlan bool, planDescription *string, planDueDate *time.Time) (*models.NonConformity, *models.ActionPlan, error) {
	in := NonConformityInput{
		InspectionID: inspectionID,
		Description:  description,
		Severity:     severity,
	}

	if !createActionPlan {
		nc, err := s.CreateNonConformity(ctx, in)
		return nc, nil, err
	}

	if planDescription == nil || *planDescription == "" {
		return nil, nil, apperr.Validation("action plan description is required when an action plan is requested")
	}

	return s.CreateNonConformityWithActionPlan(ctx, in, ActionPlanInput{
		Description: *planDescription,
		Status:      PlanStatusPending,
		DueDate:     planDueDate,
	})
}

func (s *QualityHandler) ListNonConformities(ctx context.Context, inspectionID int64) ([]models.NonConformity, error) {
	if err := s.checkInspection(inspectionID); err != nil {
		return nil, err
	}
	var ncs []models.NonConformity
	if err := s.db.Where("inspection_id = ?", inspectionID).Order("created_at DESC").Find(&ncs).Error; err != nil {
		return nil, apperr.Dependency("quality store", err)
	}
	return ncs, nil
}

func (s *QualityHandler) ListActionPlans(ctx context.Context, inspectionID int64) ([]models.ActionPlan, error) {
	if err := s.checkInspection(inspectionID); err != nil {
		return nil, err
	}
	var plans []models.ActionPlan
	if err := s.db.Where("inspection_id = ?", inspectionID).Order("created_at DESC").Find(&plans).Error; err != nil {
		return nil, apperr.Dependency("quality store", err)
	}
	return plans, nil
}

func (s *QualityHandler) UpdateActionPlanStatus(ctx context.Context, planID int64, status string) (*models.ActionPlan, error) {
	if _, ok := utils.UserIDFromContext(ctx); !ok {
		return nil, apperr.AuthRequired("authentication required to update an action plan")
	}
	if !validPlanStatuses[status] {
		return nil, apperr.Validation("unknown action plan status %q", status)
	}

	var plan models.ActionPlan
	if err := s.db.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("action plan", planID)
		}
		return nil, apperr.Dependency("quality store", err)
	}

	plan.Status = status
	plan.UpdatedAt = s.now()
	if err := s.db.Save(&plan).Error; err != nil {
		return nil, apperr.Dependency("quality store", err)
	}
	return &plan, nil
}

func (s *QualityHandler) checkInspection(inspectionID int64) error {
	if inspectionID == 0 {
		return apperr.Validation("inspection id must be provided")
	}
	if err := s.db.First(&models.Inspection{}, inspectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("inspection", inspectionID)
		}
		return apperr.Dependency("quality store", err)
	}
	return nil
}

func validateNonConformity(in NonConformityInput) error {
	if in.Description == "" {
		return apperr.Validation("description is required")
	}
	if in.Severity == "" {
		return apperr.Validation("severity is required")
	}
	if !validSeverities[in.Severity] {
		return apperr.Validation("unknown severity %q", in.Severity)
	}
	return nil
}

// -- Pub/Sub Related --

type NonConformityEvent struct {
	EventType    string    `json:"event_type"`
	InspectionID int64     `json:"inspection_id"`
	Severity     string    `json:"severity"`
	HasPlan      bool      `json:"has_action_plan"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *QualityHandler) publishNonConformityEvent(ctx context.Context, nc models.NonConformity, ap *models.ActionPlan) {
	event := NonConformityEvent{
		EventType:    EventNonConformityRegistered,
		InspectionID: nc.InspectionID,
		Severity:     nc.Severity,
		HasPlan:      ap != nil,
		Timestamp:    s.now(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal non-conformity event", zap.Error(err))
		return
	}

	channel := fmt.Sprintf("quality:events:%s", event.EventType)
	if err := s.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		s.log.Warn("failed to publish non-conformity event", zap.String("channel", channel), zap.Error(err))
	}
}
