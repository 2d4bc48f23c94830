package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	qualityhandler "inspectra-system/internal/services/quality/handler"
	"inspectra-system/prometheus"
)

type QualityHTTPHandler struct {
	quality *qualityhandler.QualityHandler
}

func NewQualityHTTPHandler(quality *qualityhandler.QualityHandler) *QualityHTTPHandler {
	return &QualityHTTPHandler{quality: quality}
}

type registerNonConformityRequest struct {
	Description           string     `json:"description" binding:"required"`
	Severity              string     `json:"severity" binding:"required"`
	CreateActionPlan      bool       `json:"create_action_plan"`
	ActionPlanDescription *string    `json:"action_plan_description"`
	ActionPlanDueDate     *time.Time `json:"action_plan_due_date"`
}

func (s *QualityHTTPHandler) RegisterNonConformity(c *gin.Context) {
	inspectionID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	var req registerNonConformityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	nc, ap, err := s.quality.RegisterNonConformity(
		c.Request.Context(),
		inspectionID,
		req.Description,
		req.Severity,
		req.CreateActionPlan,
		req.ActionPlanDescription,
		req.ActionPlanDueDate,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	prometheus.NonConformitiesCounter.WithLabelValues(req.Severity).Inc()
	if ap != nil {
		prometheus.ActionPlansCreatedCounter.Inc()
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"non_conformity": nc,
		"action_plan":    ap,
	})
}

type pairedCreateRequest struct {
	InspectionID          int64      `json:"inspection_id" binding:"required"`
	Description           string     `json:"description" binding:"required"`
	Severity              string     `json:"severity" binding:"required"`
	ActionPlanDescription string     `json:"action_plan_description" binding:"required"`
	ActionPlanStatus      string     `json:"action_plan_status"`
	ActionPlanDueDate     *time.Time `json:"action_plan_due_date"`
}

func (s *QualityHTTPHandler) CreateNonConformityWithActionPlan(c *gin.Context) {
	var req pairedCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	nc, ap, err := s.quality.CreateNonConformityWithActionPlan(
		c.Request.Context(),
		qualityhandler.NonConformityInput{
			InspectionID: req.InspectionID,
			Description:  req.Description,
			Severity:     req.Severity,
		},
		qualityhandler.ActionPlanInput{
			Description: req.ActionPlanDescription,
			Status:      req.ActionPlanStatus,
			DueDate:     req.ActionPlanDueDate,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}

	prometheus.NonConformitiesCounter.WithLabelValues(req.Severity).Inc()
	prometheus.ActionPlansCreatedCounter.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"non_conformity": nc,
		"action_plan":    ap,
	})
}

func (s *QualityHTTPHandler) ListNonConformities(c *gin.Context) {
	inspectionID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	ncs, err := s.quality.ListNonConformities(c.Request.Context(), inspectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, ncs)
}

func (s *QualityHTTPHandler) ListActionPlans(c *gin.Context) {
	inspectionID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	plans, err := s.quality.ListActionPlans(c.Request.Context(), inspectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, plans)
}

type updatePlanStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *QualityHTTPHandler) UpdateActionPlanStatus(c *gin.Context) {
	planID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid action plan ID")
		return
	}

	var req updatePlanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plan, err := s.quality.UpdateActionPlanStatus(c.Request.Context(), planID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, plan)
}
