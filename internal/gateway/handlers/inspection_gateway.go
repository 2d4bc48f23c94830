package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	inspectionhandler "inspectra-system/internal/services/inspection/handler"
	"inspectra-system/prometheus"
)

type InspectionHTTPHandler struct {
	inspections *inspectionhandler.InspectionHandler
}

func NewInspectionHTTPHandler(inspections *inspectionhandler.InspectionHandler) *InspectionHTTPHandler {
	return &InspectionHTTPHandler{inspections: inspections}
}

type sensoryRequest struct {
	Color       *string `json:"color"`
	Odor        *string `json:"odor"`
	Appearance  *string `json:"appearance"`
	Texture     *string `json:"texture"`
	Temperature *string `json:"temperature"`
	Humidity    *string `json:"humidity"`
	Notes       *string `json:"notes"`
}

func (r *sensoryRequest) toFields() inspectionhandler.SensoryFields {
	return inspectionhandler.SensoryFields{
		Color:       r.Color,
		Odor:        r.Odor,
		Appearance:  r.Appearance,
		Texture:     r.Texture,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Notes:       r.Notes,
	}
}

type photoRequest struct {
	Filename string `json:"filename"`
	Data     string `json:"data"` // base64
}

type createInspectionRequest struct {
	ProductID      int32          `json:"product_id" binding:"required"`
	BatchCode      string         `json:"batch_code" binding:"required"`
	ResellerID     int32          `json:"reseller_id" binding:"required"`
	ManufacturerID int32          `json:"manufacturer_id" binding:"required"`
	ExpiryDate     time.Time      `json:"expiry_date" binding:"required"`
	Sensory        sensoryRequest `json:"sensory"`
	Photos         []photoRequest `json:"photos"`
}

func (s *InspectionHTTPHandler) CreateInspection(c *gin.Context) {
	var req createInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	photos := make([]inspectionhandler.PhotoPayload, 0, len(req.Photos))
	for _, p := range req.Photos {
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid photo payload: "+err.Error())
			return
		}
		photos = append(photos, inspectionhandler.PhotoPayload{Filename: p.Filename, Data: data})
	}

	inspection, degraded, err := s.inspections.CreateInspection(c.Request.Context(), inspectionhandler.CreateInspectionInput{
		ProductID:      req.ProductID,
		BatchCode:      req.BatchCode,
		ResellerID:     req.ResellerID,
		ManufacturerID: req.ManufacturerID,
		ExpiryDate:     req.ExpiryDate,
		Sensory:        req.Sensory.toFields(),
		Photos:         photos,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	prometheus.InspectionsCreatedCounter.Inc()
	if degraded.Tests {
		prometheus.DegradedCreationsCounter.WithLabelValues("tests").Inc()
	}
	if degraded.Photos {
		prometheus.DegradedCreationsCounter.WithLabelValues("photos").Inc()
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"data":     inspection,
		"status":   inspectionhandler.DeriveDisplayStatus(inspection, time.Now()),
		"degraded": degraded,
	})
}

func (s *InspectionHTTPHandler) GetInspection(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	inspection, err := s.inspections.GetInspection(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inspection,
		"status":  inspectionhandler.DeriveDisplayStatus(inspection, time.Now()),
	})
}

func (s *InspectionHTTPHandler) ListInspections(c *gin.Context) {
	pageSize, pageToken := pageParams(c)

	filter := inspectionhandler.ListInspectionsFilter{
		Status:     parseStringQuery(c, "status"),
		ProductID:  parseInt32Query(c, "product_id"),
		ResellerID: parseInt32Query(c, "reseller_id"),
		PageSize:   pageSize,
		PageToken:  pageToken,
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			end := t.Add(24 * time.Hour)
			filter.To = &end
		}
	}

	inspections, total, nextToken, err := s.inspections.ListInspections(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	type listItem struct {
		Inspection    interface{} `json:"inspection"`
		DisplayStatus string      `json:"display_status"`
	}
	now := time.Now()
	items := make([]listItem, len(inspections))
	for i := range inspections {
		items[i] = listItem{
			Inspection:    inspections[i],
			DisplayStatus: inspectionhandler.DeriveDisplayStatus(&inspections[i], now),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"pagination": gin.H{
			"next_page_token": nextToken,
			"total_count":     total,
		},
	})
}

type completeRequest struct {
	Disposition string          `json:"disposition" binding:"required"`
	Sensory     *sensoryRequest `json:"sensory"`
}

func (s *InspectionHTTPHandler) CompleteInspection(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var sensory *inspectionhandler.SensoryFields
	if req.Sensory != nil {
		fields := req.Sensory.toFields()
		sensory = &fields
	}

	inspection, err := s.inspections.Complete(c.Request.Context(), id, req.Disposition, sensory)
	if err != nil {
		respondError(c, err)
		return
	}

	prometheus.InspectionsCompletedCounter.WithLabelValues(req.Disposition).Inc()

	success(c, inspection)
}

type recordTestResultRequest struct {
	Result *string `json:"result"`
	Notes  *string `json:"notes"`
	Passed bool    `json:"passed"`
}

func (s *InspectionHTTPHandler) RecordTestResult(c *gin.Context) {
	inspectionID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}
	testID, err := parseInt32Param(c, "testId")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid test ID")
		return
	}

	var req recordTestResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	row, err := s.inspections.RecordTestResult(c.Request.Context(), inspectionID, testID, req.Result, req.Notes, req.Passed)
	if err != nil {
		respondError(c, err)
		return
	}

	prometheus.TestResultsRecordedCounter.Inc()

	success(c, row)
}

type addTestsRequest struct {
	TestIDs []int32 `json:"test_ids" binding:"required"`
}

func (s *InspectionHTTPHandler) AddTests(c *gin.Context) {
	inspectionID, err := parseInt64Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	var req addTestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.inspections.AddInspectionTests(c.Request.Context(), inspectionID, req.TestIDs); err != nil {
		respondError(c, err)
		return
	}

	inspection, err := s.inspections.GetInspection(c.Request.Context(), inspectionID)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, inspection)
}
