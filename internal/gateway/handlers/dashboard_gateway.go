package handlers

import (
	"github.com/gin-gonic/gin"

	dashboardhandler "inspectra-system/internal/services/dashboard/handler"
)

type DashboardHTTPHandler struct {
	dashboard *dashboardhandler.DashboardHandler
}

func NewDashboardHTTPHandler(dashboard *dashboardhandler.DashboardHandler) *DashboardHTTPHandler {
	return &DashboardHTTPHandler{dashboard: dashboard}
}

func (s *DashboardHTTPHandler) Overview(c *gin.Context) {
	overview, err := s.dashboard.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, overview)
}
