package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/middleware"
	"github.com/noah-isme/training-api/pkg/response"
)

type dashboardService interface {
	Trainee(ctx context.Context, userID string) (*dto.TraineeDashboardResponse, error)
	Instructor(ctx context.Context) (*dto.InstructorDashboardResponse, error)
	SuperAdmin(ctx context.Context) (*dto.SuperAdminDashboardResponse, error)
}

// DashboardHandler serves the per-role dashboards.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Trainee godoc
// @Summary Trainee dashboard
// @Description Own progress and assigned modules
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/trainee [get]
func (h *DashboardHandler) Trainee(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	res, err := h.service.Trainee(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil, middleware.ResponseMeta(c))
}

// Instructor godoc
// @Summary Instructor dashboard
// @Description Cohort progress, module statistics and status summary
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/instructor [get]
func (h *DashboardHandler) Instructor(c *gin.Context) {
	res, err := h.service.Instructor(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil, middleware.ResponseMeta(c))
}

// SuperAdmin godoc
// @Summary Super-admin dashboard
// @Description Platform-wide totals
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/superadmin [get]
func (h *DashboardHandler) SuperAdmin(c *gin.Context) {
	res, err := h.service.SuperAdmin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil, middleware.ResponseMeta(c))
}
