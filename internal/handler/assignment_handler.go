package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/response"
)

type assignmentService interface {
	Assign(ctx context.Context, req models.CreateAssignmentRequest, assignedBy string) (*models.Assignment, bool, error)
	BulkAssign(ctx context.Context, moduleID string, req models.BulkAssignRequest, assignedBy string, meta models.RequestMeta) (*dto.BulkAssignResult, error)
	MarkCompleted(ctx context.Context, assignmentID, traineeID string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	ListByTrainee(ctx context.Context, traineeID string) ([]models.AssignmentDetail, error)
	ListByModule(ctx context.Context, moduleID string) ([]models.AssignmentDetail, error)
	Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.AssignmentDetail, error)
	Update(ctx context.Context, id string, req models.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

// AssignmentHandler exposes the assignment ledger.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler creates an assignment handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param module_id query string false "Module filter"
// @Param trainee_id query string false "Trainee filter"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), models.AssignmentFilter{
		ModuleID:  c.Query("module_id"),
		TraineeID: c.Query("trainee_id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// ModuleAssignments godoc
// @Summary List assignments of a module
// @Tags Assignments
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id}/assignments [get]
func (h *AssignmentHandler) ModuleAssignments(c *gin.Context) {
	items, err := h.service.ListByModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Assign module to trainee
// @Description Returns 201 for a new assignment and 200 when the pair already exists
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req models.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}

	assignment, created, err := h.service.Assign(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if created {
		response.Created(c, assignment)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// BulkAssign godoc
// @Summary Assign module to many trainees
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body models.BulkAssignRequest true "Trainee ids"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id}/assign [post]
func (h *AssignmentHandler) BulkAssign(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req models.BulkAssignRequest
	if !bindJSON(c, &req, "invalid bulk assignment payload") {
		return
	}

	result, err := h.service.BulkAssign(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Set assignment completion
// @Description Reopening an assignment clears its completion time
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.UpdateAssignmentRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req models.UpdateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}

	assignment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MyModules godoc
// @Summary List own assignments
// @Tags Trainee
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainee/modules [get]
func (h *AssignmentHandler) MyModules(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	items, err := h.service.ListByTrainee(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Complete godoc
// @Summary Mark own assignment completed
// @Tags Trainee
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /trainee/complete/{id} [post]
func (h *AssignmentHandler) Complete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	assignment, err := h.service.MarkCompleted(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}
