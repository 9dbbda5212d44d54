package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/response"
)

type moduleService interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error)
	Get(ctx context.Context, id string) (*models.TrainingModule, error)
	Create(ctx context.Context, instructorID string, req models.CreateModuleRequest) (*models.TrainingModule, error)
	Update(ctx context.Context, id string, req models.UpdateModuleRequest) (*models.TrainingModule, error)
	Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error
}

// ModuleHandler exposes the module catalog.
type ModuleHandler struct {
	service moduleService
}

// NewModuleHandler creates a module handler.
func NewModuleHandler(svc moduleService) *ModuleHandler {
	return &ModuleHandler{service: svc}
}

// List godoc
// @Summary List modules
// @Tags Modules
// @Produce json
// @Param include_inactive query bool false "Include retired modules"
// @Param created_by query string false "Author id"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /modules [get]
func (h *ModuleHandler) List(c *gin.Context) {
	filter := models.ModuleFilter{
		CreatedBy: c.Query("created_by"),
		Search:    c.Query("search"),
	}
	if raw := c.Query("include_inactive"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			filter.IncludeInactive = val
		}
	}

	modules, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, modules, nil)
}

// Get godoc
// @Summary Get module
// @Tags Modules
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id} [get]
func (h *ModuleHandler) Get(c *gin.Context) {
	module, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, module, nil)
}

// Create godoc
// @Summary Create module
// @Tags Modules
// @Accept json
// @Produce json
// @Param payload body models.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /modules [post]
func (h *ModuleHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req models.CreateModuleRequest
	if !bindJSON(c, &req, "invalid module payload") {
		return
	}

	module, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, module)
}

// Update godoc
// @Summary Update module
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body models.UpdateModuleRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id} [put]
func (h *ModuleHandler) Update(c *gin.Context) {
	var req models.UpdateModuleRequest
	if !bindJSON(c, &req, "invalid module payload") {
		return
	}

	module, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, module, nil)
}

// Delete godoc
// @Summary Delete module
// @Description Deletes the module and its assignments
// @Tags Modules
// @Param id path string true "Module ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id} [delete]
func (h *ModuleHandler) Delete(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
