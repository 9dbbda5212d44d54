package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/internal/service"
	"github.com/noah-isme/training-api/pkg/response"
)

type traineeService interface {
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, traineeID, actorID string, meta models.RequestMeta) error
	Progress(ctx context.Context, traineeID string) (*dto.TraineeProgressResponse, error)
	ExportProgress(ctx context.Context, traineeID, format string) (*service.ProgressExport, error)
}

// TraineeHandler exposes instructor-side trainee administration.
type TraineeHandler struct {
	service traineeService
}

// NewTraineeHandler constructs a trainee handler.
func NewTraineeHandler(svc traineeService) *TraineeHandler {
	return &TraineeHandler{service: svc}
}

// List godoc
// @Summary List active trainees
// @Tags Trainees
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /trainees [get]
func (h *TraineeHandler) List(c *gin.Context) {
	trainees, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, trainees, nil)
}

// Delete godoc
// @Summary Delete trainee
// @Description Removes the trainee with their assignments and messages
// @Tags Trainees
// @Param id path string true "Trainee ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /trainees/{id} [delete]
func (h *TraineeHandler) Delete(c *gin.Context) {
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

// Progress godoc
// @Summary Trainee progress
// @Tags Trainees
// @Produce json
// @Param id path string true "Trainee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /instructor/trainees/{id}/progress [get]
func (h *TraineeHandler) Progress(c *gin.Context) {
	res, err := h.service.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ExportProgress godoc
// @Summary Download trainee progress
// @Tags Trainees
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Trainee ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /instructor/trainees/{id}/progress/export [get]
func (h *TraineeHandler) ExportProgress(c *gin.Context) {
	file, err := h.service.ExportProgress(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
