package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/response"
)

type messageService interface {
	SendToInstructors(ctx context.Context, senderID string, req models.MessageRequest) (*dto.SendMessageResult, error)
	Reply(ctx context.Context, instructorID, messageID string, req models.MessageRequest) (*models.Message, error)
	Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error)
	Thread(ctx context.Context, userID string) ([]models.MessageDetail, error)
}

// MessageHandler relays trainee and instructor messages.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(svc messageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// Send godoc
// @Summary Message all instructors
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body models.MessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /messages/send [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req models.MessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}

	res, err := h.service.SendToInstructors(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Reply godoc
// @Summary Reply to a trainee message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body models.MessageRequest true "Reply"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /messages/{id}/reply [post]
func (h *MessageHandler) Reply(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	var req models.MessageRequest
	if !bindJSON(c, &req, "invalid message payload") {
		return
	}

	reply, err := h.service.Reply(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, reply)
}

// Inbox godoc
// @Summary Instructor inbox
// @Description Received messages, newest first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /messages/inbox [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	items, err := h.service.Inbox(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Mine godoc
// @Summary Trainee conversation
// @Description Sent and received messages, oldest first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /messages/my [get]
func (h *MessageHandler) Mine(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		return
	}

	items, err := h.service.Thread(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}
