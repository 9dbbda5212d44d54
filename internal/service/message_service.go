package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	CreateBatch(ctx context.Context, messages []*models.Message) error
	FindForRecipient(ctx context.Context, id, recipientID string) (*models.Message, error)
	Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error)
	Thread(ctx context.Context, userID string) ([]models.MessageDetail, error)
}

type messageUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole, activeOnly bool) ([]models.User, error)
}

// MessageService relays trainee questions to instructors and their replies.
type MessageService struct {
	repo      messageRepository
	users     messageUserReader
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewMessageService constructs a message service.
func NewMessageService(repo messageRepository, users messageUserReader, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{repo: repo, users: users, validator: validate, logger: logger, metrics: metrics}
}

// SendToInstructors stores one copy of the message per active instructor.
func (s *MessageService) SendToInstructors(ctx context.Context, senderID string, req models.MessageRequest) (*dto.SendMessageResult, error) {
	content, err := s.content(req)
	if err != nil {
		return nil, err
	}

	sender, err := s.loadUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.Role != models.RoleTrainee {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only trainees can message instructors")
	}

	instructors, err := s.users.ListByRole(ctx, models.RoleInstructor, true)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load instructors")
	}
	if len(instructors) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoRecipient, "no instructors available")
	}

	batch := make([]*models.Message, 0, len(instructors))
	for _, instructor := range instructors {
		batch = append(batch, &models.Message{
			SenderID:    sender.ID,
			RecipientID: instructor.ID,
			Content:     content,
		})
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, appErrors.Internal(err, "failed to send message")
	}

	s.metrics.RecordMessagesSent(len(batch))
	s.logger.Info("message sent to instructors", zap.String("sender_id", sender.ID), zap.Int("recipients", len(batch)))

	return &dto.SendMessageResult{Message: "Message sent to instructors", Recipients: len(batch)}, nil
}

// Reply answers a message addressed to the instructor.
func (s *MessageService) Reply(ctx context.Context, instructorID, messageID string, req models.MessageRequest) (*models.Message, error) {
	content, err := s.content(req)
	if err != nil {
		return nil, err
	}

	instructor, err := s.loadUser(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	if instructor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can reply")
	}

	original, err := s.repo.FindForRecipient(ctx, messageID, instructor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Internal(err, "failed to load message")
	}

	reply := &models.Message{
		SenderID:    instructor.ID,
		RecipientID: original.SenderID,
		Content:     content,
	}
	if err := s.repo.Create(ctx, reply); err != nil {
		return nil, appErrors.Internal(err, "failed to send reply")
	}
	s.metrics.RecordMessagesSent(1)
	return reply, nil
}

// Inbox lists messages received by userID, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	items, err := s.repo.Inbox(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load inbox")
	}
	if items == nil {
		items = []models.MessageDetail{}
	}
	return items, nil
}

// Thread lists messages sent or received by userID, oldest first.
func (s *MessageService) Thread(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	items, err := s.repo.Thread(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load messages")
	}
	if items == nil {
		items = []models.MessageDetail{}
	}
	return items, nil
}

func (s *MessageService) content(req models.MessageRequest) (string, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Validation(err, "content is required and must not exceed 5000 characters")
	}
	return req.Content, nil
}

func (s *MessageService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}
