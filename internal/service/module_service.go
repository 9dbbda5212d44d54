package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type moduleRepository interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error)
	FindByID(ctx context.Context, id string) (*models.TrainingModule, error)
	Create(ctx context.Context, module *models.TrainingModule) error
	Update(ctx context.Context, module *models.TrainingModule) error
	Delete(ctx context.Context, id string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ModuleService manages the training module catalog.
type ModuleService struct {
	repo      moduleRepository
	users     userFinder
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewModuleService constructs the service.
func NewModuleService(repo moduleRepository, users userFinder, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ModuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ModuleService{repo: repo, users: users, audit: audit, validator: validate, logger: logger}
}

// List returns modules matching the filter. Inactive modules are excluded
// unless requested.
func (s *ModuleService) List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	modules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list modules")
	}
	if modules == nil {
		modules = []models.TrainingModule{}
	}
	return modules, nil
}

// Get returns a module by id.
func (s *ModuleService) Get(ctx context.Context, id string) (*models.TrainingModule, error) {
	module, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Internal(err, "failed to load module")
	}
	return module, nil
}

// Create stores a new active module authored by instructorID.
func (s *ModuleService) Create(ctx context.Context, instructorID string, req models.CreateModuleRequest) (*models.TrainingModule, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid module payload")
	}

	author, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "author not found")
		}
		return nil, appErrors.Internal(err, "failed to load author")
	}
	if author.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can author modules")
	}

	module := &models.TrainingModule{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		Content:         req.Content,
		DurationMinutes: req.DurationMinutes,
		CreatedBy:       author.ID,
		CreatorUsername: author.Username,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, module); err != nil {
		return nil, appErrors.Internal(err, "failed to create module")
	}
	return module, nil
}

// Update applies a partial update.
func (s *ModuleService) Update(ctx context.Context, id string, req models.UpdateModuleRequest) (*models.TrainingModule, error) {
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid module payload")
	}

	module, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.Content != nil {
		module.Content = *req.Content
	}
	if req.DurationMinutes != nil {
		module.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		module.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, module); err != nil {
		return nil, appErrors.Internal(err, "failed to update module")
	}
	return module, nil
}

// Delete removes the module and, through cascade, its assignments.
func (s *ModuleService) Delete(ctx context.Context, id, actorID string, meta models.RequestMeta) error {
	module, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return appErrors.Internal(err, "failed to delete module")
	}

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID:    actorID,
		action:     models.AuditActionModuleDelete,
		resource:   "modules",
		resourceID: id,
		oldValues:  map[string]interface{}{"title": module.Title},
		meta:       meta,
	})
	return nil
}
