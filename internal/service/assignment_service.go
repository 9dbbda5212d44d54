package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) (bool, error)
	FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	MarkCompleted(ctx context.Context, id, traineeID string, at time.Time) (*models.Assignment, error)
	SetCompletion(ctx context.Context, id string, completed bool, at time.Time) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
}

type moduleFinder interface {
	FindByID(ctx context.Context, id string) (*models.TrainingModule, error)
}

// AssignmentService maintains the trainee/module ledger.
type AssignmentService struct {
	repo      assignmentRepository
	users     userFinder
	modules   moduleFinder
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// AssignmentServiceParams groups the dependencies of AssignmentService.
type AssignmentServiceParams struct {
	Repo      assignmentRepository
	Users     userFinder
	Modules   moduleFinder
	Audit     auditRecorder
	Validator *validator.Validate
	Logger    *zap.Logger
	Metrics   *MetricsService
}

// NewAssignmentService constructs the service.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	return &AssignmentService{
		repo:      params.Repo,
		users:     params.Users,
		modules:   params.Modules,
		audit:     params.Audit,
		validator: params.Validator,
		logger:    params.Logger,
		metrics:   params.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Assign links a trainee to a module. Repeating the call for the same pair
// returns the stored assignment with created=false.
func (s *AssignmentService) Assign(ctx context.Context, req models.CreateAssignmentRequest, assignedBy string) (*models.Assignment, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Validation(err, "invalid assignment payload")
	}

	if _, err := s.loadModule(ctx, req.ModuleID); err != nil {
		return nil, false, err
	}
	if _, err := s.loadTrainee(ctx, req.TraineeID); err != nil {
		return nil, false, err
	}

	assignment, created, err := s.create(ctx, req.TraineeID, req.ModuleID, assignedBy)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.metrics.RecordAssignmentsCreated(1)
	}
	return assignment, created, nil
}

// BulkAssign assigns moduleID to every listed trainee. Unknown ids are
// reported per item and do not stop the batch.
func (s *AssignmentService) BulkAssign(ctx context.Context, moduleID string, req models.BulkAssignRequest, assignedBy string, meta models.RequestMeta) (*dto.BulkAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "no trainee IDs provided")
	}

	if _, err := s.loadModule(ctx, moduleID); err != nil {
		return nil, err
	}

	result := &dto.BulkAssignResult{
		Assigned:       make([]string, 0, len(req.TraineeIDs)),
		TotalRequested: len(req.TraineeIDs),
	}
	created := 0
	for _, traineeID := range req.TraineeIDs {
		if _, err := s.loadTrainee(ctx, traineeID); err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("Trainee with ID %s not found", traineeID))
				continue
			}
			return nil, err
		}

		assignment, isNew, err := s.create(ctx, traineeID, moduleID, assignedBy)
		if err != nil {
			return nil, err
		}
		if isNew {
			created++
		}
		result.Assigned = append(result.Assigned, assignment.ID)
	}
	result.SuccessfullyAssigned = len(result.Assigned)
	s.metrics.RecordAssignmentsCreated(created)

	recordAudit(ctx, s.audit, s.logger, auditEntry{
		actorID:    assignedBy,
		action:     models.AuditActionBulkAssign,
		resource:   "modules",
		resourceID: moduleID,
		newValues: map[string]interface{}{
			"total_requested":       result.TotalRequested,
			"successfully_assigned": result.SuccessfullyAssigned,
			"created":               created,
		},
		meta: meta,
	})

	return result, nil
}

func (s *AssignmentService) create(ctx context.Context, traineeID, moduleID, assignedBy string) (*models.Assignment, bool, error) {
	assignment := &models.Assignment{
		TraineeID:  traineeID,
		ModuleID:   moduleID,
		AssignedAt: s.now(),
	}
	if assignedBy != "" {
		by := assignedBy
		assignment.AssignedBy = &by
	}

	created, err := s.repo.Create(ctx, assignment)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to create assignment")
	}
	return assignment, created, nil
}

// MarkCompleted flags the trainee's own assignment as completed.
func (s *AssignmentService) MarkCompleted(ctx context.Context, assignmentID, traineeID string) (*models.Assignment, error) {
	assignment, err := s.repo.MarkCompleted(ctx, assignmentID, traineeID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to complete assignment")
	}
	s.metrics.RecordAssignmentCompleted()
	return assignment, nil
}

// List returns assignments, optionally narrowed by module or trainee.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	if items == nil {
		items = []models.AssignmentDetail{}
	}
	return items, nil
}

// ListByTrainee returns every assignment of a trainee.
func (s *AssignmentService) ListByTrainee(ctx context.Context, traineeID string) ([]models.AssignmentDetail, error) {
	return s.List(ctx, models.AssignmentFilter{TraineeID: traineeID})
}

// ListByModule returns every assignment of a module. An unknown module is
// NOT_FOUND rather than an empty list.
func (s *AssignmentService) ListByModule(ctx context.Context, moduleID string) ([]models.AssignmentDetail, error) {
	if _, err := s.loadModule(ctx, moduleID); err != nil {
		return nil, err
	}
	return s.List(ctx, models.AssignmentFilter{ModuleID: moduleID})
}

// Get returns one assignment. Trainees may only read their own.
func (s *AssignmentService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.AssignmentDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to load assignment")
	}
	if viewer == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch viewer.Role {
	case models.RoleInstructor:
	case models.RoleTrainee:
		if detail.TraineeID != viewer.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another trainee")
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return detail, nil
}

// Update sets the completion flag on behalf of an instructor.
func (s *AssignmentService) Update(ctx context.Context, id string, req models.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid assignment payload")
	}
	assignment, err := s.repo.SetCompletion(ctx, id, *req.IsCompleted, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Internal(err, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Internal(err, "failed to delete assignment")
	}
	return nil
}

func (s *AssignmentService) loadModule(ctx context.Context, id string) (*models.TrainingModule, error) {
	module, err := s.modules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "module not found")
		}
		return nil, appErrors.Internal(err, "failed to load module")
	}
	return module, nil
}

// loadTrainee returns NOT_FOUND unless id names an account with role trainee.
func (s *AssignmentService) loadTrainee(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, appErrors.Internal(err, "failed to load trainee")
	}
	if user.Role != models.RoleTrainee {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
	}
	return user, nil
}
