package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
	"github.com/noah-isme/training-api/pkg/export"
)

type traineeRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole, activeOnly bool) ([]models.User, error)
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type traineeProgressProvider interface {
	TraineeProgress(ctx context.Context, traineeID string) (*dto.TraineeProgressResponse, error)
}

// ProgressExport is a rendered progress report ready for download.
type ProgressExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TraineeService exposes instructor-side trainee administration.
type TraineeService struct {
	repo      traineeRepository
	progress  traineeProgressProvider
	revoker   userTokenRevoker
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
}

// NewTraineeService constructs the service with CSV and PDF renderers.
func NewTraineeService(repo traineeRepository, progress traineeProgressProvider, revoker userTokenRevoker, logger *zap.Logger) *TraineeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TraineeService{
		repo:     repo,
		progress: progress,
		revoker:  revoker,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// List returns active trainees ordered by username.
func (s *TraineeService) List(ctx context.Context) ([]models.User, error) {
	trainees, err := s.repo.ListByRole(ctx, models.RoleTrainee, true)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list trainees")
	}
	if trainees == nil {
		trainees = []models.User{}
	}
	return trainees, nil
}

// Delete removes a trainee together with their assignments and messages.
func (s *TraineeService) Delete(ctx context.Context, traineeID, actorID string, meta models.RequestMeta) error {
	trainee, err := s.repo.FindByID(ctx, traineeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return appErrors.Internal(err, "failed to load trainee")
	}
	if trainee.Role != models.RoleTrainee {
		return appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
	}
	return deleteUser(ctx, s.repo, s.revoker, s.logger, trainee, actorID, models.AuditActionTraineeDelete, meta)
}

// Progress returns one trainee's progress.
func (s *TraineeService) Progress(ctx context.Context, traineeID string) (*dto.TraineeProgressResponse, error) {
	return s.progress.TraineeProgress(ctx, traineeID)
}

// ExportProgress renders a trainee's progress as csv or pdf.
func (s *TraineeService) ExportProgress(ctx context.Context, traineeID, format string) (*ProgressExport, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Validation(err, "format must be csv or pdf")
	}

	progress, err := s.progress.TraineeProgress(ctx, traineeID)
	if err != nil {
		return nil, err
	}

	body, err := s.renderers[f].Render(progressDataset(progress))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render progress report")
	}

	return &ProgressExport{
		Filename:    fmt.Sprintf("trainee-%s-progress.%s", progress.Trainee.Username, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func progressDataset(progress *dto.TraineeProgressResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(progress.Assignments))
	for _, a := range progress.Assignments {
		status := "pending"
		completedAt := ""
		if a.IsCompleted {
			status = "completed"
		}
		if a.CompletedAt != nil {
			completedAt = a.CompletedAt.Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"module":       a.ModuleTitle,
			"status":       status,
			"assigned_at":  a.AssignedAt.Format(time.RFC3339),
			"completed_at": completedAt,
		})
	}

	return export.Dataset{
		Title: fmt.Sprintf("Trainee progress: %s", progress.Trainee.Username),
		Summary: []string{
			fmt.Sprintf("Completed: %d of %d", progress.Completed, progress.TotalAssigned),
			fmt.Sprintf("Completion: %.2f%%", progress.CompletionPercentage),
		},
		Headers: []string{"module", "status", "assigned_at", "completed_at"},
		Rows:    rows,
	}
}
