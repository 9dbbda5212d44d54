package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type dashboardUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole, activeOnly bool) ([]models.User, error)
	CountByRole(ctx context.Context) ([]models.RoleCount, error)
	Recent(ctx context.Context, limit int) ([]models.User, error)
}

type dashboardModuleReader interface {
	List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error)
	Count(ctx context.Context) (total, active int, err error)
}

type assignmentLister interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
}

type messageCounter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	RecentUsersLimit int
}

// DashboardService composes the per-role dashboard payloads.
type DashboardService struct {
	users       dashboardUserReader
	modules     dashboardModuleReader
	assignments assignmentLister
	messages    messageCounter
	logger      *zap.Logger
	metrics     *MetricsService
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users       dashboardUserReader
	Modules     dashboardModuleReader
	Assignments assignmentLister
	Messages    messageCounter
	Logger      *zap.Logger
	Metrics     *MetricsService
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Config.RecentUsersLimit <= 0 {
		params.Config.RecentUsersLimit = 5
	}
	return &DashboardService{
		users:       params.Users,
		modules:     params.Modules,
		assignments: params.Assignments,
		messages:    params.Messages,
		logger:      params.Logger,
		metrics:     params.Metrics,
		cfg:         params.Config,
	}
}

// Trainee returns the caller's own progress and assigned modules.
func (s *DashboardService) Trainee(ctx context.Context, userID string) (*dto.TraineeDashboardResponse, error) {
	var (
		user        *models.User
		assignments []models.AssignmentDetail
		modules     []models.TrainingModule
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.users.FindByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.List(gctx, models.AssignmentFilter{TraineeID: userID})
		return err
	})
	g.Go(func() (err error) {
		modules, err = s.modules.List(gctx, models.ModuleFilter{IncludeInactive: true})
		return err
	})
	err := g.Wait()
	s.metrics.ObserveDBQuery("dashboard_trainee", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, s.internal(err, "trainee")
	}

	byID := make(map[string]models.TrainingModule, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
	}

	items := make([]dto.AssignedModule, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, dto.AssignedModule{
			ID:          a.ID,
			Module:      byID[a.ModuleID],
			IsCompleted: a.IsCompleted,
			AssignedAt:  a.AssignedAt,
			CompletedAt: a.CompletedAt,
		})
	}

	return &dto.TraineeDashboardResponse{
		User:            *user,
		Progress:        SummarizeProgress(assignmentsOf(assignments)),
		AssignedModules: items,
	}, nil
}

// Instructor returns cohort-wide statistics over active trainees and all modules.
func (s *DashboardService) Instructor(ctx context.Context) (*dto.InstructorDashboardResponse, error) {
	var (
		trainees    []models.User
		modules     []models.TrainingModule
		assignments []models.AssignmentDetail
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trainees, err = s.users.ListByRole(gctx, models.RoleTrainee, true)
		return err
	})
	g.Go(func() (err error) {
		modules, err = s.modules.List(gctx, models.ModuleFilter{IncludeInactive: true})
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.List(gctx, models.AssignmentFilter{})
		return err
	})
	err := g.Wait()
	s.metrics.ObserveDBQuery("dashboard_instructor", time.Since(start))
	if err != nil {
		return nil, s.internal(err, "instructor")
	}

	plain := assignmentsOf(assignments)
	traineeStats, dist := BuildTraineeStats(trainees, plain)
	moduleStats, assigned, unassigned := BuildModuleStats(modules, plain)

	return &dto.InstructorDashboardResponse{
		TotalTrainees:           len(trainees),
		TotalModules:            len(modules),
		AssignedModulesCount:    assigned,
		UnassignedModulesCount:  unassigned,
		Trainees:                traineeStats,
		Modules:                 moduleStats,
		ProgressDistribution:    dist,
		AssignmentStatusSummary: SummarizeStatuses(plain),
	}, nil
}

// SuperAdmin returns platform-wide totals.
func (s *DashboardService) SuperAdmin(ctx context.Context) (*dto.SuperAdminDashboardResponse, error) {
	var (
		roleCounts    []models.RoleCount
		totalModules  int
		activeModules int
		assignments   []models.AssignmentDetail
		trainees      []models.User
		totalMessages int
		recent        []models.User
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		roleCounts, err = s.users.CountByRole(gctx)
		return err
	})
	g.Go(func() (err error) {
		totalModules, activeModules, err = s.modules.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = s.assignments.List(gctx, models.AssignmentFilter{})
		return err
	})
	g.Go(func() (err error) {
		trainees, err = s.users.ListByRole(gctx, models.RoleTrainee, true)
		return err
	})
	g.Go(func() (err error) {
		totalMessages, err = s.messages.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.users.Recent(gctx, s.cfg.RecentUsersLimit)
		return err
	})
	err := g.Wait()
	s.metrics.ObserveDBQuery("dashboard_superadmin", time.Since(start))
	if err != nil {
		return nil, s.internal(err, "superadmin")
	}

	totalUsers := 0
	for _, rc := range roleCounts {
		totalUsers += rc.Active + rc.Inactive
	}
	if roleCounts == nil {
		roleCounts = []models.RoleCount{}
	}
	if recent == nil {
		recent = []models.User{}
	}

	plain := assignmentsOf(assignments)
	summary := SummarizeStatuses(plain)
	_, dist := BuildTraineeStats(trainees, plain)

	return &dto.SuperAdminDashboardResponse{
		Users:      roleCounts,
		TotalUsers: totalUsers,
		Modules: dto.ModuleTotals{
			Total:    totalModules,
			Active:   activeModules,
			Inactive: totalModules - activeModules,
		},
		AssignmentStatusSummary: summary,
		OverallCompletionRate:   CompletionPercentage(summary.Completed, summary.Total),
		ProgressDistribution:    dist,
		TotalMessages:           totalMessages,
		RecentUsers:             recent,
	}, nil
}

// TraineeProgress returns one trainee's progress for instructors.
func (s *DashboardService) TraineeProgress(ctx context.Context, traineeID string) (*dto.TraineeProgressResponse, error) {
	trainee, err := s.users.FindByID(ctx, traineeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
		}
		return nil, s.internal(err, "trainee progress")
	}
	if trainee.Role != models.RoleTrainee {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "trainee not found")
	}

	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{TraineeID: traineeID})
	if err != nil {
		return nil, s.internal(err, "trainee progress")
	}
	if assignments == nil {
		assignments = []models.AssignmentDetail{}
	}

	return &dto.TraineeProgressResponse{
		Trainee:         *trainee,
		ProgressSummary: SummarizeProgress(assignmentsOf(assignments)),
		Assignments:     assignments,
	}, nil
}

func (s *DashboardService) internal(err error, dashboard string) error {
	s.logger.Error("dashboard load failed", zap.String("dashboard", dashboard), zap.Error(err))
	return appErrors.Internal(err, "failed to load dashboard")
}
