package dto

import (
	"time"

	"github.com/noah-isme/training-api/internal/models"
)

// ProgressSummary reports completion counts for a single trainee.
type ProgressSummary struct {
	TotalAssigned        int     `json:"total_assigned"`
	Completed            int     `json:"completed"`
	Pending              int     `json:"pending"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// AssignedModule is one entry of the trainee dashboard.
type AssignedModule struct {
	ID          string                `json:"id"`
	Module      models.TrainingModule `json:"module"`
	IsCompleted bool                  `json:"is_completed"`
	AssignedAt  time.Time             `json:"assigned_at"`
	CompletedAt *time.Time            `json:"completed_at"`
}

// TraineeDashboardResponse is the payload behind GET /dashboard/trainee.
type TraineeDashboardResponse struct {
	User            models.User      `json:"user"`
	Progress        ProgressSummary  `json:"progress"`
	AssignedModules []AssignedModule `json:"assigned_modules"`
}

// TraineeStat is the per-trainee line of the instructor dashboard.
type TraineeStat struct {
	ID                   string `json:"id"`
	Username             string `json:"username"`
	CompletionPercentage int    `json:"completion_percentage"`
}

// ModuleStat is the per-module line of the instructor dashboard.
type ModuleStat struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	AssignedCount  int     `json:"assigned_count"`
	CompletedCount int     `json:"completed_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// ProgressDistribution maps a bucket (0, 25, 50, 75, 100) to a trainee count.
type ProgressDistribution map[int]int

// InstructorDashboardResponse is the payload behind GET /dashboard/instructor.
type InstructorDashboardResponse struct {
	TotalTrainees           int                            `json:"total_trainees"`
	TotalModules            int                            `json:"total_modules"`
	AssignedModulesCount    int                            `json:"assigned_modules_count"`
	UnassignedModulesCount  int                            `json:"unassigned_modules_count"`
	Trainees                []TraineeStat                  `json:"trainees"`
	Modules                 []ModuleStat                   `json:"modules"`
	ProgressDistribution    ProgressDistribution           `json:"progress_distribution"`
	AssignmentStatusSummary models.AssignmentStatusSummary `json:"assignment_status_summary"`
}

// ModuleTotals counts modules by activity.
type ModuleTotals struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// SuperAdminDashboardResponse is the payload behind GET /dashboard/superadmin.
type SuperAdminDashboardResponse struct {
	Users                   []models.RoleCount             `json:"users"`
	TotalUsers              int                            `json:"total_users"`
	Modules                 ModuleTotals                   `json:"modules"`
	AssignmentStatusSummary models.AssignmentStatusSummary `json:"assignment_status_summary"`
	OverallCompletionRate   float64                        `json:"overall_completion_rate"`
	ProgressDistribution    ProgressDistribution           `json:"progress_distribution"`
	TotalMessages           int                            `json:"total_messages"`
	RecentUsers             []models.User                  `json:"recent_users"`
}

// TraineeProgressResponse is the instructor view of one trainee.
type TraineeProgressResponse struct {
	Trainee models.User `json:"trainee"`
	ProgressSummary
	Assignments []models.AssignmentDetail `json:"assignments"`
}
