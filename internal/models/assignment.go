package models

import "time"

// Assignment links one trainee to one module. (trainee_id, module_id) is unique.
type Assignment struct {
	ID          string     `db:"id" json:"id"`
	TraineeID   string     `db:"trainee_id" json:"trainee_id"`
	ModuleID    string     `db:"module_id" json:"module_id"`
	AssignedBy  *string    `db:"assigned_by" json:"assigned_by,omitempty"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	AssignedAt  time.Time  `db:"assigned_at" json:"assigned_at"`
}

// AssignmentDetail enriches an assignment with the joined trainee and module.
type AssignmentDetail struct {
	Assignment
	TraineeUsername string `db:"trainee_username" json:"trainee_username"`
	ModuleTitle     string `db:"module_title" json:"module_title"`
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	ModuleID  string
	TraineeID string
}

// CreateAssignmentRequest assigns one module to one trainee.
type CreateAssignmentRequest struct {
	TraineeID string `json:"trainee_id" validate:"required"`
	ModuleID  string `json:"module_id" validate:"required"`
}

// BulkAssignRequest assigns one module to many trainees.
type BulkAssignRequest struct {
	TraineeIDs []string `json:"trainee_ids" validate:"required,min=1,dive,required"`
}

// UpdateAssignmentRequest lets instructors toggle completion.
type UpdateAssignmentRequest struct {
	IsCompleted *bool `json:"is_completed" validate:"required"`
}

// AssignmentStatusSummary counts assignments by lifecycle state.
type AssignmentStatusSummary struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	NotStarted int `json:"not_started"`
	Total      int `json:"total"`
}
