package models

import "time"

// TrainingModule is a unit of training content authored by an instructor.
type TrainingModule struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Content         string    `db:"content" json:"content"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	CreatorUsername string    `db:"creator_username" json:"created_by_username,omitempty"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ModuleFilter narrows module listings. Inactive modules are hidden unless
// IncludeInactive is set.
type ModuleFilter struct {
	IncludeInactive bool
	CreatedBy       string
	Search          string
}

// CreateModuleRequest captures the author-supplied module fields.
type CreateModuleRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	Content         string `json:"content"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
}

// UpdateModuleRequest is a partial module update.
type UpdateModuleRequest struct {
	Title           *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description     *string `json:"description"`
	Content         *string `json:"content"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitnil,gte=0"`
	IsActive        *bool   `json:"is_active"`
}
