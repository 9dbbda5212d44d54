package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/database"
)

const moduleSelect = `SELECT m.id, m.title, m.description, m.content, m.duration_minutes, m.created_by, COALESCE(u.username, '') AS creator_username, m.is_active, m.created_at, m.updated_at FROM training_modules m LEFT JOIN users u ON u.id = m.created_by`

// ModuleRepository manages persistence for training modules.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository instantiates the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// List returns modules ordered by newest first.
func (r *ModuleRepository) List(ctx context.Context, filter models.ModuleFilter) ([]models.TrainingModule, error) {
	var conditions []string
	var args []interface{}

	if !filter.IncludeInactive {
		conditions = append(conditions, "m.is_active = TRUE")
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("m.created_by = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(m.title) LIKE $%d OR LOWER(m.description) LIKE $%d)", len(args), len(args)))
	}

	query := moduleSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.created_at DESC"

	var modules []models.TrainingModule
	if err := r.db.SelectContext(ctx, &modules, query, args...); err != nil {
		if database.IsInvalidInput(err) {
			return []models.TrainingModule{}, nil
		}
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// FindByID fetches a module by id.
func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*models.TrainingModule, error) {
	var module models.TrainingModule
	if err := r.db.GetContext(ctx, &module, moduleSelect+" WHERE m.id = $1", id); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get module: %w", err)
	}
	return &module, nil
}

// Create inserts a new module.
func (r *ModuleRepository) Create(ctx context.Context, module *models.TrainingModule) error {
	if module.ID == "" {
		module.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.UpdatedAt = now

	const query = `INSERT INTO training_modules (id, title, description, content, duration_minutes, created_by, is_active, created_at, updated_at) VALUES (:id, :title, :description, :content, :duration_minutes, :created_by, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("create module: %w", err)
	}
	return nil
}

// Update modifies the editable module fields.
func (r *ModuleRepository) Update(ctx context.Context, module *models.TrainingModule) error {
	module.UpdatedAt = time.Now().UTC()
	const query = `UPDATE training_modules SET title = :title, description = :description, content = :content, duration_minutes = :duration_minutes, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, module); err != nil {
		return fmt.Errorf("update module: %w", err)
	}
	return nil
}

// Delete removes the module together with its assignments.
func (r *ModuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM training_modules WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete module: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Count returns total, active and inactive module counts.
func (r *ModuleRepository) Count(ctx context.Context) (total, active int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active FROM training_modules`
	var row struct {
		Total  int `db:"total"`
		Active int `db:"active"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("count modules: %w", err)
	}
	return row.Total, row.Active, nil
}
