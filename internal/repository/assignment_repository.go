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

const (
	assignmentColumns = `id, trainee_id, module_id, assigned_by, is_completed, completed_at, assigned_at`

	assignmentDetailSelect = `SELECT a.id, a.trainee_id, a.module_id, a.assigned_by, a.is_completed, a.completed_at, a.assigned_at, u.username AS trainee_username, m.title AS module_title FROM module_assignments a JOIN users u ON u.id = a.trainee_id JOIN training_modules m ON m.id = a.module_id`

	assignmentPairConstraint = "module_assignments_trainee_module_key"
)

// AssignmentRepository persists the trainee/module ledger.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts the assignment unless the (trainee, module) pair already
// exists, in which case a is overwritten with the stored row and created is
// false.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}

	const query = `INSERT INTO module_assignments (id, trainee_id, module_id, assigned_by, is_completed, completed_at, assigned_at) VALUES (:id, :trainee_id, :module_id, :assigned_by, :is_completed, :completed_at, :assigned_at) ON CONFLICT (trainee_id, module_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		if !database.IsUniqueViolation(err, assignmentPairConstraint) {
			return false, fmt.Errorf("create assignment: %w", err)
		}
		return false, r.loadExisting(ctx, a)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create assignment rows affected: %w", err)
	}
	if affected == 1 {
		return true, nil
	}
	return false, r.loadExisting(ctx, a)
}

func (r *AssignmentRepository) loadExisting(ctx context.Context, a *models.Assignment) error {
	existing, err := r.FindByPair(ctx, a.TraineeID, a.ModuleID)
	if err != nil {
		return fmt.Errorf("load existing assignment: %w", err)
	}
	*a = *existing
	return nil
}

// FindByPair fetches the assignment for a trainee and module.
func (r *AssignmentRepository) FindByPair(ctx context.Context, traineeID, moduleID string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM module_assignments WHERE trainee_id = $1 AND module_id = $2", assignmentColumns)
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, traineeID, moduleID); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get assignment by pair: %w", err)
	}
	return &a, nil
}

// FindDetail fetches one assignment with trainee and module names.
func (r *AssignmentRepository) FindDetail(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, assignmentDetailSelect+" WHERE a.id = $1", id); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get assignment detail: %w", err)
	}
	return &detail, nil
}

// List returns assignments matching filter ordered by assignment time.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.ModuleID != "" {
		args = append(args, filter.ModuleID)
		conditions = append(conditions, fmt.Sprintf("a.module_id = $%d", len(args)))
	}
	if filter.TraineeID != "" {
		args = append(args, filter.TraineeID)
		conditions = append(conditions, fmt.Sprintf("a.trainee_id = $%d", len(args)))
	}

	query := assignmentDetailSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.assigned_at ASC, a.id ASC"

	var items []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		if database.IsInvalidInput(err) {
			return []models.AssignmentDetail{}, nil
		}
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

// MarkCompleted flags the trainee's own assignment as completed. The first
// completion time is kept on repeated calls.
func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id, traineeID string, at time.Time) (*models.Assignment, error) {
	query := fmt.Sprintf(`UPDATE module_assignments SET is_completed = TRUE, completed_at = COALESCE(completed_at, $3) WHERE id = $1 AND trainee_id = $2 RETURNING %s`, assignmentColumns)
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id, traineeID, at); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("mark assignment completed: %w", err)
	}
	return &a, nil
}

// SetCompletion sets the completion flag. Reopening clears completed_at.
func (r *AssignmentRepository) SetCompletion(ctx context.Context, id string, completed bool, at time.Time) (*models.Assignment, error) {
	var query string
	args := []interface{}{id}
	if completed {
		query = `UPDATE module_assignments SET is_completed = TRUE, completed_at = COALESCE(completed_at, $2) WHERE id = $1 RETURNING ` + assignmentColumns
		args = append(args, at)
	} else {
		query = `UPDATE module_assignments SET is_completed = FALSE, completed_at = NULL WHERE id = $1 RETURNING ` + assignmentColumns
	}

	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("set assignment completion: %w", err)
	}
	return &a, nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM module_assignments WHERE id = $1`, id)
	if err != nil {
		if isNotFound(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete assignment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
