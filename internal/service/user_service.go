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
	"github.com/noah-isme/training-api/pkg/database"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userTokenRevoker interface {
	RevokeUserTokens(ctx context.Context, userID string)
}

// UserService handles profile and super-admin user management workflows.
type UserService struct {
	repo      userRepository
	revoker   userTokenRevoker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, revoker userTokenRevoker, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, revoker: revoker, validator: validate, logger: logger}
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.load(ctx, userID)
}

// UpdateProfile applies a partial update to the caller's own account.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest, meta models.RequestMeta) (*models.User, error) {
	if req.Username != nil {
		trimmed := strings.TrimSpace(*req.Username)
		req.Username = &trimmed
	}
	if req.Email != nil {
		normalised := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &normalised
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid profile payload")
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	var username, email string
	if req.Username != nil && *req.Username != user.Username {
		username = *req.Username
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		email = *req.Email
	}
	if err := ensureUniqueIdentity(ctx, s.repo, username, email, user.ID); err != nil {
		return nil, err
	}

	old := map[string]interface{}{"username": user.Username, "email": user.Email, "first_name": user.FirstName, "last_name": user.LastName}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    userID,
		action:     models.AuditActionProfileUpdate,
		resource:   "users",
		resourceID: userID,
		oldValues:  old,
		newValues:  map[string]interface{}{"username": user.Username, "email": user.Email, "first_name": user.FirstName, "last_name": user.LastName},
		meta:       meta,
	})
	return user, nil
}

// List returns paginated instructor and trainee accounts.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter.ExcludeSuperuser = true
	if filter.Role != nil && *filter.Role == models.RoleSuperAdmin {
		return []models.User{}, &models.Pagination{Page: 1, PageSize: normalisePageSize(filter.PageSize)}, nil
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   normalisePageSize(filter.PageSize),
		TotalCount: total,
	}

	return users, pagination, nil
}

func normalisePageSize(size int) int {
	if size <= 0 || size > 100 {
		return 20
	}
	return size
}

// Get returns a managed (non super-admin) user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.loadManaged(ctx, id)
}

// Create provisions an instructor or trainee account.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid create user payload")
	}

	if err := ensureUniqueIdentity(ctx, s.repo, req.Username, req.Email, ""); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
		IsActive:     active,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrDuplicateIdentity, "username or email already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    actorID,
		action:     models.AuditActionUserCreate,
		resource:   "users",
		resourceID: user.ID,
		newValues:  map[string]interface{}{"id": user.ID, "username": user.Username, "role": user.Role},
		meta:       meta,
	})

	return user, nil
}

// Update modifies a managed user's contact details and activity.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string, meta models.RequestMeta) (*models.User, error) {
	if req.Email != nil {
		normalised := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &normalised
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid update payload")
	}

	user, err := s.loadManaged(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		if err := ensureUniqueIdentity(ctx, s.repo, "", *req.Email, user.ID); err != nil {
			return nil, err
		}
	}

	old := map[string]interface{}{"email": user.Email, "is_active": user.IsActive}
	wasActive := user.IsActive

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	if wasActive && !user.IsActive && s.revoker != nil {
		s.revoker.RevokeUserTokens(ctx, user.ID)
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    actorID,
		action:     models.AuditActionUserUpdate,
		resource:   "users",
		resourceID: user.ID,
		oldValues:  old,
		newValues:  map[string]interface{}{"email": user.Email, "is_active": user.IsActive},
		meta:       meta,
	})

	return user, nil
}

// Delete hard-deletes a managed user with cascades.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.RequestMeta) error {
	user, err := s.loadManaged(ctx, id)
	if err != nil {
		return err
	}
	return deleteUser(ctx, s.repo, s.revoker, s.logger, user, actorID, models.AuditActionUserDelete, meta)
}

type userDeleter interface {
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func deleteUser(ctx context.Context, repo userDeleter, revoker userTokenRevoker, logger *zap.Logger, user *models.User, actorID, action string, meta models.RequestMeta) error {
	if err := repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}

	if revoker != nil {
		revoker.RevokeUserTokens(ctx, user.ID)
	}

	recordAudit(ctx, repo, logger, auditEntry{
		actorID:    actorID,
		action:     action,
		resource:   "users",
		resourceID: user.ID,
		oldValues:  map[string]interface{}{"username": user.Username, "role": user.Role},
		meta:       meta,
	})
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) loadManaged(ctx context.Context, id string) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "super-admin accounts cannot be managed")
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	if err := s.repo.Update(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return appErrors.Clone(appErrors.ErrDuplicateIdentity, "username or email already exists")
		}
		return appErrors.Internal(err, "failed to update user")
	}
	return nil
}
