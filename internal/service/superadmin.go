package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type superAdminRepository interface {
	identityChecker
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// SuperAdminRequest carries the credentials of the bootstrap account.
type SuperAdminRequest struct {
	Username string `validate:"required,min=3,max=150"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6"`
}

// EnsureSuperAdmin creates the super-admin account unless the username is
// already taken. created is false when an account already existed.
func EnsureSuperAdmin(ctx context.Context, repo superAdminRepository, validate *validator.Validate, req SuperAdminRequest) (*models.User, bool, error) {
	if validate == nil {
		validate = validator.New()
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, false, appErrors.Validation(err, "invalid super-admin credentials")
	}

	existing, err := repo.FindByUsername(ctx, req.Username)
	switch {
	case err == nil:
		if existing.Role != models.RoleSuperAdmin {
			return nil, false, appErrors.Clone(appErrors.ErrDuplicateIdentity, "username belongs to a non super-admin account")
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, appErrors.Internal(err, "failed to look up user")
	}

	if err := ensureUniqueIdentity(ctx, repo, "", req.Email, ""); err != nil {
		return nil, false, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, false, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, false, appErrors.Internal(err, "failed to create super-admin")
	}
	return user, true, nil
}
