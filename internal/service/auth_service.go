package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/training-api/internal/models"
	"github.com/noah-isme/training-api/pkg/database"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type tokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error
	RevokedBefore(ctx context.Context, userID string) (time.Time, error)
}

// Token timestamps carry milliseconds so a revocation cutoff also rejects
// tokens issued earlier within the same second.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	revoker   tokenRevoker
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, revoker tokenRevoker, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	return &AuthService{
		repo:      repo,
		revoker:   revoker,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a self-service account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = models.RoleTrainee
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid registration payload")
	}

	if err := ensureUniqueIdentity(ctx, s.repo, req.Username, req.Email, ""); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrDuplicateIdentity, "username or email already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    user.ID,
		action:     models.AuditActionRegister,
		resource:   "auth",
		resourceID: user.ID,
		newValues:  map[string]interface{}{"username": user.Username, "role": user.Role},
		meta:       models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent},
	})

	return s.issue(user)
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLogin(LoginResultFailure)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLogin(LoginResultFailure)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	if !user.IsActive {
		s.metrics.RecordLogin(LoginResultFailure)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "user account is disabled")
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(LoginResultSuccess)

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    user.ID,
		action:     models.AuditActionLogin,
		resource:   "auth",
		resourceID: user.ID,
		newValues:  map[string]interface{}{"status": "success"},
		meta:       models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent},
	})

	return res, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}

	ttl := s.config.AccessTokenExpiry
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if s.revoker != nil && claims.ID != "" && ttl > 0 {
		if err := s.revoker.RevokeToken(ctx, claims.ID, ttl); err != nil {
			return appErrors.Internal(err, "failed to revoke token")
		}
	}

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    claims.UserID,
		action:     models.AuditActionLogout,
		resource:   "auth",
		resourceID: claims.UserID,
		newValues:  map[string]interface{}{"status": "logout"},
		meta:       meta,
	})
	return nil
}

// ChangePassword replaces the caller's password after verifying the old one.
// Tokens issued before the change stop validating.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid old password")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.repo.UpdatePassword(ctx, userID, hash, now); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}

	s.revokeUserTokens(ctx, userID, now)

	recordAudit(ctx, s.repo, s.logger, auditEntry{
		actorID:    userID,
		action:     models.AuditActionPasswordChange,
		resource:   "auth",
		resourceID: userID,
		newValues:  map[string]interface{}{"status": "changed"},
		meta:       meta,
	})
	return nil
}

// RevokeUserTokens rejects every token issued to userID so far. Used when an
// account is deactivated or removed.
func (s *AuthService) RevokeUserTokens(ctx context.Context, userID string) {
	s.revokeUserTokens(ctx, userID, s.now())
}

func (s *AuthService) revokeUserTokens(ctx context.Context, userID string, at time.Time) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeUser(ctx, userID, at, s.config.AccessTokenExpiry); err != nil {
		s.logger.Warn("failed to revoke user tokens", zap.String("user_id", userID), zap.Error(err))
	}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithIssuedAt(), jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, "token has expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "invalid token claims")
	}

	if err := s.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *AuthService) checkRevocation(ctx context.Context, claims *models.JWTClaims) error {
	if s.revoker == nil {
		return nil
	}

	revoked, err := s.revoker.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to check token revocation")
	}
	if revoked {
		return appErrors.Clone(appErrors.ErrTokenInvalid, "token has been revoked")
	}

	cutoff, err := s.revoker.RevokedBefore(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil
		}
		return appErrors.Internal(err, "failed to check token revocation")
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(cutoff) {
		return appErrors.Clone(appErrors.ErrTokenInvalid, "token has been revoked")
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	return &models.AuthResponse{
		User:        *user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

type identityChecker interface {
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
}

// ensureUniqueIdentity fails with DUPLICATE_IDENTITY when another account
// already uses username or email. Empty values are skipped.
func ensureUniqueIdentity(ctx context.Context, repo identityChecker, username, email, excludeID string) error {
	if username != "" {
		taken, err := repo.ExistsByUsername(ctx, username, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check username uniqueness")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrDuplicateIdentity, "username already exists")
		}
	}
	if email != "" {
		taken, err := repo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check email uniqueness")
		}
		if taken {
			return appErrors.Clone(appErrors.ErrDuplicateIdentity, "email already exists")
		}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash password")
	}
	return string(hash), nil
}
