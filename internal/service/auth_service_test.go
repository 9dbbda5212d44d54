package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

func seedPassword(t *testing.T, store *fakeStore, id, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	store.users[id].PasswordHash = string(hash)
}

func TestAuthServiceRegisterDefaultsToTrainee(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(store)

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:  "  newbie ",
		Email:     "NewBie@Example.com",
		Password:  "secret1",
		FirstName: "New",
		LastName:  "Bie",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainee, res.User.Role)
	assert.Equal(t, "newbie", res.User.Username)
	assert.Equal(t, "newbie@example.com", res.User.Email)
	assert.True(t, res.User.IsActive)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Contains(t, store.auditActions(), models.AuditActionRegister)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceRegisterRejectsSuperAdminRole(t *testing.T) {
	svc, _ := newTestAuthService(newFakeStore())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "boss", Email: "boss@example.com", Password: "secret1",
		FirstName: "B", LastName: "O", Role: models.RoleSuperAdmin,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRegisterDuplicateIdentity(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "taken", models.RoleTrainee, true)
	svc, _ := newTestAuthService(store)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "taken", Email: "fresh@example.com", Password: "secret1", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateIdentity)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "fresh", Email: "TAKEN@example.com", Password: "secret1", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateIdentity)
}

func TestAuthServiceRegisterUniqueViolationOnInsert(t *testing.T) {
	store := newFakeStore()
	store.createErr = &pq.Error{Code: "23505", Constraint: "users_username_key"}
	svc, _ := newTestAuthService(store)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "racer", Email: "racer@example.com", Password: "secret1", FirstName: "A", LastName: "B",
	})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateIdentity)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "ivy", models.RoleInstructor, true)
	seedPassword(t, store, "u1", "password")
	svc, _ := newTestAuthService(store)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "ivy", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, models.RoleInstructor, res.User.Role)
	assert.Contains(t, store.auditActions(), models.AuditActionLogin)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "ivy", models.RoleInstructor, true)
	store.addUser("u2", "sleepy", models.RoleTrainee, false)
	seedPassword(t, store, "u1", "password")
	seedPassword(t, store, "u2", "password")
	svc, _ := newTestAuthService(store)

	cases := []models.LoginRequest{
		{Username: "ghost", Password: "password"},
		{Username: "ivy", Password: "wrong"},
		{Username: "sleepy", Password: "password"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials, req.Username)
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ivy"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateTokenExpiredVsInvalid(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("u1", "ivy", models.RoleInstructor, true)
	svc, _ := newTestAuthService(store)

	past := time.Now().Add(-2 * time.Hour).UTC()
	svc.now = func() time.Time { return past }
	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC() }
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrTokenExpired)

	_, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)

	other := NewAuthService(store, nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "training-api"})
	fresh, err := other.generateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), fresh)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestAuthServiceValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	svc, _ := newTestAuthService(newFakeStore())

	claims := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "training-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "ivy", models.RoleInstructor, true)
	seedPassword(t, store, "u1", "password")
	svc, _ := newTestAuthService(store)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "ivy", Password: "password"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims, models.RequestMeta{}))

	_, err = svc.ValidateToken(context.Background(), res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
	assert.Contains(t, store.auditActions(), models.AuditActionLogout)
}

func TestAuthServiceChangePassword(t *testing.T) {
	store := newFakeStore()
	store.addUser("u1", "ivy", models.RoleInstructor, true)
	seedPassword(t, store, "u1", "password")
	svc, revoker := newTestAuthService(store)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpass"}, models.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "password", NewPassword: "newpass"}, models.RequestMeta{}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.users["u1"].PasswordHash), []byte("newpass")))

	_, err = revoker.RevokedBefore(context.Background(), "u1")
	assert.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "ivy", Password: "newpass"})
	require.NoError(t, err)
}

func TestAuthServiceRevokedUserTokensAreInvalid(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("u1", "ivy", models.RoleInstructor, true)
	svc, _ := newTestAuthService(store)

	issued := time.Now().Add(-10 * time.Minute).UTC()
	svc.now = func() time.Time { return issued }
	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC() }
	svc.RevokeUserTokens(context.Background(), "u1")

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestAuthServicePasswordChangeRejectsTokenFromSameSecond(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("u1", "ivy", models.RoleInstructor, true)
	seedPassword(t, store, "u1", "password")
	svc, _ := newTestAuthService(store)

	base := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { return base.Add(100 * time.Millisecond) }
	stale, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(900 * time.Millisecond) }
	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "password", NewPassword: "newpass"}, models.RequestMeta{}))

	_, err = svc.ValidateToken(context.Background(), stale)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)

	fresh, err := svc.generateAccessToken(user)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), fresh)
	assert.NoError(t, err)
}
