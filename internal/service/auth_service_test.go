package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/trainersamay-api/internal/models"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

func newTestAuthService(t *testing.T, users ...*models.User) (*AuthService, *mockUserRepo, *mockAudit) {
	t.Helper()
	repo := newMockUserRepo(users...)
	audit := &mockAudit{}
	svc := NewAuthService(repo, audit, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
	return svc, repo, audit
}

func userWithPassword(t *testing.T, id, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: id, Name: "User " + id, Email: email, PasswordHash: string(hash), Role: role, Active: true}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, repo, audit := newTestAuthService(t, userWithPassword(t, "123", "user@example.com", "password", models.RoleAdmin))

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "User@Example.com", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "123", res.User.ID)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())

	_, stored := repo.tokens[res.RefreshToken]
	assert.False(t, stored, "refresh tokens are stored hashed")
	assert.Contains(t, repo.tokens, hashToken(res.RefreshToken))

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestAuthServiceLoginRejects(t *testing.T) {
	inactive := userWithPassword(t, "2", "gone@example.com", "password", models.RoleTrainer)
	inactive.Active = false
	svc, _, _ := newTestAuthService(t,
		userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer),
		inactive,
	)

	tests := []struct {
		name string
		req  models.LoginRequest
		want *appErrors.Error
	}{
		{"wrong password", models.LoginRequest{Email: "user@example.com", Password: "nope"}, appErrors.ErrInvalidCredentials},
		{"unknown email", models.LoginRequest{Email: "who@example.com", Password: "password"}, appErrors.ErrInvalidCredentials},
		{"inactive", models.LoginRequest{Email: "gone@example.com", Password: "password"}, appErrors.ErrInactiveAccount},
		{"invalid payload", models.LoginRequest{Email: "not-an-email"}, appErrors.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t, userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer))
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRefreshExpired(t *testing.T) {
	svc, _, _ := newTestAuthService(t, userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer))
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	_, err = svc.Refresh(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo, audit := newTestAuthService(t, userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer))
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	err = svc.Logout(ctx, trainerActor("someone-else"), login.RefreshToken)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.Logout(ctx, trainerActor("1"), login.RefreshToken))
	assert.NotNil(t, repo.tokens[hashToken(login.RefreshToken)].RevokedAt)
	assert.Contains(t, audit.actions(), models.AuditActionLogout)
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _, _ := newTestAuthService(t, userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer))
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	other := NewAuthService(newMockUserRepo(), nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(login.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceMe(t *testing.T) {
	svc, _, _ := newTestAuthService(t, userWithPassword(t, "1", "user@example.com", "password", models.RoleTrainer))

	info, err := svc.Me(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrainer, info.Role)

	_, err = svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
