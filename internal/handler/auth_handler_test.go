package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trainersamay-api/internal/models"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

type fakeAuthSrv struct {
	lastLogin   models.LoginRequest
	loggedOut   string
	logoutActor models.Actor
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}}, nil
}

func (f *fakeAuthSrv) Refresh(context.Context, models.RefreshTokenRequest) (*models.TokenPair, error) {
	return &models.TokenPair{AccessToken: "next"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, actor models.Actor, refreshToken string) error {
	f.logoutActor = actor
	f.loggedOut = refreshToken
	return nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Name: "Asha", Role: models.RoleTrainer}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email": "a@b.co", "password": "secret"}`, nil)
	c.Request.Header.Set("User-Agent", "test-agent")
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-agent", srv.lastLogin.UserAgent)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"accessToken":"access"`)

	c, rec = newTestContext(http.MethodPost, "/auth/login", `{"email": "a@b.co", "password": "wrong"}`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/auth/login", `not json`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLogoutAndMe(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := NewAuthHandler(srv)

	c, _ := newTestContext(http.MethodPost, "/auth/logout", `{"refreshToken": "refresh"}`, trainerClaims("t1"))
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "refresh", srv.loggedOut)
	assert.Equal(t, "t1", srv.logoutActor.UserID)

	c, rec := newTestContext(http.MethodGet, "/auth/me", nil, trainerClaims("t1"))
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"id":"t1"`)

	c, rec = newTestContext(http.MethodGet, "/auth/me", nil, nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
