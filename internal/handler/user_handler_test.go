package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trainersamay-api/internal/models"
)

type fakeUserSrv struct {
	lastFilter models.UserFilter
	created    models.CreateUserRequest
	changedFor string
	profile    models.UpdateProfileRequest
}

func (f *fakeUserSrv) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.lastFilter = filter
	return []models.User{{ID: "u1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeUserSrv) Trainers(context.Context) ([]models.UserInfo, error) {
	return []models.UserInfo{{ID: "t1", Role: models.RoleTrainer}}, nil
}

func (f *fakeUserSrv) Get(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Create(_ context.Context, _ models.Actor, req models.CreateUserRequest) (*models.User, error) {
	f.created = req
	return &models.User{ID: "new", Email: req.Email}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, _ models.Actor, id string, _ models.UpdateUserRequest) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Deactivate(context.Context, models.Actor, string) error { return nil }

func (f *fakeUserSrv) ChangePassword(_ context.Context, _ models.Actor, id string, _ models.ChangePasswordRequest) error {
	f.changedFor = id
	return nil
}

func (f *fakeUserSrv) UpdateProfile(_ context.Context, _ models.Actor, id string, req models.UpdateProfileRequest) (*models.UserInfo, error) {
	f.profile = req
	profile := models.TrainerProfile{}
	req.Apply(&profile)
	return &models.UserInfo{ID: id, Role: models.RoleTrainer, Profile: &profile}, nil
}

func TestUserHandlerListParsesQuery(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/users?page=2&page_size=5&role=trainer&active=true&specialty=yoga", nil, adminClaims())
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
	require.NotNil(t, srv.lastFilter.Role)
	assert.Equal(t, models.RoleTrainer, *srv.lastFilter.Role)
	require.NotNil(t, srv.lastFilter.Active)
	assert.True(t, *srv.lastFilter.Active)
	assert.Equal(t, "yoga", srv.lastFilter.Specialty)
	assert.Contains(t, rec.Body.String(), `"pagination":{"page":2,"pageSize":5,"totalCount":1}`)
}

func TestUserHandlerCreateAndChangePassword(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	body := `{"name": "Ravi", "email": "ravi@example.com", "password": "secret1", "role": "trainer"}`
	c, rec := newTestContext(http.MethodPost, "/users", body, adminClaims())
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.RoleTrainer, srv.created.Role)

	body = `{"currentPassword": "secret1", "newPassword": "secret2", "confirmPassword": "secret2"}`
	c, _ = newTestContext(http.MethodPatch, "/users/t1/change-password", body, trainerClaims("t1"))
	withParam(c, "id", "t1")
	h.ChangePassword(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "t1", srv.changedFor)
}

func TestUserHandlerUpdateProfile(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	body := `{"specialties": "Strength", "experienceYears": 4}`
	c, rec := newTestContext(http.MethodPut, "/users/t1/profile", body, trainerClaims("t1"))
	withParam(c, "id", "t1")
	h.UpdateProfile(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.profile.ExperienceYears)
	assert.Equal(t, 4, *srv.profile.ExperienceYears)
	assert.Nil(t, srv.profile.Bio)
	assert.Contains(t, rec.Body.String(), `"specialties":"Strength"`)

	c, rec = newTestContext(http.MethodPut, "/users/t1/profile", `{"experienceYears": "four"}`, trainerClaims("t1"))
	withParam(c, "id", "t1")
	h.UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
