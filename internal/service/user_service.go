package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/pkg/config"
	appErrors "github.com/noah-isme/trainersamay-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListTrainers(ctx context.Context) ([]models.User, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Trainers lists active trainers.
func (s *UserService) Trainers(ctx context.Context) ([]models.UserInfo, error) {
	trainers, err := s.repo.ListTrainers(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list trainers")
	}
	out := make([]models.UserInfo, 0, len(trainers))
	for i := range trainers {
		out = append(out, models.InfoFromUser(&trainers[i]))
	}
	return out, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to get user")
	}
	return user, nil
}

// Create registers a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, actor models.Actor, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: string(hash),
		Role:         req.Role,
		Avatar:       req.Avatar,
		Active:       true,
		TrainerProfile: models.TrainerProfile{
			Specialties:     strings.TrimSpace(req.Specialties),
			Bio:             strings.TrimSpace(req.Bio),
			ExperienceYears: req.ExperienceYears,
		},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, internalError(err, "failed to create user")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserCreate, "user", user.ID, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})
	return user, nil
}

// Update patches a user profile.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil && models.NormalizeEmail(*req.Email) != user.Email {
		if err := s.ensureEmailFree(ctx, *req.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = models.NormalizeEmail(*req.Email)
	}
	if req.Role != nil {
		if actor.UserID == user.ID && *req.Role != user.Role {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
		}
		user.Role = *req.Role
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	models.UpdateProfileRequest{
		Specialties:     req.Specialties,
		Bio:             req.Bio,
		ExperienceYears: req.ExperienceYears,
	}.Apply(&user.TrainerProfile)

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserUpdate, "user", user.ID, req)
	return user, nil
}

// UpdateProfile edits a trainer's profile. Admins may edit any trainer,
// trainers only themselves.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, id string, req models.UpdateProfileRequest) (*models.UserInfo, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit another trainer's profile")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleTrainer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only trainers have a profile")
	}

	req.Apply(&user.TrainerProfile)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update profile")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserUpdate, "trainer_profile", user.ID, req)
	info := models.InfoFromUser(user)
	return &info, nil
}

// Deactivate soft deletes a user and revokes their sessions.
func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate yourself")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return internalError(err, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke tokens of deactivated user", zap.String("user_id", id), zap.Error(err))
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionUserDeactivate, "user", id, nil)
	return nil
}

// ChangePassword verifies the current password of id and stores a new one.
// Admins changing another user's password still have to supply it.
func (s *UserService) ChangePassword(ctx context.Context, actor models.Actor, id string, req models.ChangePasswordRequest) error {
	if !actor.CanActFor(id) {
		return appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		if req.NewPassword != req.ConfirmPassword {
			return appErrors.Clone(appErrors.ErrValidation, "new passwords do not match")
		}
		return validationError(err, "invalid change password payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError(err, "failed to hash password")
	}
	now := time.Now().UTC()
	if err := s.repo.UpdatePassword(ctx, id, string(hash), now); err != nil {
		return internalError(err, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id, now); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPasswordChange, "user", id, nil)
	return nil
}

// EnsureAdmin creates the configured admin when no active admin exists.
// It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, seed config.SeedAdminConfig) (*models.User, bool, error) {
	count, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, false, internalError(err, "failed to count admins")
	}
	if count > 0 {
		return nil, false, nil
	}
	user, err := s.Create(ctx, models.Actor{}, models.CreateUserRequest{
		Name:     seed.Name,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     models.RoleAdmin,
		Avatar:   seed.Avatar,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	case err == nil, errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return internalError(err, "failed to check email")
	}
}
