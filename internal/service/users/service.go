// Package users manages farm accounts: invitations, role and shed
// assignments, and each user's own settings.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/cache"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/repository"
	"github.com/mamadbah2/farmops/internal/validation"
	"github.com/mamadbah2/farmops/pkg/clients/platform"
)

var (
	// ErrForbidden is returned to callers who are not managers.
	ErrForbidden = errors.New("only managers can manage users")
	// ErrSelfDelete is returned when a manager tries to delete their own account.
	ErrSelfDelete = errors.New("you cannot delete your own account")
)

// InviteInput is the invite form.
type InviteInput struct {
	Email        string      `json:"email" validate:"required,email"`
	FullName     string      `json:"full_name" validate:"required,max=100"`
	Role         models.Role `json:"role" validate:"role"`
	AssignedShed string      `json:"assigned_shed" validate:"max=50"`
}

// UpdateInput changes a user's role, shed or status.
type UpdateInput struct {
	Role         models.Role       `json:"role" validate:"role"`
	AssignedShed string            `json:"assigned_shed" validate:"max=50"`
	Status       models.UserStatus `json:"status" validate:"required,oneof=Active Inactive"`
}

// ProfileInput is the own-profile form on the settings page.
type ProfileInput struct {
	FullName string `json:"full_name" validate:"required,max=100"`
}

// Settings is the settings page view.
type Settings struct {
	Profile      models.Profile  `json:"profile"`
	Farm         FarmSettings    `json:"farm"`
	Integrations map[string]bool `json:"integrations"`
}

// FarmSettings are the read-only farm-wide parameters.
type FarmSettings struct {
	BirdStartCount int    `json:"bird_start_count"`
	Timezone       string `json:"timezone"`
}

// Service manages user accounts.
type Service struct {
	profiles     repository.Table[models.Profile]
	platform     platform.Client
	validator    *validation.Validator
	views        cache.Store
	farm         FarmSettings
	integrations map[string]bool
	logger       *zap.Logger
	now          func() time.Time
}

// NewService wires the users service. integrations lists which optional
// features are switched on, keyed by name.
func NewService(backend repository.Backend, client platform.Client, views cache.Store, farm FarmSettings, integrations map[string]bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if views == nil {
		views = cache.Nop{}
	}
	if integrations == nil {
		integrations = map[string]bool{}
	}
	return &Service{
		profiles:     repository.NewTable[models.Profile](backend, models.TableProfiles),
		platform:     client,
		validator:    validation.New(),
		views:        views,
		farm:         farm,
		integrations: integrations,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns every profile ordered by name.
func (s *Service) List(ctx context.Context, actor auth.Identity) ([]models.Profile, error) {
	if !actor.Is(models.RoleManager) {
		return nil, ErrForbidden
	}
	if v, ok := s.views.Get(cache.RouteUsers); ok {
		if rows, ok := v.([]models.Profile); ok {
			return rows, nil
		}
	}
	gen := s.views.Generation(cache.RouteUsers)

	rows, err := s.profiles.List(ctx, repository.Query{}.OrderBy("full_name", false))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Profile{}
	}
	s.views.SetIfCurrent(cache.RouteUsers, gen, rows)
	return rows, nil
}

// Invite sends a platform invitation e-mail and creates the matching profile.
// If the profile cannot be written the platform account is removed again.
func (s *Service) Invite(ctx context.Context, actor auth.Identity, in InviteInput) (models.Profile, error) {
	if !actor.Is(models.RoleManager) {
		return models.Profile{}, ErrForbidden
	}
	if err := s.validator.Struct(in); err != nil {
		return models.Profile{}, err
	}
	if err := requireShed(in.Role, in.AssignedShed); err != nil {
		return models.Profile{}, err
	}
	if s.platform == nil {
		return models.Profile{}, platform.ErrAdminDisabled
	}

	user, err := s.platform.InviteUserByEmail(ctx, in.Email, map[string]any{
		"full_name": in.FullName,
		"role":      string(in.Role),
	})
	if err != nil {
		return models.Profile{}, fmt.Errorf("invite %s: %w", in.Email, err)
	}

	profile := models.Profile{
		ID:           user.ID,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		AssignedShed: in.AssignedShed,
		Status:       models.StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.profiles.Insert(ctx, &profile); err != nil {
		s.logger.Error("profile insert failed after invite", zap.String("user_id", user.ID), zap.Error(err))
		if derr := s.platform.DeleteUser(ctx, user.ID); derr != nil {
			s.logger.Error("rollback of invited user failed", zap.String("user_id", user.ID), zap.Error(derr))
		}
		return models.Profile{}, err
	}

	s.views.Invalidate(cache.RouteUsers)
	s.logger.Info("user invited", zap.String("user_id", user.ID), zap.String("role", string(in.Role)))
	return profile, nil
}

// Update changes another user's role, shed and status.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id string, in UpdateInput) (models.Profile, error) {
	if !actor.Is(models.RoleManager) {
		return models.Profile{}, ErrForbidden
	}
	if err := s.validator.Struct(in); err != nil {
		return models.Profile{}, err
	}
	if err := requireShed(in.Role, in.AssignedShed); err != nil {
		return models.Profile{}, err
	}

	if err := s.profiles.Update(ctx, id, map[string]any{
		"role":          string(in.Role),
		"assigned_shed": in.AssignedShed,
		"status":        string(in.Status),
	}); err != nil {
		return models.Profile{}, err
	}
	s.views.Invalidate(cache.RouteUsers)
	return s.profiles.Get(ctx, id)
}

// Delete removes the platform account and then its profile.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if !actor.Is(models.RoleManager) {
		return ErrForbidden
	}
	if actor.UserID == id {
		return ErrSelfDelete
	}
	if _, err := s.profiles.Get(ctx, id); err != nil {
		return err
	}
	if s.platform == nil {
		return platform.ErrAdminDisabled
	}

	if err := s.platform.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete platform user %s: %w", id, err)
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return err
	}
	s.views.Invalidate(cache.RouteUsers)
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.UserID))
	return nil
}

// Settings returns the caller's profile and the farm parameters.
func (s *Service) Settings(ctx context.Context, actor auth.Identity) (Settings, error) {
	profile, err := s.profiles.Get(ctx, actor.UserID)
	if err != nil {
		return Settings{}, err
	}
	integrations := make(map[string]bool, len(s.integrations))
	for k, v := range s.integrations {
		integrations[k] = v
	}
	return Settings{Profile: profile, Farm: s.farm, Integrations: integrations}, nil
}

// UpdateOwnProfile lets any user change their display name.
func (s *Service) UpdateOwnProfile(ctx context.Context, actor auth.Identity, in ProfileInput) (models.Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return models.Profile{}, err
	}
	if err := s.profiles.Update(ctx, actor.UserID, map[string]any{"full_name": in.FullName}); err != nil {
		return models.Profile{}, err
	}
	s.views.Invalidate(cache.RouteUsers)
	return s.profiles.Get(ctx, actor.UserID)
}

func requireShed(role models.Role, shed string) error {
	if role == models.RoleWorker && shed == "" {
		return validation.Field("assigned_shed", "is required for workers")
	}
	return nil
}
