package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/feed"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/metrics"
	"estate-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Identity is the part of the auth provider the admin lifecycle needs.
type Identity interface {
	CreateUser(ctx context.Context, params identity.CreateUserParams) (*identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	DeleteUser(ctx context.Context, uid string) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type Service struct {
	DB       *gorm.DB
	Identity Identity
	Feed     feed.Notifier
	Now      func() time.Time
}

// CreateInput is the body of an admin create request.
type CreateInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,personname,max=80"`
	LastName  string `json:"lastName" validate:"omitempty,personname,max=80"`
	Role      string `json:"role" validate:"required,oneof=viewer moderator admin super-admin"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) changed(ctx context.Context) {
	if s.Feed != nil {
		s.Feed.Changed(ctx, domain.CollectionAdmins)
	}
}

// LoadActor returns the admin profile of uid, or ErrCallerNotAdmin.
func (s *Service) LoadActor(ctx context.Context, uid string) (*domain.Admin, error) {
	a, err := s.get(ctx, uid)
	if errors.Is(err, ErrAdminNotFound) {
		return nil, ErrCallerNotAdmin
	}
	return a, err
}

func (s *Service) get(ctx context.Context, uid string) (*domain.Admin, error) {
	var a domain.Admin
	err := s.DB.WithContext(ctx).Where("uid = ?", uid).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every admin, oldest first.
func (s *Service) List(ctx context.Context) ([]domain.Admin, error) {
	var out []domain.Admin
	if err := s.DB.WithContext(ctx).Order(`"createdAt" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create provisions the auth identity and then the admin profile. When the profile write fails
// the identity is deleted again so no login exists without a profile.
func (s *Service) Create(ctx context.Context, actor *domain.Admin, in CreateInput) (*domain.Admin, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if actor == nil || actor.Role != constants.SuperAdmin {
		return nil, ErrNotSuperAdmin
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := CheckCreate(actor, in.Role); err != nil {
		return nil, err
	}

	admin := &domain.Admin{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Role:      in.Role,
		CreatedBy: creatorName(actor),
	}
	user, err := s.Identity.CreateUser(ctx, identity.CreateUserParams{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: admin.DisplayName(),
	})
	if err != nil {
		return nil, err
	}
	admin.UID = user.UID

	if err := s.DB.WithContext(ctx).Create(admin).Error; err != nil {
		s.compensate(ctx, user.UID, err)
		return nil, fmt.Errorf("%w: %v", ErrProfileWriteFailed, err)
	}
	log.Info().Str("uid", admin.UID).Str("role", admin.Role).Str("created_by", actor.UID).Msg("admin created")
	s.changed(ctx)
	return admin, nil
}

// creatorName is the display name stamped on records an admin creates. A name that reads as the
// main admin sentinel falls back to the email, so only EnsureMainAdmin ever writes the sentinel.
func creatorName(actor *domain.Admin) string {
	name := actor.DisplayName()
	if strings.EqualFold(strings.Join(strings.Fields(name), " "), domain.MainAdminSentinel) {
		return actor.Email
	}
	return name
}

func (s *Service) compensate(ctx context.Context, uid string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Identity.DeleteUser(ctx, uid); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		metrics.AdminCompensations.WithLabelValues("failed").Inc()
		log.Error().Err(err).AnErr("cause", cause).Str("uid", uid).Msg("admin create compensation failed, identity leaked")
		return
	}
	metrics.AdminCompensations.WithLabelValues("succeeded").Inc()
	log.Warn().AnErr("cause", cause).Str("uid", uid).Msg("admin create compensated, identity removed")
}

// Delete removes target's identity and profile. A missing identity is tolerated.
func (s *Service) Delete(ctx context.Context, actor *domain.Admin, targetUID string) (*domain.Admin, error) {
	if actor == nil || actor.Role != constants.SuperAdmin {
		return nil, ErrNotSuperAdmin
	}
	if strings.TrimSpace(targetUID) == "" {
		return nil, ErrMissingAdminID
	}
	if targetUID == actor.UID {
		return nil, ErrSelfDelete
	}
	target, err := s.get(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	if err := CheckDelete(actor, target); err != nil {
		return nil, err
	}

	if err := s.Identity.DeleteUser(ctx, target.UID); err != nil {
		if !errors.Is(err, identity.ErrUserNotFound) {
			return nil, fmt.Errorf("delete identity: %w", err)
		}
		log.Warn().Str("uid", target.UID).Msg("admin had no identity, deleting profile only")
	}
	if err := s.DB.WithContext(ctx).Where("uid = ?", target.UID).Delete(&domain.Admin{}).Error; err != nil {
		return nil, fmt.Errorf("delete admin profile: %w", err)
	}
	log.Info().Str("uid", target.UID).Str("deleted_by", actor.UID).Msg("admin deleted")
	s.changed(ctx)
	return target, nil
}

// UpdateRole moves target to newRole and revokes its sessions so the new role takes effect.
func (s *Service) UpdateRole(ctx context.Context, actor *domain.Admin, targetUID, newRole string) (*domain.Admin, error) {
	if actor == nil || actor.Role != constants.SuperAdmin {
		return nil, ErrNotSuperAdmin
	}
	if strings.TrimSpace(targetUID) == "" {
		return nil, ErrMissingAdminID
	}
	target, err := s.get(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	if err := CheckRoleChange(actor, target, newRole); err != nil {
		return nil, err
	}
	if target.Role == newRole {
		return target, nil
	}

	target.Role = newRole
	target.UpdatedAt = s.now()
	err = s.DB.WithContext(ctx).Model(&domain.Admin{}).Where("uid = ?", target.UID).
		Updates(map[string]interface{}{"role": newRole, "updatedAt": target.UpdatedAt}).Error
	if err != nil {
		return nil, fmt.Errorf("update admin role: %w", err)
	}
	if err := s.Identity.RevokeRefreshTokens(ctx, target.UID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		log.Error().Err(err).Str("uid", target.UID).Msg("failed to revoke sessions after role change")
	}
	log.Info().Str("uid", target.UID).Str("role", newRole).Str("changed_by", actor.UID).Msg("admin role changed")
	s.changed(ctx)
	return target, nil
}
