package admins

import (
	"context"
	"errors"
	"fmt"

	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"
)

// MainAdmin holds the bootstrap owner credentials.
type MainAdmin struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureMainAdmin creates the main admin identity and profile unless a main admin exists.
// It is a no-op when no credentials are configured.
func (s *Service) EnsureMainAdmin(ctx context.Context, m MainAdmin) (*domain.Admin, error) {
	if m.Email == "" || m.Password == "" {
		return nil, nil
	}
	var existing domain.Admin
	err := s.DB.WithContext(ctx).Where(`"createdBy" = ?`, domain.MainAdminSentinel).Limit(1).Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("look up main admin: %w", err)
	}
	if existing.UID != "" {
		return &existing, nil
	}

	user, err := s.Identity.GetUserByEmail(ctx, m.Email)
	if errors.Is(err, identity.ErrUserNotFound) {
		user, err = s.Identity.CreateUser(ctx, identity.CreateUserParams{
			Email:       m.Email,
			Password:    m.Password,
			DisplayName: m.FirstName + " " + m.LastName,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("main admin identity: %w", err)
	}

	now := s.now()
	admin := &domain.Admin{
		UID:       user.UID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     user.Email,
		Role:      constants.SuperAdmin,
		CreatedBy: domain.MainAdminSentinel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "createdBy", "updatedAt"}),
	}).Create(admin).Error
	if err != nil {
		return nil, fmt.Errorf("main admin profile: %w", err)
	}
	log.Info().Str("uid", admin.UID).Str("email", admin.Email).Msg("main admin bootstrapped")
	s.changed(ctx)
	return admin, nil
}
