package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/feed"
	"estate-backend/internal/pkg/validation"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("Message not found")

type Service struct {
	DB   *gorm.DB
	Feed feed.Notifier
}

// ContactInput is a contact-form submission.
type ContactInput struct {
	FirstName string `json:"firstName" validate:"required,personname,max=80"`
	LastName  string `json:"lastName" validate:"omitempty,personname,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"max=40"`
	Subject   string `json:"subject" validate:"max=200"`
	Message   string `json:"message" validate:"required,max=5000"`
}

func (s *Service) changed(ctx context.Context) {
	if s.Feed != nil {
		s.Feed.Changed(ctx, domain.CollectionMessages)
	}
}

// Create stores a contact message as unviewed.
func (s *Service) Create(ctx context.Context, in ContactInput) (*domain.UserMessage, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	m := &domain.UserMessage{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Subject:   in.Subject,
		Message:   in.Message,
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("Failed to send message: %w", err)
	}
	s.changed(ctx)
	return m, nil
}

func (s *Service) SetViewed(ctx context.Context, id string, viewed bool) error {
	res := s.DB.WithContext(ctx).Model(&domain.UserMessage{}).Where("id = ?", id).Update("viewed", viewed)
	if res.Error != nil {
		return fmt.Errorf("Failed to update message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	s.changed(ctx)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&domain.UserMessage{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("Failed to delete message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	s.changed(ctx)
	return nil
}
