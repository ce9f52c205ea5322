package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/application/counters"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/feed"
	"estate-backend/internal/pkg/validation"

	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("Appointment not found")
	ErrListingNotFound     = errors.New("The selected property no longer exists")
	ErrInvalidStatus       = errors.New("Status must be one of: pending, done")
)

type Service struct {
	DB   *gorm.DB
	Feed feed.Notifier
	Now  func() time.Time
}

// BookingInput is a viewing request from the public site.
type BookingInput struct {
	Name             string    `json:"name" validate:"required,personname,max=120"`
	Email            string    `json:"email" validate:"required,email"`
	Phone            string    `json:"phone" validate:"max=40"`
	Message          string    `json:"message" validate:"max=5000"`
	ListingNumericID int64     `json:"listingNumericId" validate:"gt=0"`
	ScheduledDate    time.Time `json:"scheduledDate" validate:"future"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) changed(ctx context.Context) {
	if s.Feed != nil {
		s.Feed.Changed(ctx, domain.CollectionAppointments)
	}
}

// Create books a viewing. The appointment starts pending and unviewed.
func (s *Service) Create(ctx context.Context, in BookingInput) (*domain.Appointment, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	a := &domain.Appointment{
		Name:             in.Name,
		Email:            in.Email,
		Phone:            in.Phone,
		Message:          in.Message,
		ListingNumericID: in.ListingNumericID,
		ScheduledDate:    in.ScheduledDate.UTC(),
		Status:           domain.AppointmentPending,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.Listing{}).Where(`"numericId" = ?`, in.ListingNumericID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ErrListingNotFound
		}
		n, err := counters.Next(tx, domain.AppointmentsCounter)
		if err != nil {
			return err
		}
		a.NumericID = n
		return tx.Create(a).Error
	})
	if errors.Is(err, ErrListingNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to book appointment: %w", err)
	}
	s.changed(ctx)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updatedAt"] = s.now()
	res := s.DB.WithContext(ctx).Model(&domain.Appointment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("Failed to update appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAppointmentNotFound
	}
	s.changed(ctx)
	return nil
}

// SetStatus marks an appointment pending or done.
func (s *Service) SetStatus(ctx context.Context, id, status string) error {
	if status != domain.AppointmentPending && status != domain.AppointmentDone {
		return ErrInvalidStatus
	}
	return s.update(ctx, id, map[string]interface{}{"status": status})
}

func (s *Service) SetViewed(ctx context.Context, id string, viewed bool) error {
	return s.update(ctx, id, map[string]interface{}{"viewed": viewed})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&domain.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("Failed to delete appointment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAppointmentNotFound
	}
	s.changed(ctx)
	return nil
}
