package site

import (
	"context"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/domain"
)

// MessageCreator stores contact messages.
type MessageCreator interface {
	Create(ctx context.Context, in messages.ContactInput) (*domain.UserMessage, error)
}

// AppointmentCreator books viewings.
type AppointmentCreator interface {
	Create(ctx context.Context, in appointments.BookingInput) (*domain.Appointment, error)
}

// Forms accepts the public site's contact and booking forms. Both validate every field before
// writing and report failures as a *validation.RequestError.
type Forms struct {
	Messages     MessageCreator
	Appointments AppointmentCreator
}

func (f *Forms) SubmitContact(ctx context.Context, in messages.ContactInput) (*domain.UserMessage, error) {
	return f.Messages.Create(ctx, in)
}

func (f *Forms) BookAppointment(ctx context.Context, in appointments.BookingInput) (*domain.Appointment, error) {
	return f.Appointments.Create(ctx, in)
}
