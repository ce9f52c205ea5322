package console

import (
	"context"
	"time"

	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
)

// AppointmentFilter narrows the appointments table.
type AppointmentFilter struct {
	Status       string
	UnviewedOnly bool
}

// AppointmentsPage manages viewing requests.
type AppointmentsPage struct {
	page
	svc AppointmentWriter
	now func() time.Time
}

func NewAppointmentsPage(d Deps) *AppointmentsPage {
	return &AppointmentsPage{
		page: newPage(d.Store, domain.CollectionAppointments, d.Toaster),
		svc:  d.Appointments,
		now:  d.Now,
	}
}

func (p *AppointmentsPage) List(f AppointmentFilter) ([]domain.Appointment, error) {
	snap := p.Snapshot()
	if snap.Err != nil {
		return nil, snap.Err
	}
	all, err := collections.Decode[domain.Appointment](snap)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(all))
	for _, a := range all {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.UnviewedOnly && a.Viewed {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (p *AppointmentsPage) setStatus(ctx context.Context, id, status string) error {
	fields := map[string]interface{}{"status": status, "updatedAt": timestamp(p.now())}
	return p.optimistic(collections.SetFields(id, fields), func() error {
		return p.svc.SetStatus(ctx, id, status)
	}, "Appointment marked "+status, "Could not update appointment")
}

// MarkDone shows the appointment as done at once and reverts it if the write fails.
func (p *AppointmentsPage) MarkDone(ctx context.Context, id string) error {
	return p.setStatus(ctx, id, domain.AppointmentDone)
}

func (p *AppointmentsPage) MarkPending(ctx context.Context, id string) error {
	return p.setStatus(ctx, id, domain.AppointmentPending)
}

func (p *AppointmentsPage) MarkViewed(ctx context.Context, id string, viewed bool) error {
	return p.optimistic(collections.SetFields(id, map[string]interface{}{"viewed": viewed}), func() error {
		return p.svc.SetViewed(ctx, id, viewed)
	}, "Appointment updated", "Could not update appointment")
}

func (p *AppointmentsPage) Delete(ctx context.Context, id string) error {
	return p.optimistic(collections.Remove(id), func() error {
		return p.svc.Delete(ctx, id)
	}, "Appointment deleted", "Could not delete appointment")
}
