// Package console implements the admin console pages. Pages read from the collection cache and
// write through the services, mirroring each write in the cache ahead of the change feed.
package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/uploads"
	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/toast"
)

// ListingWriter persists listings.
type ListingWriter interface {
	Create(ctx context.Context, in listings.Input, creator domain.Creator) (*domain.Listing, error)
	Update(ctx context.Context, id string, in listings.Input) (*domain.Listing, error)
	SetStatus(ctx context.Context, id, status string) (*domain.Listing, error)
	Delete(ctx context.Context, id string) (*domain.Listing, error)
}

// ImageUploader stores listing images.
type ImageUploader interface {
	UploadAll(ctx context.Context, files []uploads.File, progress uploads.Progress) ([]uploads.Uploaded, error)
	DeleteByURL(ctx context.Context, url string) error
}

// AppointmentWriter persists appointment state.
type AppointmentWriter interface {
	SetStatus(ctx context.Context, id, status string) error
	SetViewed(ctx context.Context, id string, viewed bool) error
	Delete(ctx context.Context, id string) error
}

// MessageWriter persists message state.
type MessageWriter interface {
	SetViewed(ctx context.Context, id string, viewed bool) error
	Delete(ctx context.Context, id string) error
}

// TokenSource yields the bearer credential of the signed-in admin, "" when there is none.
type TokenSource interface {
	GetIDToken(ctx context.Context, forceRefresh bool) string
}

// Deps wires the pages.
type Deps struct {
	Store        *collections.Store
	Listings     ListingWriter
	Uploads      ImageUploader
	Appointments AppointmentWriter
	Messages     MessageWriter
	Tokens       TokenSource
	// APIBaseURL is where the admin lifecycle routes live, e.g. http://localhost:8080.
	APIBaseURL string
	HTTPClient *http.Client
	Toaster    toast.Toaster
	Now        func() time.Time
}

// Console holds every page. Each page keeps its collection subscribed until Close.
type Console struct {
	Dashboard    *Dashboard
	Listings     *ListingsPage
	Appointments *AppointmentsPage
	Messages     *MessagesPage
	Admins       *AdminsPage
}

// New opens every page.
func New(d Deps) *Console {
	if d.Toaster == nil {
		d.Toaster = toast.LogToaster{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Console{
		Dashboard:    NewDashboard(d.Store),
		Listings:     NewListingsPage(d),
		Appointments: NewAppointmentsPage(d),
		Messages:     NewMessagesPage(d),
		Admins:       NewAdminsPage(d),
	}
}

// Close releases every page subscription.
func (c *Console) Close() {
	c.Dashboard.Close()
	c.Listings.Close()
	c.Appointments.Close()
	c.Messages.Close()
	c.Admins.Close()
}

// page is a subscription to one collection plus the toaster.
type page struct {
	store *collections.Store
	sub   *collections.Subscription
	toast toast.Toaster
}

func newPage(store *collections.Store, name string, t toast.Toaster) page {
	sub, _ := store.Subscribe(name)
	return page{store: store, sub: sub, toast: t}
}

// Snapshot returns the cached collection.
func (p *page) Snapshot() collections.Snapshot {
	return p.sub.Current()
}

// Events streams cache updates for this page.
func (p *page) Events() <-chan collections.Snapshot {
	return p.sub.Events()
}

func (p *page) Close() {
	p.sub.Close()
}

// optimistic applies fn to the cache, runs write, then confirms or rolls back with a toast.
func (p *page) optimistic(fn collections.Updater, write func() error, okMsg, failMsg string) error {
	o, err := p.store.Optimistic(p.sub.Collection(), fn)
	if err != nil && !errors.Is(err, collections.ErrNotSubscribed) {
		return err
	}
	if werr := write(); werr != nil {
		if o != nil {
			o.Rollback(werr)
		}
		p.toast.Error(fmt.Sprintf("%s: %v", failMsg, werr))
		return werr
	}
	if o != nil {
		o.Confirm()
	}
	p.toast.Success(okMsg)
	return nil
}

// upsert mirrors a written record into the cache.
func (p *page) upsert(v collections.Identified) {
	doc, err := collections.ToDocument(v)
	if err != nil {
		return
	}
	_ = p.store.Mutate(p.sub.Collection(), collections.Upsert(doc))
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
