package handlertest

import (
	"testing"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/application/uploads"
	"estate-backend/internal/collections"
	"estate-backend/internal/infrastructure/feed"
	"estate-backend/internal/infrastructure/storage"
)

// Services are the domain services over the Env's database, a Redis change feed and an
// in-memory object store, plus a collection cache fed by that change feed.
type Services struct {
	Feed         *feed.Feed
	Store        *collections.Store
	Objects      *storage.MemoryStore
	Uploads      *uploads.Service
	Listings     *listings.Service
	Appointments *appointments.Service
	Messages     *messages.Service
}

func (e *Env) Services(t *testing.T) *Services {
	t.Helper()
	f := feed.New(e.DB, e.Redis)
	store := collections.NewStore(f)
	t.Cleanup(store.Close)
	objects := storage.NewMemoryStore("http://objects.test", "estate")
	up := &uploads.Service{Store: objects}
	e.Admins.Feed = f
	return &Services{
		Feed:         f,
		Store:        store,
		Objects:      objects,
		Uploads:      up,
		Listings:     &listings.Service{DB: e.DB, Feed: f, Images: up},
		Appointments: &appointments.Service{DB: e.DB, Feed: f},
		Messages:     &messages.Service{DB: e.DB, Feed: f},
	}
}
