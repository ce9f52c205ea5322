package console

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/uploads"
	"estate-backend/internal/collections"
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/storage"
	"estate-backend/internal/pkg/toast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mu   sync.Mutex
	docs map[string][]collections.Document
}

func (m *memorySource) Open(name string, onSnapshot func([]collections.Document), _ func(error)) (func(), error) {
	m.mu.Lock()
	docs := m.docs[name]
	m.mu.Unlock()
	onSnapshot(docs)
	return func() {}, nil
}

func mustDoc(t *testing.T, v collections.Identified) collections.Document {
	t.Helper()
	d, err := collections.ToDocument(v)
	require.NoError(t, err)
	return d
}

type fakeListings struct {
	next    int64
	created *domain.Listing
	err     error
}

func (f *fakeListings) Create(_ context.Context, in listings.Input, creator domain.Creator) (*domain.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	l := &domain.Listing{
		ID: "new", NumericID: f.next, Title: in.Title, Location: in.Location, Price: in.Price,
		Status: domain.ListingAvailable, Images: in.Images,
	}
	f.created = l
	return l, nil
}

func (f *fakeListings) Update(context.Context, string, listings.Input) (*domain.Listing, error) {
	return nil, f.err
}

func (f *fakeListings) SetStatus(context.Context, string, string) (*domain.Listing, error) {
	return nil, f.err
}

func (f *fakeListings) Delete(context.Context, string) (*domain.Listing, error) {
	return nil, f.err
}

type gatedAppointments struct {
	release chan error
}

func (g *gatedAppointments) SetStatus(context.Context, string, string) error { return <-g.release }
func (g *gatedAppointments) SetViewed(context.Context, string, bool) error   { return <-g.release }
func (g *gatedAppointments) Delete(context.Context, string) error            { return <-g.release }

type noMessages struct{}

func (noMessages) SetViewed(context.Context, string, bool) error { return nil }
func (noMessages) Delete(context.Context, string) error          { return nil }

type staticToken string

func (s staticToken) GetIDToken(context.Context, bool) string { return string(s) }

type fixture struct {
	console      *Console
	listings     *fakeListings
	appointments *gatedAppointments
	objects      *storage.MemoryStore
	toasts       *toast.Recorder
}

func setupConsole(t *testing.T, apiURL string, token string) *fixture {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	src := &memorySource{docs: map[string][]collections.Document{
		domain.CollectionListings: {
			mustDoc(t, domain.Listing{ID: "l1", NumericID: 1, Title: "Loft", Location: "Paphos", Price: 500000, Status: domain.ListingAvailable}),
		},
		domain.CollectionAppointments: {
			mustDoc(t, domain.Appointment{ID: "a1", NumericID: 1, Name: "Maria", Email: "maria@example.com", ListingNumericID: 1, Status: domain.AppointmentPending}),
		},
		domain.CollectionMessages: {},
		domain.CollectionAdmins: {
			mustDoc(t, domain.Admin{UID: "u2", Email: "b@estate.test", Role: constants.Admin}),
		},
	}}
	store := collections.NewStore(src)
	objects := storage.NewMemoryStore("https://files.estate.test", "estate")
	f := &fixture{
		listings:     &fakeListings{next: 1},
		appointments: &gatedAppointments{release: make(chan error, 1)},
		objects:      objects,
		toasts:       &toast.Recorder{},
	}
	f.console = New(Deps{
		Store:        store,
		Listings:     f.listings,
		Uploads:      &uploads.Service{Store: objects},
		Appointments: f.appointments,
		Messages:     noMessages{},
		Tokens:       staticToken(token),
		APIBaseURL:   apiURL,
		Toaster:      f.toasts,
		Now:          func() time.Time { return now },
	})
	t.Cleanup(func() {
		f.console.Close()
		store.Close()
	})
	return f
}

func TestDashboard_NewListingCountsImmediately(t *testing.T) {
	f := setupConsole(t, "", "")
	before, err := f.console.Dashboard.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, before.ActiveListings)
	assert.Equal(t, 500000.0, before.AveragePrice)
	assert.Equal(t, 1, before.PendingAppointments)
	assert.Equal(t, 1, before.UnviewedAppointments)

	_, err = f.console.Listings.Create(context.Background(), listings.Input{
		Title: "Villa", Location: "Limassol", Price: 1000000,
	}, domain.Creator{UID: "u1"}, nil, nil)
	require.NoError(t, err)

	after, err := f.console.Dashboard.Stats()
	require.NoError(t, err)
	assert.Equal(t, before.ActiveListings+1, after.ActiveListings)
	assert.Equal(t, 2, after.TotalListings)
	assert.Equal(t, 750000.0, after.AveragePrice)
}

func TestListingsCreate_RemovesUploadsWhenWriteFails(t *testing.T) {
	f := setupConsole(t, "", "")
	f.listings.err = errors.New("database unavailable")
	img := uploads.File{
		Kind: uploads.KindMain, Name: "a.jpg", ContentType: "image/jpeg", Size: 3,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("abc")), nil },
	}
	_, err := f.console.Listings.Create(context.Background(), listings.Input{Title: "Villa", Location: "Limassol"},
		domain.Creator{}, []uploads.File{img}, nil)
	require.Error(t, err)
	assert.Zero(t, f.objects.Len())
	last, ok := f.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, toast.LevelError, last.Level)
}

func appointmentStatus(t *testing.T, f *fixture) string {
	list, err := f.console.Appointments.List(AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0].Status
}

func TestMarkDone_ShowsImmediatelyAndRevertsOnFailure(t *testing.T) {
	f := setupConsole(t, "", "")
	done := make(chan error, 1)
	go func() { done <- f.console.Appointments.MarkDone(context.Background(), "a1") }()

	require.Eventually(t, func() bool {
		list, err := f.console.Appointments.List(AppointmentFilter{Status: domain.AppointmentDone})
		return err == nil && len(list) == 1
	}, time.Second, 5*time.Millisecond)

	f.appointments.release <- errors.New("permission denied")
	require.Error(t, <-done)
	assert.Equal(t, domain.AppointmentPending, appointmentStatus(t, f))

	last, ok := f.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, toast.LevelError, last.Level)
	assert.Contains(t, last.Message, "permission denied")
}

func TestMarkDone_ConfirmKeepsState(t *testing.T) {
	f := setupConsole(t, "", "")
	f.appointments.release <- nil
	require.NoError(t, f.console.Appointments.MarkDone(context.Background(), "a1"))
	assert.Equal(t, domain.AppointmentDone, appointmentStatus(t, f))
	last, _ := f.toasts.Last()
	assert.Equal(t, toast.LevelSuccess, last.Level)
}

func TestAdmins_RefusesWithoutToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()
	f := setupConsole(t, srv.URL, "")

	_, err := f.console.Admins.Create(context.Background(), admins.CreateInput{Email: "x@estate.test"})
	assert.ErrorIs(t, err, ErrNoToken)
	assert.ErrorIs(t, f.console.Admins.Delete(context.Background(), "u2"), ErrNoToken)
	assert.Zero(t, atomic.LoadInt32(&calls))

	list, err := f.console.Admins.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAdmins_ServerRejectionRestoresCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"error":"Only the main admin can grant or revoke super-admin","code":"MAIN_ADMIN_REQUIRED"}`))
	}))
	defer srv.Close()
	f := setupConsole(t, srv.URL, "tok")

	err := f.console.Admins.ChangeRole(context.Background(), "u2", constants.SuperAdmin)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "MAIN_ADMIN_REQUIRED", apiErr.Code)

	list, err := f.console.Admins.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, constants.Admin, list[0].Role)
}

func TestAdmins_CreateReturnsUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/create", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"uid":"abc123","message":"Admin created"}`))
	}))
	defer srv.Close()
	f := setupConsole(t, srv.URL, "tok")

	uid, err := f.console.Admins.Create(context.Background(), admins.CreateInput{Email: "x@estate.test"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", uid)
}
