package site

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/validation"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticSource map[string][]collections.Document

func (s staticSource) Open(name string, onSnapshot func([]collections.Document), _ func(error)) (func(), error) {
	onSnapshot(s[name])
	return func() {}, nil
}

func listing(t *testing.T, n int64, loc string, price float64, status string, age time.Duration, amenities ...string) collections.Document {
	t.Helper()
	d, err := collections.ToDocument(domain.Listing{
		ID: string(rune('a' + n)), NumericID: n, Title: "Home " + loc, Location: loc, Price: price,
		Bedrooms: int(n), Bathrooms: 1, Area: 100, Status: status, Amenities: amenities,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(-age),
	})
	require.NoError(t, err)
	return d
}

func setupCatalog(t *testing.T) *Catalog {
	src := staticSource{domain.CollectionListings: {
		listing(t, 1, "Paphos", 300000, domain.ListingAvailable, 5*time.Hour, "Pool"),
		listing(t, 2, "Paphos", 450000, domain.ListingAvailable, 4*time.Hour),
		listing(t, 3, "Limassol", 310000, domain.ListingAvailable, 3*time.Hour, "Pool", "Garden"),
		listing(t, 4, "Paphos", 320000, domain.ListingSold, 2*time.Hour),
		listing(t, 5, "Nicosia", 900000, domain.ListingPending, time.Hour),
	}}
	store := collections.NewStore(src)
	c := NewCatalog(store)
	t.Cleanup(func() {
		c.Close()
		store.Close()
	})
	return c
}

func ids(ls []domain.Listing) []int64 {
	out := make([]int64, len(ls))
	for i, l := range ls {
		out[i] = l.NumericID
	}
	return out
}

func TestSearch_FiltersAndSorts(t *testing.T) {
	c := setupCatalog(t)

	res, err := c.Search(Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(res.Listings))

	res, err = c.Search(Query{Location: "paphos", Sort: SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 2}, ids(res.Listings))

	res, err = c.Search(Query{MinPrice: 305000, MaxPrice: 460000, Status: domain.ListingAvailable})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(res.Listings))

	res, err = c.Search(Query{Amenities: []string{"pool"}, Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(res.Listings))

	res, err = c.Search(Query{MinBedrooms: 4, Text: "home"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4}, ids(res.Listings))

	_, err = c.Search(Query{Sort: "random"})
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestSearch_Pages(t *testing.T) {
	c := setupCatalog(t)
	res, err := c.Search(Query{Limit: 2, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, []int64{1}, ids(res.Listings))

	res, err = c.Search(Query{Limit: 2, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, res.Listings)
	assert.NotNil(t, res.Listings)
}

func TestDetail_SimilarPrefersLocationThenPrice(t *testing.T) {
	c := setupCatalog(t)
	d, err := c.Detail(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Listing.NumericID)
	assert.Equal(t, []int64{2, 3, 5}, ids(d.Similar))

	_, err = c.Detail(42)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestFeatured_NewestAvailable(t *testing.T) {
	c := setupCatalog(t)
	got, err := c.Featured(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(got))
}

func TestForms_ValidateBeforeWrite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	f := &Forms{
		Messages:     &messages.Service{DB: db},
		Appointments: &appointments.Service{DB: db},
	}

	_, err = f.BookAppointment(context.Background(), appointments.BookingInput{Name: "Maria", Email: "maria@example.com", ListingNumericID: 1, ScheduledDate: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, appointments.ErrListingNotFound)

	_, err = f.SubmitContact(context.Background(), messages.ContactInput{})
	var reqErr *validation.RequestError
	require.True(t, errors.As(err, &reqErr))

	var count int64
	db.Model(&domain.UserMessage{}).Count(&count)
	assert.Zero(t, count)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	c := setupCatalog(t)
	for _, page := range []int{768614336404564652, math.MaxInt} {
		var res *Results
		require.NotPanics(t, func() {
			var err error
			res, err = c.Search(Query{Page: page})
			require.NoError(t, err)
		})
		assert.Empty(t, res.Listings)
		assert.Equal(t, 5, res.Total)
	}
}
