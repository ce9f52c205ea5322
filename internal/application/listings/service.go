package listings

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

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrListingNotFound = errors.New("Listing not found")
	ErrInvalidStatus   = errors.New("Status must be one of: available, sold, pending")
)

// ImageRemover deletes stored images of removed listings.
type ImageRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

type Service struct {
	DB     *gorm.DB
	Feed   feed.Notifier
	Images ImageRemover
	Now    func() time.Time
}

// Input holds the editable fields of a listing.
type Input struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Location    string   `json:"location" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=10000"`
	Price       float64  `json:"price" validate:"gte=0"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0"`
	Area        float64  `json:"area" validate:"gte=0"`
	Images      []string `json:"images"`
	Status      string   `json:"status" validate:"omitempty,oneof=available sold pending"`
	Amenities   []string `json:"amenities"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) changed(ctx context.Context) {
	if s.Feed != nil {
		s.Feed.Changed(ctx, domain.CollectionListings)
	}
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
}

func (in Input) apply(l *domain.Listing, now time.Time) {
	l.Title = in.Title
	l.Location = in.Location
	l.Description = in.Description
	l.Price = in.Price
	l.Bedrooms = in.Bedrooms
	l.Bathrooms = in.Bathrooms
	l.Area = in.Area
	l.Images = datatypes.JSONSlice[string](nonNil(in.Images))
	l.Amenities = datatypes.JSONSlice[string](dedupe(in.Amenities))
	// An empty status leaves the current one, and its soldDate, alone.
	if in.Status != "" {
		l.ApplyStatus(in.Status, now)
	}
}

// Create stores a new listing. Its numeric id is drawn from the listing counter in the same
// transaction, so an aborted create never consumes an id.
func (s *Service) Create(ctx context.Context, in Input, creator domain.Creator) (*domain.Listing, error) {
	in.normalize()
	if in.Status == "" {
		in.Status = domain.ListingAvailable
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	l := &domain.Listing{CreatedBy: datatypes.NewJSONType(creator)}
	in.apply(l, s.now())

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := counters.Next(tx, domain.ListingCounter)
		if err != nil {
			return err
		}
		l.NumericID = n
		return tx.Create(l).Error
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}
	s.changed(ctx)
	return l, nil
}

// Get returns the listing with document id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByNumericID returns the listing with numericId n.
func (s *Service) GetByNumericID(ctx context.Context, n int64) (*domain.Listing, error) {
	var l domain.Listing
	err := s.DB.WithContext(ctx).Where(`"numericId" = ?`, n).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Update replaces the editable fields of a listing. An empty Status keeps the current status.
func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Listing, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(l, s.now())
	if err := s.DB.WithContext(ctx).Save(l).Error; err != nil {
		return nil, fmt.Errorf("Failed to update listing: %w", err)
	}
	s.changed(ctx)
	return l, nil
}

// SetStatus moves a listing to status, setting or clearing soldDate.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*domain.Listing, error) {
	if !domain.IsValidListingStatus(status) {
		return nil, ErrInvalidStatus
	}
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.ApplyStatus(status, s.now())
	err = s.DB.WithContext(ctx).Model(l).Updates(map[string]interface{}{
		"status":    l.Status,
		"soldDate":  l.SoldDate,
		"updatedAt": s.now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("Failed to update listing status: %w", err)
	}
	s.changed(ctx)
	return l, nil
}

// Delete removes a listing and then, best effort, its stored images.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Delete(&domain.Listing{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("Failed to delete listing: %w", err)
	}
	s.changed(ctx)
	if s.Images != nil {
		for _, u := range l.Images {
			if err := s.Images.DeleteByURL(ctx, u); err != nil {
				log.Warn().Err(err).Str("listing_id", id).Str("url", u).Msg("orphaned listing image")
			}
		}
	}
	return l, nil
}

func nonNil(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
