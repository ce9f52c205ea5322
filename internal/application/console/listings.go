package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/uploads"
	"estate-backend/internal/collections"
	"estate-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

// ListingFilter narrows the listings table. Empty fields match everything.
type ListingFilter struct {
	Status string
	Query  string
}

// ListingsPage manages property listings.
type ListingsPage struct {
	page
	svc     ListingWriter
	uploads ImageUploader
	now     func() time.Time
}

func NewListingsPage(d Deps) *ListingsPage {
	return &ListingsPage{
		page:    newPage(d.Store, domain.CollectionListings, d.Toaster),
		svc:     d.Listings,
		uploads: d.Uploads,
		now:     d.Now,
	}
}

// List returns cached listings matching f, newest first.
func (p *ListingsPage) List(f ListingFilter) ([]domain.Listing, error) {
	snap := p.Snapshot()
	if snap.Err != nil {
		return nil, snap.Err
	}
	all, err := collections.Decode[domain.Listing](snap)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Listing, 0, len(all))
	for _, l := range all {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.Title+" "+l.Location), q) &&
			fmt.Sprint(l.NumericID) != q {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Create uploads images first, main image first, then writes the listing. Uploaded images are
// removed again when the write fails.
func (p *ListingsPage) Create(ctx context.Context, in listings.Input, creator domain.Creator, images []uploads.File, progress uploads.Progress) (*domain.Listing, error) {
	var uploaded []string
	if len(images) > 0 {
		res, err := p.uploads.UploadAll(ctx, images, progress)
		if err != nil {
			p.toast.Error(fmt.Sprintf("Image upload failed: %v", err))
			return nil, err
		}
		for _, u := range res {
			uploaded = append(uploaded, u.URL)
		}
		in.Images = append(uploaded, in.Images...)
	}

	l, err := p.svc.Create(ctx, in, creator)
	if err != nil {
		for _, u := range uploaded {
			if derr := p.uploads.DeleteByURL(context.WithoutCancel(ctx), u); derr != nil {
				log.Warn().Err(derr).Str("url", u).Msg("orphaned upload after failed listing create")
			}
		}
		p.toast.Error(fmt.Sprintf("Could not create listing: %v", err))
		return nil, err
	}
	p.upsert(l)
	p.toast.Success(fmt.Sprintf("Listing #%d created", l.NumericID))
	return l, nil
}

// Update writes the new field values and mirrors them in the cache.
func (p *ListingsPage) Update(ctx context.Context, id string, in listings.Input) (*domain.Listing, error) {
	l, err := p.svc.Update(ctx, id, in)
	if err != nil {
		p.toast.Error(fmt.Sprintf("Could not update listing: %v", err))
		return nil, err
	}
	p.upsert(l)
	p.toast.Success(fmt.Sprintf("Listing #%d updated", l.NumericID))
	return l, nil
}

// SetStatus shows the new status at once and reverts it if the write fails.
func (p *ListingsPage) SetStatus(ctx context.Context, id, status string) error {
	if !domain.IsValidListingStatus(status) {
		return listings.ErrInvalidStatus
	}
	return p.optimistic(listingStatus(id, status, p.now()), func() error {
		_, err := p.svc.SetStatus(ctx, id, status)
		return err
	}, "Listing marked "+status, "Could not change listing status")
}

// Delete hides the listing at once and restores it if the write fails.
func (p *ListingsPage) Delete(ctx context.Context, id string) error {
	return p.optimistic(collections.Remove(id), func() error {
		_, err := p.svc.Delete(ctx, id)
		return err
	}, "Listing deleted", "Could not delete listing")
}

// listingStatus mirrors domain.Listing.ApplyStatus on a cached document.
func listingStatus(id, status string, now time.Time) collections.Updater {
	return func(docs []collections.Document) []collections.Document {
		for _, d := range docs {
			if d.ID() != id {
				continue
			}
			if status == domain.ListingSold {
				if d["status"] != domain.ListingSold || d["soldDate"] == nil {
					d["soldDate"] = timestamp(now)
				}
			} else {
				d["soldDate"] = nil
			}
			d["status"] = status
			d["updatedAt"] = timestamp(now)
		}
		return docs
	}
}
