package site

import (
	"errors"
	"math"
	"sort"
	"strings"

	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
)

const (
	DefaultLimit = 12
	MaxLimit     = 50
	SimilarCount = 3
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

var (
	ErrListingNotFound = errors.New("Listing not found")
	ErrInvalidSort     = errors.New("Sort must be one of: newest, price_asc, price_desc")
)

// Query filters the public catalog. Zero values do not filter.
type Query struct {
	Text         string
	Location     string
	MinPrice     float64
	MaxPrice     float64
	MinBedrooms  int
	MinBathrooms int
	MinArea      float64
	Status       string
	Amenities    []string
	Sort         string
	Page         int
	Limit        int
}

// Results is one page of matches.
type Results struct {
	Listings   []domain.Listing `json:"listings"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// Detail is one listing with a few alternatives.
type Detail struct {
	Listing domain.Listing   `json:"listing"`
	Similar []domain.Listing `json:"similar"`
}

// Catalog serves the public listing views from the cached listings collection.
type Catalog struct {
	sub *collections.Subscription
}

func NewCatalog(store *collections.Store) *Catalog {
	sub, _ := store.Subscribe(domain.CollectionListings)
	return &Catalog{sub: sub}
}

func (c *Catalog) Close() {
	c.sub.Close()
}

func (c *Catalog) all() ([]domain.Listing, error) {
	snap := c.sub.Current()
	if snap.Err != nil {
		return nil, snap.Err
	}
	return collections.Decode[domain.Listing](snap)
}

// Search filters, sorts and pages the catalog.
func (c *Catalog) Search(q Query) (*Results, error) {
	switch q.Sort {
	case "", SortNewest, SortPriceAsc, SortPriceDesc:
	default:
		return nil, ErrInvalidSort
	}
	all, err := c.all()
	if err != nil {
		return nil, err
	}
	matches := make([]domain.Listing, 0, len(all))
	for _, l := range all {
		if q.matches(l) {
			matches = append(matches, l)
		}
	}
	sortListings(matches, q.Sort)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	res := &Results{
		Total:      len(matches),
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(len(matches)) / float64(limit))),
		Listings:   []domain.Listing{},
	}
	// Pages past the end are empty; checking before multiplying keeps huge pages from overflowing.
	if page <= res.TotalPages {
		start := (page - 1) * limit
		end := start + limit
		if end > len(matches) {
			end = len(matches)
		}
		res.Listings = matches[start:end]
	}
	return res, nil
}

func (q Query) matches(l domain.Listing) bool {
	if t := strings.ToLower(strings.TrimSpace(q.Text)); t != "" {
		hay := strings.ToLower(l.Title + " " + l.Location + " " + l.Description)
		if !strings.Contains(hay, t) {
			return false
		}
	}
	if loc := strings.TrimSpace(q.Location); loc != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(loc)) {
		return false
	}
	if q.MinPrice > 0 && l.Price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && l.Price > q.MaxPrice {
		return false
	}
	if l.Bedrooms < q.MinBedrooms || l.Bathrooms < q.MinBathrooms || l.Area < q.MinArea {
		return false
	}
	if q.Status != "" && l.Status != q.Status {
		return false
	}
	if len(q.Amenities) > 0 {
		have := make(map[string]bool, len(l.Amenities))
		for _, a := range l.Amenities {
			have[strings.ToLower(a)] = true
		}
		for _, want := range q.Amenities {
			if !have[strings.ToLower(strings.TrimSpace(want))] {
				return false
			}
		}
	}
	return true
}

func sortListings(ls []domain.Listing, by string) {
	sort.SliceStable(ls, func(i, j int) bool {
		switch by {
		case SortPriceAsc:
			return ls[i].Price < ls[j].Price
		case SortPriceDesc:
			return ls[i].Price > ls[j].Price
		default:
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
	})
}

// Detail returns the listing with numericID and up to three similar listings: same location
// first, then closest price. Sold listings are never suggested.
func (c *Catalog) Detail(numericID int64) (*Detail, error) {
	all, err := c.all()
	if err != nil {
		return nil, err
	}
	var (
		found  bool
		target domain.Listing
	)
	for _, l := range all {
		if l.NumericID == numericID {
			target, found = l, true
			break
		}
	}
	if !found {
		return nil, ErrListingNotFound
	}

	candidates := make([]domain.Listing, 0, len(all))
	for _, l := range all {
		if l.ID != target.ID && l.Status != domain.ListingSold {
			candidates = append(candidates, l)
		}
	}
	sameLoc := func(l domain.Listing) bool { return strings.EqualFold(l.Location, target.Location) }
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := sameLoc(candidates[i]), sameLoc(candidates[j])
		if si != sj {
			return si
		}
		return math.Abs(candidates[i].Price-target.Price) < math.Abs(candidates[j].Price-target.Price)
	})
	if len(candidates) > SimilarCount {
		candidates = candidates[:SimilarCount]
	}
	return &Detail{Listing: target, Similar: candidates}, nil
}

// Featured returns the n newest available listings.
func (c *Catalog) Featured(n int) ([]domain.Listing, error) {
	all, err := c.all()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, n)
	for _, l := range all {
		if l.Status == domain.ListingAvailable {
			out = append(out, l)
		}
	}
	sortListings(out, SortNewest)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
