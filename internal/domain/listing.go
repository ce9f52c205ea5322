package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingAvailable = "available"
	ListingSold      = "sold"
	ListingPending   = "pending"
)

// ListingStatuses is the closed set of listing states.
var ListingStatuses = []string{ListingAvailable, ListingSold, ListingPending}

// IsValidListingStatus returns true if status is one of ListingStatuses.
func IsValidListingStatus(status string) bool {
	for _, s := range ListingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Creator is the denormalized snapshot of the admin who created a listing.
type Creator struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Listing is a property for sale. NumericID comes from the listingCounter and is never reused.
type Listing struct {
	ID          string                      `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	NumericID   int64                       `gorm:"column:numericId;uniqueIndex;not null" json:"numericId" validate:"gt=0"`
	Title       string                      `gorm:"column:title;not null" json:"title" validate:"required"`
	Location    string                      `gorm:"column:location;not null;index" json:"location" validate:"required"`
	Description string                      `gorm:"column:description" json:"description"`
	Price       float64                     `gorm:"column:price;not null" json:"price" validate:"gte=0"`
	Bedrooms    int                         `gorm:"column:bedrooms" json:"bedrooms" validate:"gte=0"`
	Bathrooms   int                         `gorm:"column:bathrooms" json:"bathrooms" validate:"gte=0"`
	Area        float64                     `gorm:"column:area" json:"area" validate:"gte=0"`
	Images      datatypes.JSONSlice[string] `gorm:"column:images" json:"images"`
	Status      string                      `gorm:"column:status;type:varchar(20);not null;default:'available'" json:"status" validate:"oneof=available sold pending"`
	Amenities   datatypes.JSONSlice[string] `gorm:"column:amenities" json:"amenities"`
	CreatedBy   datatypes.JSONType[Creator] `gorm:"column:createdBy" json:"createdBy"`
	CreatedAt   time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
	SoldDate    *time.Time                  `gorm:"column:soldDate" json:"soldDate"`
}

func (Listing) TableName() string {
	return CollectionListings
}

// DocumentID returns the document id used by the collection cache.
func (l Listing) DocumentID() string {
	return l.ID
}

// MainImage returns the first image URL or "".
func (l Listing) MainImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// BeforeCreate sets the document id if not already set.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ApplyStatus moves the listing to status and keeps SoldDate consistent with it.
func (l *Listing) ApplyStatus(status string, now time.Time) {
	if status == ListingSold {
		if l.Status != ListingSold || l.SoldDate == nil {
			t := now
			l.SoldDate = &t
		}
	} else {
		l.SoldDate = nil
	}
	l.Status = status
}
