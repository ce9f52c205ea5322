package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AppointmentPending = "pending"
	AppointmentDone    = "done"
)

// Appointment is a viewing request for a listing. ListingNumericID is a weak reference.
type Appointment struct {
	ID               string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	NumericID        int64     `gorm:"column:numericId;uniqueIndex;not null" json:"numericId" validate:"gt=0"`
	Name             string    `gorm:"column:name;not null" json:"name" validate:"required"`
	Email            string    `gorm:"column:email;not null" json:"email" validate:"required,email"`
	Phone            string    `gorm:"column:phone" json:"phone"`
	Message          string    `gorm:"column:message" json:"message"`
	ListingNumericID int64     `gorm:"column:listingNumericId;index" json:"listingNumericId" validate:"gt=0"`
	ScheduledDate    time.Time `gorm:"column:scheduledDate" json:"scheduledDate"`
	Status           string    `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status" validate:"oneof=pending done"`
	Viewed           bool      `gorm:"column:viewed;not null;default:false" json:"viewed"`
	CreatedAt        time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Appointment) TableName() string {
	return CollectionAppointments
}

func (a Appointment) DocumentID() string {
	return a.ID
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
