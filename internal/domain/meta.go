package domain

const (
	CollectionListings     = "listings"
	CollectionAppointments = "appointments"
	CollectionMessages     = "userMessages"
	CollectionAdmins       = "admins"
	CollectionMeta         = "meta"
)

const (
	ListingCounter      = "listingCounter"
	AppointmentsCounter = "appointmentsCounter"
)

// Counter is a monotonically increasing sequence stored in the meta collection.
type Counter struct {
	ID    string `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Count int64  `gorm:"column:count;not null;default:0" json:"count"`
}

func (Counter) TableName() string {
	return CollectionMeta
}
