package console

import (
	"estate-backend/internal/collections"
	"estate-backend/internal/domain"
)

// Stats are the dashboard counters.
type Stats struct {
	TotalListings        int     `json:"totalListings"`
	ActiveListings       int     `json:"activeListings"`
	PendingListings      int     `json:"pendingListings"`
	SoldListings         int     `json:"soldListings"`
	AveragePrice         float64 `json:"averagePrice"`
	SoldVolume           float64 `json:"soldVolume"`
	TotalAppointments    int     `json:"totalAppointments"`
	PendingAppointments  int     `json:"pendingAppointments"`
	UnviewedAppointments int     `json:"unviewedAppointments"`
	TotalMessages        int     `json:"totalMessages"`
	UnviewedMessages     int     `json:"unviewedMessages"`
	Loading              bool    `json:"loading"`
}

// Dashboard summarises the cached collections.
type Dashboard struct {
	listings     *collections.Subscription
	appointments *collections.Subscription
	messages     *collections.Subscription
}

func NewDashboard(store *collections.Store) *Dashboard {
	l, _ := store.Subscribe(domain.CollectionListings)
	a, _ := store.Subscribe(domain.CollectionAppointments)
	m, _ := store.Subscribe(domain.CollectionMessages)
	return &Dashboard{listings: l, appointments: a, messages: m}
}

func (d *Dashboard) Close() {
	d.listings.Close()
	d.appointments.Close()
	d.messages.Close()
}

// Stats computes the counters from the current snapshots. The average price covers every listing.
func (d *Dashboard) Stats() (Stats, error) {
	ls, as, ms := d.listings.Current(), d.appointments.Current(), d.messages.Current()
	for _, s := range []collections.Snapshot{ls, as, ms} {
		if s.Err != nil {
			return Stats{}, s.Err
		}
	}
	listings, err := collections.Decode[domain.Listing](ls)
	if err != nil {
		return Stats{}, err
	}
	appointments, err := collections.Decode[domain.Appointment](as)
	if err != nil {
		return Stats{}, err
	}
	messages, err := collections.Decode[domain.UserMessage](ms)
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	st.Loading = ls.Loading || as.Loading || ms.Loading
	var total float64
	for _, l := range listings {
		st.TotalListings++
		total += l.Price
		switch l.Status {
		case domain.ListingAvailable:
			st.ActiveListings++
		case domain.ListingPending:
			st.PendingListings++
		case domain.ListingSold:
			st.SoldListings++
			st.SoldVolume += l.Price
		}
	}
	if st.TotalListings > 0 {
		st.AveragePrice = total / float64(st.TotalListings)
	}
	for _, a := range appointments {
		st.TotalAppointments++
		if a.Status == domain.AppointmentPending {
			st.PendingAppointments++
		}
		if !a.Viewed {
			st.UnviewedAppointments++
		}
	}
	for _, m := range messages {
		st.TotalMessages++
		if !m.Viewed {
			st.UnviewedMessages++
		}
	}
	return st, nil
}
