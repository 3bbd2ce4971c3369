package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// DonationRecordedQueue is the durable queue carrying one event per recorded
// donation. A consumer appends them to an audit log.
const DonationRecordedQueue = "donation.recorded"

// DonationRecordedEvent is the message published after a donation commits.
type DonationRecordedEvent struct {
	EventID       string    `json:"event_id"`
	DonationID    uint64    `json:"donation_id"`
	Apartment     string    `json:"apartment"`
	Tower         int       `json:"tower"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Sponsorship   string    `json:"sponsorship,omitempty"`
	VolunteerName string    `json:"volunteer_name,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// NewDonationRecordedEvent builds the event for a freshly committed donation.
func NewDonationRecordedEvent(d model.Donation) DonationRecordedEvent {
	ev := DonationRecordedEvent{
		EventID:    uuid.NewString(),
		DonationID: d.ID,
		Apartment:  model.ApartmentLabel(d.Tower, d.Floor, d.Unit),
		Tower:      d.Tower,
		Amount:     d.Amount,
		Status:     d.Status,
		RecordedAt: time.Now().UTC(),
	}
	if d.Sponsorship != nil {
		ev.Sponsorship = *d.Sponsorship
	}
	if d.VolunteerName != nil {
		ev.VolunteerName = *d.VolunteerName
	}
	return ev
}
