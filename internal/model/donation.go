package model

import "time"

// Donation statuses. A visit that yielded no donation is still recorded so
// coverage reports can distinguish "visited, follow up later" from
// "not yet visited".
const (
	DonationCompleted = "completed"
	DonationFollowUp  = "follow-up"
	DonationSkipped   = "skipped"
	DonationPending   = "pending"
)

// Payment methods accepted at the door.
const (
	PaymentCash     = "cash"
	PaymentUPISelf  = "upi-self"
	PaymentUPIOther = "upi-other"
)

// Donation records one visit to an apartment. Tower/Floor/Unit locate the
// apartment; DonorName is the free-text name taken at the door. Amount is in
// whole rupees. The optional DonorID/CampaignID foreign keys exist for
// donations entered against registered donors or campaigns.
type Donation struct {
	ID             uint64    `json:"id"`
	Amount         int64     `json:"amount"`
	Tower          int       `json:"tower"`
	Floor          int       `json:"floor"`
	Unit           int       `json:"unit"`
	DonorName      string    `json:"donor_name"`
	PhoneNumber    *string   `json:"phone_number,omitempty"`
	HeadCount      *int      `json:"head_count,omitempty"`
	UPIOtherPerson *string   `json:"upi_other_person,omitempty"`
	Sponsorship    *string   `json:"sponsorship,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	VolunteerID    *string   `json:"volunteer_id,omitempty"`
	VolunteerName  *string   `json:"volunteer_name,omitempty"`
	Message        *string   `json:"message,omitempty"`
	IsAnonymous    bool      `json:"is_anonymous"`
	PaymentMethod  *string   `json:"payment_method,omitempty"`
	Status         string    `json:"status"`
	DonorID        *uint64   `json:"donor_id,omitempty"`
	CampaignID     *uint64   `json:"campaign_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ValidDonationStatus reports whether s is a known status value.
func ValidDonationStatus(s string) bool {
	switch s {
	case DonationCompleted, DonationFollowUp, DonationSkipped, DonationPending:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentUPISelf, PaymentUPIOther:
		return true
	}
	return false
}
