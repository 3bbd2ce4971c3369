package model

import "time"

// Sponsorship is a named sponsorship slot with a fixed price and a bounded
// number of bookings. Booked counts up towards MaxCount; when the last slot
// is taken the sponsorship is closed and further bookings are rejected. The
// increment and the close happen in the same transaction as the donation
// that books the slot.
type Sponsorship struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	MaxCount  int       `json:"max_count"`
	Booked    int       `json:"booked"`
	IsClosed  bool      `json:"is_closed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available returns how many slots remain bookable.
func (s *Sponsorship) Available() int {
	if n := s.MaxCount - s.Booked; n > 0 {
		return n
	}
	return 0
}
