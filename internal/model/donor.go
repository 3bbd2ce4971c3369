package model

import "time"

// Donor is a registered contributor record. Donations may optionally
// reference a donor; apartment door-to-door donations usually carry only a
// free-text donor name instead.
type Donor struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
