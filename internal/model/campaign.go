package model

import "time"

// Campaign groups donations under a fundraising drive with a goal amount.
// CurrentAmount is maintained by the application when donations are linked
// to the campaign. Amounts are whole rupees.
type Campaign struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description,omitempty"`
	GoalAmount    int64     `json:"goal_amount"`
	CurrentAmount int64     `json:"current_amount"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
