package model

import "time"

// Invite is a single-use registration capability. It authorizes exactly one
// email address to complete registration with a pre-assigned role and tower
// set. An invite is redeemable only while IsUsed is false and the expiry has
// not passed; redemption flips IsUsed permanently. An invite that expires
// unused is never flagged, it simply becomes unredeemable by the time check.
//
// Fields:
//  ID             – primary key identifier.
//  Email          – the only email allowed to redeem this invite.
//  Name           – display name pre-filled for the registrant.
//  Code           – unique random 8-character code (uppercase+digits).
//  SystemPassword – optional generated 12-character password the registrant
//                   may opt into instead of choosing one (nullable).
//  AssignedTowers – towers granted on redemption.
//  Role           – role granted on redemption.
//  IsUsed         – set true exactly once, at redemption.
//  ExpiresAt      – redemption deadline.
//  CreatedBy      – id of the admin who issued the invite.
//  CreatedAt      – timestamp of creation.
type Invite struct {
	ID             uint64    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Code           string    `json:"invite_code"`
	SystemPassword *string   `json:"system_password,omitempty"`
	AssignedTowers []int     `json:"assigned_towers"`
	Role           string    `json:"role"`
	IsUsed         bool      `json:"is_used"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedBy      uint64    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Redeemable reports whether the invite can still be redeemed at the given
// instant. The email match is checked separately so callers can distinguish
// the error cases.
func (i *Invite) Redeemable(now time.Time) bool {
	return !i.IsUsed && now.Before(i.ExpiresAt)
}
