package model

import "time"

// Role names stored in the role_assignments table. A collector may only act
// on the towers listed in their assignment; an admin is unrestricted.
const (
	RoleCollector = "collector"
	RoleAdmin     = "admin"
)

// User represents an application user record as stored in the `users`
// table. PasswordHash is nil for accounts created through Google sign-in,
// and GoogleID is nil for password-only accounts. Users are deactivated
// rather than deleted in normal operation.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password (nullable).
//  GoogleID     – unique external Google identity (nullable).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	GoogleID     *string   `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleAssignment pairs a user with a role name and the towers they may act
// on. The tower list is stored as a JSON string column in the database; the
// repository layer decodes it so the rest of the application only ever sees
// a []int. Assignments are cascade-deleted with their owning user.
type RoleAssignment struct {
	ID             uint64    `json:"-"`
	UserID         uint64    `json:"-"`
	Role           string    `json:"role"`
	AssignedTowers []int     `json:"assigned_towers"`
	CreatedAt      time.Time `json:"-"`
}

// CanAccessTower applies the tower access rule for a set of role
// assignments: admin grants every tower, collector grants membership in the
// assigned list.
func CanAccessTower(roles []RoleAssignment, tower int) bool {
	for _, r := range roles {
		if r.Role == RoleAdmin {
			return true
		}
		for _, t := range r.AssignedTowers {
			if t == tower {
				return true
			}
		}
	}
	return false
}
