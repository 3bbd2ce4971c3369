// Package repository implements the data access layer over MySQL. This file
// defines sentinel error values reused across repositories so that handlers
// can map failure cases onto HTTP statuses without string matching.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id or code matches no row.
// Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert would violate the unique email
// constraint on users or donors.
var ErrEmailExists = errors.New("email already exists")

// Invite redemption failures, checked in this order (first failure wins).
var (
	// ErrInviteInvalid covers an unknown code and an already-used code
	// identically, so a caller probing codes learns nothing extra.
	ErrInviteInvalid = errors.New("invalid or expired invite code")
	// ErrInviteExpired is returned when the redemption window has closed.
	// The invite row stays untouched; expiry is a pure time check.
	ErrInviteExpired = errors.New("invite code has expired")
	// ErrEmailMismatch is returned when the redeeming email differs from
	// the one the invite was issued for.
	ErrEmailMismatch = errors.New("email does not match invite")
	// ErrUserExists is returned when the invite's email already has an
	// account.
	ErrUserExists = errors.New("user already exists")
)

// ErrSponsorshipClosed is returned when a booking is attempted against a
// sponsorship that is closed or has no slots left. Handlers translate this
// into HTTP 409.
var ErrSponsorshipClosed = errors.New("sponsorship is fully booked")
