package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/iliyamo/donation-tracker/internal/model"
)

// ErrInvalidToken is returned by ParseToken for every rejection: bad
// signature, expired, malformed, or wrong signing method. Callers must not
// distinguish these cases in responses; the single sentinel enforces that.
var ErrInvalidToken = errors.New("invalid token")

// RoleClaim is the role snapshot embedded in a session token. It mirrors
// model.RoleAssignment but is frozen at issuance time: later changes to the
// stored assignment do not alter tokens already in the wild.
type RoleClaim struct {
	Role           string `json:"role"`
	AssignedTowers []int  `json:"assigned_towers"`
}

// Claims is the full claim set carried by a session token.
type Claims struct {
	UserID uint64      `json:"user_id"`
	Email  string      `json:"email"`
	Roles  []RoleClaim `json:"roles"`
	jwt.RegisteredClaims
}

// RoleClaims converts stored role assignments into the snapshot form used
// inside tokens.
func RoleClaims(roles []model.RoleAssignment) []RoleClaim {
	out := make([]RoleClaim, 0, len(roles))
	for _, r := range roles {
		towers := r.AssignedTowers
		if towers == nil {
			towers = []int{}
		}
		out = append(out, RoleClaim{Role: r.Role, AssignedTowers: towers})
	}
	return out
}

// NewToken builds and signs an HS256 JWT for a user. The token embeds the
// user's identity and a snapshot of their role assignments and expires after
// ttlHours. It returns the serialized token and its expiry time.
func NewToken(secret string, userID uint64, email string, roles []RoleClaim, ttlHours int) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlHours) * time.Hour)
	claims := Claims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken verifies the signature and expiry of a token and returns its
// claims. Any failure collapses into ErrInvalidToken so the caller cannot
// leak whether a token was expired or forged.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with anything other than HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
