package utils

import "crypto/rand"

// Alphabets for generated credentials. Invite codes stay uppercase+digits so
// they survive being read out over the phone; system passwords add lowercase
// for a little more entropy.
const (
	inviteCodeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	systemPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	InviteCodeLength     = 8
	SystemPasswordLength = 12
)

// NewInviteCode returns a random 8-character invite code drawn from
// uppercase letters and digits.
func NewInviteCode() (string, error) {
	return randomString(inviteCodeAlphabet, InviteCodeLength)
}

// NewSystemPassword returns a random 12-character password offered to
// registrants who do not want to choose their own.
func NewSystemPassword() (string, error) {
	return randomString(systemPasswordAlphabet, SystemPasswordLength)
}

// randomString draws n characters from alphabet using crypto/rand. The
// modulo bias from the 256 % len(alphabet) remainder is negligible for the
// alphabet sizes used here.
func randomString(alphabet string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf), nil
}
