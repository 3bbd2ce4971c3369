package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword(hash, ""))
	assert.False(t, VerifyPassword("", "s3cret-pass"))
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	// bcrypt salts internally; two hashes of one password must differ.
	assert.NotEqual(t, h1, h2)
}

func TestInviteCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			ok := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, ok, "unexpected rune %q in %s", r, code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45, "codes should be effectively unique")
}

func TestSystemPasswordShape(t *testing.T) {
	pw, err := NewSystemPassword()
	require.NoError(t, err)
	assert.Len(t, pw, 12)
}
