package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	t.Run("with password", func(t *testing.T) {
		dsn := buildDSN("app", "s3cret", "db.local", "3306", "donations")
		assert.Equal(t,
			"app:s3cret@tcp(db.local:3306)/donations?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			dsn)
	})

	t.Run("without password", func(t *testing.T) {
		dsn := buildDSN("root", "", "127.0.0.1", "3306", "donations")
		assert.Equal(t,
			"root@tcp(127.0.0.1:3306)/donations?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			dsn)
	})

	// The repositories key "row exists" decisions on RowsAffected, so the
	// driver has to report matched rows, not changed rows.
	t.Run("pins matched-row reporting", func(t *testing.T) {
		assert.Contains(t, buildDSN("u", "", "h", "3306", "d"), "clientFoundRows=true")
	})
}
