package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*InviteRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewInviteRepo(db), mock
}

func inviteRows(email string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "invite_code", "system_password", "assigned_towers",
		"role", "is_used", "expires_at", "created_by", "created_at",
	}).AddRow(7, email, "Asha", "ABCD1234", nil, "[1,2]", "collector", false,
		expiresAt, 1, time.Now().Add(-time.Hour))
}

func TestFindRedeemableTx(t *testing.T) {
	future := time.Now().Add(48 * time.Hour)

	t.Run("redeemable", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites WHERE invite_code=\\? AND is_used=0 .+ FOR UPDATE").
			WithArgs("ABCD1234").
			WillReturnRows(inviteRows("asha@example.com", future))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		inv, err := repo.FindRedeemableTx(context.Background(), tx, "ABCD1234", "Asha@Example.COM ", time.Now())
		require.NoError(t, err)
		assert.Equal(t, uint64(7), inv.ID)
		assert.Equal(t, []int{1, 2}, inv.AssignedTowers)
	})

	t.Run("unknown or used code", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites WHERE invite_code=\\? AND is_used=0").
			WithArgs("NOPE0000").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.FindRedeemableTx(context.Background(), tx, "NOPE0000", "asha@example.com", time.Now())
		assert.ErrorIs(t, err, ErrInviteInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites").
			WithArgs("ABCD1234").
			WillReturnRows(inviteRows("asha@example.com", time.Now().Add(-time.Minute)))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.FindRedeemableTx(context.Background(), tx, "ABCD1234", "asha@example.com", time.Now())
		assert.ErrorIs(t, err, ErrInviteExpired)
	})

	t.Run("expiry checked before email", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites").
			WithArgs("ABCD1234").
			WillReturnRows(inviteRows("asha@example.com", time.Now().Add(-time.Minute)))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.FindRedeemableTx(context.Background(), tx, "ABCD1234", "other@example.com", time.Now())
		assert.ErrorIs(t, err, ErrInviteExpired)
	})

	t.Run("email mismatch", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites").
			WithArgs("ABCD1234").
			WillReturnRows(inviteRows("asha@example.com", future))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.FindRedeemableTx(context.Background(), tx, "ABCD1234", "other@example.com", time.Now())
		assert.ErrorIs(t, err, ErrEmailMismatch)
	})
}

func TestMarkUsedTx(t *testing.T) {
	t.Run("consumes once", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE invites SET is_used=1 WHERE id=\\? AND is_used=0").
			WithArgs(uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		assert.NoError(t, repo.MarkUsedTx(context.Background(), tx, 7))
	})

	t.Run("already used", func(t *testing.T) {
		repo, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE invites SET is_used=1").
			WithArgs(uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		assert.ErrorIs(t, repo.MarkUsedTx(context.Background(), tx, 7), ErrInviteInvalid)
	})
}
