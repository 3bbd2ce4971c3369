package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSponsorshipMock(t *testing.T) (*SponsorshipRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSponsorshipRepo(db), mock
}

func sponsorshipRow(booked, max int, closed bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "amount", "max_count", "booked", "is_closed", "created_at", "updated_at",
	}).AddRow(3, "Full Day Annadanam", 15000, max, booked, closed, time.Now(), time.Now())
}

func TestBookTx(t *testing.T) {
	t.Run("increments booked", func(t *testing.T) {
		repo, mock := newSponsorshipMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM sponsorships WHERE id=\\? FOR UPDATE").
			WithArgs(uint64(3)).
			WillReturnRows(sponsorshipRow(0, 2, false))
		mock.ExpectExec("UPDATE sponsorships SET booked=\\?, is_closed=\\?").
			WithArgs(1, false, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		s, err := repo.BookTx(context.Background(), tx, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Booked)
		assert.False(t, s.IsClosed)
		assert.Equal(t, 1, s.Available())
	})

	t.Run("last slot closes", func(t *testing.T) {
		repo, mock := newSponsorshipMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM sponsorships WHERE id=\\? FOR UPDATE").
			WithArgs(uint64(3)).
			WillReturnRows(sponsorshipRow(1, 2, false))
		mock.ExpectExec("UPDATE sponsorships SET booked=\\?, is_closed=\\?").
			WithArgs(2, true, uint64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		s, err := repo.BookTx(context.Background(), tx, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Booked)
		assert.True(t, s.IsClosed)
		assert.Equal(t, 0, s.Available())
	})

	t.Run("closed slot rejected", func(t *testing.T) {
		repo, mock := newSponsorshipMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM sponsorships WHERE id=\\? FOR UPDATE").
			WithArgs(uint64(3)).
			WillReturnRows(sponsorshipRow(2, 2, true))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.BookTx(context.Background(), tx, 3)
		assert.ErrorIs(t, err, ErrSponsorshipClosed)
	})

	t.Run("full but not flagged closed still rejected", func(t *testing.T) {
		repo, mock := newSponsorshipMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM sponsorships WHERE id=\\? FOR UPDATE").
			WithArgs(uint64(3)).
			WillReturnRows(sponsorshipRow(2, 2, false))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.BookTx(context.Background(), tx, 3)
		assert.ErrorIs(t, err, ErrSponsorshipClosed)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, mock := newSponsorshipMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM sponsorships WHERE id=\\? FOR UPDATE").
			WithArgs(uint64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		tx, err := repo.db.Begin()
		require.NoError(t, err)
		_, err = repo.BookTx(context.Background(), tx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
