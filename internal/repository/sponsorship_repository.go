package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// SponsorshipRepo persists sponsorship slots. Booking is a bounded counter:
// BookTx locks the row, rejects closed or full slots, increments the booked
// count and closes the slot when the last place is taken. It runs inside the
// same transaction as the donation recording the booking.
type SponsorshipRepo struct{ db *sql.DB }

func NewSponsorshipRepo(db *sql.DB) *SponsorshipRepo { return &SponsorshipRepo{db: db} }

// DB exposes the underlying handle for booking transactions.
func (r *SponsorshipRepo) DB() *sql.DB { return r.db }

const sponsorshipColumns = "id, name, amount, max_count, booked, is_closed, created_at, updated_at"

func scanSponsorship(scan func(dest ...any) error) (model.Sponsorship, error) {
	var s model.Sponsorship
	err := scan(&s.ID, &s.Name, &s.Amount, &s.MaxCount, &s.Booked, &s.IsClosed,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a sponsorship slot and populates its generated id.
func (r *SponsorshipRepo) Create(ctx context.Context, s *model.Sponsorship) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO sponsorships (name, amount, max_count, booked, is_closed) VALUES (?,?,?,?,?)",
		s.Name, s.Amount, s.MaxCount, s.Booked, s.IsClosed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// List returns all sponsorships ordered by name.
func (r *SponsorshipRepo) List(ctx context.Context) ([]model.Sponsorship, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sponsorshipColumns+" FROM sponsorships ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Sponsorship
	for rows.Next() {
		s, err := scanSponsorship(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID fetches a sponsorship by id.
func (r *SponsorshipRepo) GetByID(ctx context.Context, id uint64) (model.Sponsorship, error) {
	s, err := scanSponsorship(r.db.QueryRowContext(ctx,
		"SELECT "+sponsorshipColumns+" FROM sponsorships WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// BookTx takes one slot of a sponsorship inside the caller's transaction.
// The SELECT ... FOR UPDATE serializes concurrent bookings of the same slot;
// whichever transaction wins the lock sees the true booked count and the
// loser re-evaluates after commit. Returns the sponsorship state after the
// increment.
func (r *SponsorshipRepo) BookTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Sponsorship, error) {
	s, err := scanSponsorship(tx.QueryRowContext(ctx,
		"SELECT "+sponsorshipColumns+" FROM sponsorships WHERE id=? FOR UPDATE", id).Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if s.IsClosed || s.Booked >= s.MaxCount {
		return s, ErrSponsorshipClosed
	}
	s.Booked++
	s.IsClosed = s.Booked >= s.MaxCount
	_, err = tx.ExecContext(ctx,
		"UPDATE sponsorships SET booked=?, is_closed=? WHERE id=?",
		s.Booked, s.IsClosed, s.ID)
	return s, err
}
