package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// DonationRepo provides CRUD and reporting queries for donations. Creation
// runs inside a caller-owned transaction because a donation may also bump a
// campaign total or book a sponsorship slot, and those writes must commit
// together.
type DonationRepo struct{ db *sql.DB }

func NewDonationRepo(db *sql.DB) *DonationRepo { return &DonationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning donations, campaigns and sponsorships.
func (r *DonationRepo) DB() *sql.DB { return r.db }

const donationColumns = "id, amount, tower, floor, unit, donor_name, phone_number, head_count, upi_other_person, sponsorship, notes, volunteer_id, volunteer_name, message, is_anonymous, payment_method, status, donor_id, campaign_id, created_at, updated_at"

func scanDonation(scan func(dest ...any) error) (model.Donation, error) {
	var d model.Donation
	err := scan(&d.ID, &d.Amount, &d.Tower, &d.Floor, &d.Unit, &d.DonorName,
		&d.PhoneNumber, &d.HeadCount, &d.UPIOtherPerson, &d.Sponsorship, &d.Notes,
		&d.VolunteerID, &d.VolunteerName, &d.Message, &d.IsAnonymous,
		&d.PaymentMethod, &d.Status, &d.DonorID, &d.CampaignID,
		&d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateTx inserts a donation inside an existing transaction and populates
// its generated id.
func (r *DonationRepo) CreateTx(ctx context.Context, tx *sql.Tx, d *model.Donation) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO donations (amount, tower, floor, unit, donor_name, phone_number, head_count,
		 upi_other_person, sponsorship, notes, volunteer_id, volunteer_name, message,
		 is_anonymous, payment_method, status, donor_id, campaign_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.Amount, d.Tower, d.Floor, d.Unit, d.DonorName, d.PhoneNumber, d.HeadCount,
		d.UPIOtherPerson, d.Sponsorship, d.Notes, d.VolunteerID, d.VolunteerName, d.Message,
		d.IsAnonymous, d.PaymentMethod, d.Status, d.DonorID, d.CampaignID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// GetByID fetches a donation by id.
func (r *DonationRepo) GetByID(ctx context.Context, id uint64) (model.Donation, error) {
	d, err := scanDonation(r.db.QueryRowContext(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// GetByIDTx fetches a donation inside an existing transaction and locks the
// row, so an update or delete can compensate the linked campaign total
// without racing a concurrent edit.
func (r *DonationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Donation, error) {
	d, err := scanDonation(tx.QueryRowContext(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE id=? LIMIT 1 FOR UPDATE", id).Scan)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Tower  int
	Status string
}

// List returns donations, newest first, optionally filtered by tower and
// status.
func (r *DonationRepo) List(ctx context.Context, f ListFilter) ([]model.Donation, error) {
	query := "SELECT " + donationColumns + " FROM donations WHERE 1=1"
	args := []any{}
	if f.Tower != 0 {
		query += " AND tower=?"
		args = append(args, f.Tower)
	}
	if f.Status != "" {
		query += " AND status=?"
		args = append(args, f.Status)
	}
	query += " ORDER BY created_at DESC"
	return r.queryDonations(ctx, query, args...)
}

// ByApartment returns every donation recorded for one apartment.
func (r *DonationRepo) ByApartment(ctx context.Context, tower, floor, unit int) ([]model.Donation, error) {
	return r.queryDonations(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE tower=? AND floor=? AND unit=? ORDER BY created_at DESC",
		tower, floor, unit)
}

// ByTower returns a tower's donations ordered for the per-tower report
// sheet: floor descending, unit ascending.
func (r *DonationRepo) ByTower(ctx context.Context, tower int) ([]model.Donation, error) {
	return r.queryDonations(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE tower=? ORDER BY floor DESC, unit",
		tower)
}

// WithSponsorship returns donations that booked a sponsorship, newest first.
func (r *DonationRepo) WithSponsorship(ctx context.Context) ([]model.Donation, error) {
	return r.queryDonations(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE sponsorship IS NOT NULL AND sponsorship <> '' ORDER BY created_at DESC")
}

func (r *DonationRepo) queryDonations(ctx context.Context, query string, args ...any) ([]model.Donation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Donation
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateTx rewrites a donation's mutable fields, including its donor and
// campaign links, inside an existing transaction. The campaign total
// compensation that may accompany an edit must commit with it.
func (r *DonationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, d *model.Donation) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE donations SET amount=?, tower=?, floor=?, unit=?, donor_name=?, phone_number=?,
		 head_count=?, upi_other_person=?, sponsorship=?, notes=?, volunteer_id=?, volunteer_name=?,
		 message=?, is_anonymous=?, payment_method=?, status=?, donor_id=?, campaign_id=? WHERE id=?`,
		d.Amount, d.Tower, d.Floor, d.Unit, d.DonorName, d.PhoneNumber,
		d.HeadCount, d.UPIOtherPerson, d.Sponsorship, d.Notes, d.VolunteerID, d.VolunteerName,
		d.Message, d.IsAnonymous, d.PaymentMethod, d.Status, d.DonorID, d.CampaignID, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx removes a donation inside an existing transaction.
func (r *DonationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM donations WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates the collection-wide numbers shown on the stats endpoint
// and the report's metadata block.
type Stats struct {
	TotalDonations int    `json:"total_donations"`
	TotalAmount    int64  `json:"total_amount"`
	CompletedCount int    `json:"completed_count"`
	FollowUpCount  int    `json:"follow_up_count"`
	SkippedCount   int    `json:"skipped_count"`
	TowersCovered  int    `json:"towers_covered"`
	LastDonationAt string `json:"last_donation_at"`
}

// GetStats computes overall collection statistics. Only completed donations
// count towards the total amount.
func (r *DonationRepo) GetStats(ctx context.Context) (Stats, error) {
	var s Stats
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status='completed' THEN amount ELSE 0 END), 0),
		COALESCE(SUM(status='completed'), 0),
		COALESCE(SUM(status='follow-up'), 0),
		COALESCE(SUM(status='skipped'), 0),
		COUNT(DISTINCT tower),
		MAX(created_at)
		FROM donations`).
		Scan(&s.TotalDonations, &s.TotalAmount, &s.CompletedCount, &s.FollowUpCount,
			&s.SkippedCount, &s.TowersCovered, &last)
	if last.Valid {
		s.LastDonationAt = last.Time.UTC().Format(time.RFC3339)
	}
	return s, err
}

// TowerStats aggregates a single tower's progress.
type TowerStats struct {
	Tower       int   `json:"tower"`
	TotalAmount int64 `json:"total_amount"`
	Completed   int   `json:"completed"`
	FollowUps   int   `json:"follow_ups"`
	Skipped     int   `json:"skipped"`
}

// Visited returns how many apartments in the tower have been visited in any
// outcome.
func (t TowerStats) Visited() int { return t.Completed + t.FollowUps + t.Skipped }

// GetTowerStats computes one tower's statistics.
func (r *DonationRepo) GetTowerStats(ctx context.Context, tower int) (TowerStats, error) {
	s := TowerStats{Tower: tower}
	err := r.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN status='completed' THEN amount ELSE 0 END), 0),
		COALESCE(SUM(status='completed'), 0),
		COALESCE(SUM(status='follow-up'), 0),
		COALESCE(SUM(status='skipped'), 0)
		FROM donations WHERE tower=?`, tower).
		Scan(&s.TotalAmount, &s.Completed, &s.FollowUps, &s.Skipped)
	return s, err
}
