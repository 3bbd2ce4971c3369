package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// DonorRepo provides CRUD operations for registered donors.
type DonorRepo struct{ db *sql.DB }

func NewDonorRepo(db *sql.DB) *DonorRepo { return &DonorRepo{db: db} }

const donorColumns = "id, name, email, phone, address, created_at, updated_at"

// Create inserts a donor and populates its generated id.
func (r *DonorRepo) Create(ctx context.Context, d *model.Donor) error {
	d.Email = NormalizeEmail(d.Email)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO donors (name, email, phone, address) VALUES (?,?,?,?)",
		d.Name, d.Email, d.Phone, d.Address)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// GetByID fetches a donor by id.
func (r *DonorRepo) GetByID(ctx context.Context, id uint64) (model.Donor, error) {
	var d model.Donor
	err := r.db.QueryRowContext(ctx,
		"SELECT "+donorColumns+" FROM donors WHERE id=? LIMIT 1", id).
		Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Address, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// List returns all donors ordered by name.
func (r *DonorRepo) List(ctx context.Context) ([]model.Donor, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+donorColumns+" FROM donors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Donor
	for rows.Next() {
		var d model.Donor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Address,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update rewrites a donor's mutable fields.
func (r *DonorRepo) Update(ctx context.Context, d *model.Donor) error {
	d.Email = NormalizeEmail(d.Email)
	res, err := r.db.ExecContext(ctx,
		"UPDATE donors SET name=?, email=?, phone=?, address=? WHERE id=?",
		d.Name, d.Email, d.Phone, d.Address, d.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a donor. Donations referencing it keep their denormalized
// donor_name; the FK is set NULL by the schema.
func (r *DonorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM donors WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
