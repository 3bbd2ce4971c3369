package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// CampaignRepo provides CRUD operations for fundraising campaigns.
type CampaignRepo struct{ db *sql.DB }

func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = "id, title, description, goal_amount, current_amount, start_date, end_date, is_active, created_at, updated_at"

// Create inserts a campaign and populates its generated id.
func (r *CampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO campaigns (title, description, goal_amount, current_amount, start_date, end_date, is_active)
		 VALUES (?,?,?,?,?,?,?)`,
		c.Title, c.Description, c.GoalAmount, c.CurrentAmount, c.StartDate, c.EndDate, c.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a campaign by id.
func (r *CampaignRepo) GetByID(ctx context.Context, id uint64) (model.Campaign, error) {
	var c model.Campaign
	err := r.db.QueryRowContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Title, &c.Description, &c.GoalAmount, &c.CurrentAmount,
			&c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// List returns all campaigns, newest first.
func (r *CampaignRepo) List(ctx context.Context) ([]model.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Campaign
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.GoalAmount, &c.CurrentAmount,
			&c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites a campaign's mutable fields.
func (r *CampaignRepo) Update(ctx context.Context, c *model.Campaign) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET title=?, description=?, goal_amount=?, start_date=?, end_date=?, is_active=?
		 WHERE id=?`,
		c.Title, c.Description, c.GoalAmount, c.StartDate, c.EndDate, c.IsActive, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a campaign.
func (r *CampaignRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAmountTx bumps current_amount inside the transaction that records a
// donation linked to the campaign, so the running total can never drift from
// the donations that produced it.
func (r *CampaignRepo) AddAmountTx(ctx context.Context, tx *sql.Tx, id uint64, amount int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE campaigns SET current_amount = current_amount + ? WHERE id=?", amount, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
