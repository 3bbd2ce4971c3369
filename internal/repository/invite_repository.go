package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// InviteRepo persists invites. Redemption is split into FindRedeemableTx and
// MarkUsedTx so the handler can run the full invariant chain and the
// dependent user/role inserts inside one transaction; the database's
// isolation, not application locking, prevents two concurrent redemptions of
// the same code from both succeeding.
type InviteRepo struct{ db *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{db: db} }

const inviteColumns = "id, email, name, invite_code, system_password, assigned_towers, role, is_used, expires_at, created_by, created_at"

func scanInvite(scan func(dest ...any) error) (model.Invite, error) {
	var inv model.Invite
	var towers sql.NullString
	err := scan(&inv.ID, &inv.Email, &inv.Name, &inv.Code, &inv.SystemPassword,
		&towers, &inv.Role, &inv.IsUsed, &inv.ExpiresAt, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		return inv, err
	}
	inv.AssignedTowers = decodeTowers(towers)
	return inv, nil
}

// Create inserts a new invite and returns its generated id.
func (r *InviteRepo) Create(ctx context.Context, inv *model.Invite) error {
	inv.Email = NormalizeEmail(inv.Email)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (email, name, invite_code, system_password, assigned_towers, role, expires_at, created_by)
		 VALUES (?,?,?,?,?,?,?,?)`,
		inv.Email, inv.Name, inv.Code, inv.SystemPassword,
		encodeTowers(inv.AssignedTowers), inv.Role, inv.ExpiresAt, inv.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// List returns all invites, newest first.
func (r *InviteRepo) List(ctx context.Context) ([]model.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+inviteColumns+" FROM invites ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Invite
	for rows.Next() {
		inv, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// GetByCode fetches an invite by its code regardless of state. Used by the
// public invite lookup, which reports used/expired states itself.
func (r *InviteRepo) GetByCode(ctx context.Context, code string) (model.Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE invite_code=? LIMIT 1", code).Scan)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	return inv, err
}

// FindRedeemableTx locates an unused invite by code inside a transaction,
// locking the row so a concurrent redemption of the same code blocks until
// this transaction resolves. The checks run in a fixed order: unknown or
// used code first, then expiry, then email mismatch.
func (r *InviteRepo) FindRedeemableTx(ctx context.Context, tx *sql.Tx, code, email string, now time.Time) (model.Invite, error) {
	inv, err := scanInvite(tx.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE invite_code=? AND is_used=0 LIMIT 1 FOR UPDATE",
		code).Scan)
	if err == sql.ErrNoRows {
		return inv, ErrInviteInvalid
	}
	if err != nil {
		return inv, err
	}
	if !now.Before(inv.ExpiresAt) {
		// Expired invites are left unflagged; the time check alone makes
		// them permanently unredeemable.
		return inv, ErrInviteExpired
	}
	if inv.Email != NormalizeEmail(email) {
		return inv, ErrEmailMismatch
	}
	return inv, nil
}

// MarkUsedTx consumes an invite inside the redemption transaction.
func (r *InviteRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE invites SET is_used=1 WHERE id=? AND is_used=0", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInviteInvalid
	}
	return nil
}
