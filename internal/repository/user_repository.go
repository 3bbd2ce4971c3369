package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/donation-tracker/internal/model"
)

// UserRepo persists users and their role assignments. Tower lists live in a
// JSON string column (role_assignments.assigned_towers); encoding and
// decoding happen here so every other layer works with []int.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span users, role assignments and invites.
func (r *UserRepo) DB() *sql.DB { return r.db }

const userColumns = "id, email, name, password_hash, google_id, is_active, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.GoogleID,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = NormalizeEmail(email)
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// ExistsByEmail reports whether any user holds the given email.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE email=? LIMIT 1", email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// List returns all users ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.GoogleID,
			&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateTx inserts a user inside an existing transaction and returns the
// generated id. It is used by invite redemption so that the user insert, the
// role insert and the invite consumption commit or roll back together.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, name string, passwordHash, googleID *string) (uint64, error) {
	email = NormalizeEmail(email)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, google_id) VALUES (?,?,?,?)",
		email, name, passwordHash, googleID)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// UpdateProfile changes a user's email and name.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, email, name string) error {
	email = NormalizeEmail(email)
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET email=?, name=? WHERE id=?", email, name, id)
	if isDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// Delete removes a user. role_assignments rows go with it via the FK
// cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RolesForUser loads a user's role assignments fresh from storage. The
// tower-access middleware calls this on every guarded request instead of
// trusting the token's embedded snapshot, so tower reassignments take effect
// immediately there even while older tokens still carry the stale claim.
func (r *UserRepo) RolesForUser(ctx context.Context, userID uint64) ([]model.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, role, assigned_towers, created_at FROM role_assignments WHERE user_id=?",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoleAssignment
	for rows.Next() {
		var ra model.RoleAssignment
		var towers sql.NullString
		if err := rows.Scan(&ra.ID, &ra.UserID, &ra.Role, &towers, &ra.CreatedAt); err != nil {
			return nil, err
		}
		ra.AssignedTowers = decodeTowers(towers)
		out = append(out, ra)
	}
	return out, rows.Err()
}

// CreateRoleTx inserts a role assignment inside an existing transaction.
func (r *UserRepo) CreateRoleTx(ctx context.Context, tx *sql.Tx, userID uint64, role string, towers []int) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO role_assignments (user_id, role, assigned_towers) VALUES (?,?,?)",
		userID, role, encodeTowers(towers))
	return err
}

// ReplaceRole updates a user's single practical role assignment, creating
// one when none exists yet. The existence test reads RowsAffected, which
// reports matched rows because the DSN sets clientFoundRows; a no-change
// update still counts its row instead of falling through to the insert.
func (r *UserRepo) ReplaceRole(ctx context.Context, userID uint64, role string, towers []int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE role_assignments SET role=?, assigned_towers=? WHERE user_id=?",
		role, encodeTowers(towers), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO role_assignments (user_id, role, assigned_towers) VALUES (?,?,?)",
		userID, role, encodeTowers(towers))
	return err
}

// NormalizeEmail lowercases and trims an address so lookups and unique
// constraints agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// encodeTowers serializes a tower list for the JSON string column. nil
// encodes as an empty list so the column is never NULL for new rows.
func encodeTowers(towers []int) string {
	if towers == nil {
		towers = []int{}
	}
	b, _ := json.Marshal(towers)
	return string(b)
}

// decodeTowers parses the stored tower list, tolerating NULL and malformed
// history as an empty set.
func decodeTowers(s sql.NullString) []int {
	if !s.Valid || s.String == "" {
		return []int{}
	}
	var towers []int
	if err := json.Unmarshal([]byte(s.String), &towers); err != nil {
		return []int{}
	}
	return towers
}
