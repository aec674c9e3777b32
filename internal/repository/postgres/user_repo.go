package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user row and its profile row.
func (r *UserRepo) Create(ctx context.Context, u *model.User, p *model.Profile) error {
	const insUser = `
INSERT INTO users (id, username)
VALUES ($1, $2)
RETURNING created_at`
	const insProfile = `
INSERT INTO profiles (user_id, email_notifications, weekly_reports, fingerprint_salt)
VALUES ($1, $2, $3, $4)`

	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insUser, u.ID, u.Username).Scan(&u.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insProfile, u.ID, p.EmailNotifications, p.WeeklyReports, p.FingerprintSalt)
		return err
	})
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT id, username, created_at FROM users WHERE id=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// cascade lists owned rows in dependency order; the users row goes last.
var cascade = []string{
	`DELETE FROM mood_history WHERE pet_id IN (SELECT id FROM pets WHERE owner_id=$1)`,
	`DELETE FROM pets WHERE owner_id=$1`,
	`DELETE FROM profiles WHERE user_id=$1`,
	`DELETE FROM password_fingerprints WHERE user_id=$1`,
	`DELETE FROM password_checks WHERE user_id=$1`,
	`DELETE FROM breach_checks WHERE user_id=$1`,
	`DELETE FROM breach_limiter WHERE user_id=$1`,
	`DELETE FROM security_actions WHERE user_id=$1`,
}

// Delete removes the user and all owned rows in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		for _, q := range cascade {
			if _, err := tx.Exec(ctx, q, id); err != nil {
				return fmt.Errorf("cascade %q: %w", q, err)
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}
