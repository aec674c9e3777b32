package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get selects the profile of a user.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	const q = `
SELECT user_id, email_notifications, weekly_reports, pet_name_customized, two_factor_enabled,
       last_password_check, last_breach_check, total_security_score, streak_days, last_active_on,
       fingerprint_salt, created_at, updated_at
FROM profiles WHERE user_id=$1`
	var p model.Profile
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(
		&p.UserID, &p.EmailNotifications, &p.WeeklyReports, &p.PetNameCustomized, &p.TwoFactorEnabled,
		&p.LastPasswordCheck, &p.LastBreachCheck, &p.TotalSecurityScore, &p.StreakDays, &p.LastActiveOn,
		&p.FingerprintSalt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetTwoFactor updates the 2FA flag under a row lock. Setting the current value is a no-op.
func (r *ProfileRepo) SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool, a *model.SecurityAction) (changed bool, err error) {
	const sel = `SELECT two_factor_enabled FROM profiles WHERE user_id=$1 FOR UPDATE`
	const upd = `UPDATE profiles SET two_factor_enabled=$2, updated_at=now() WHERE user_id=$1`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		var cur bool
		if err := tx.QueryRow(ctx, sel, userID).Scan(&cur); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		if cur == enabled {
			return nil
		}
		if _, err := tx.Exec(ctx, upd, userID, enabled); err != nil {
			return err
		}
		changed = true
		if a == nil {
			return nil
		}
		return appendAction(ctx, tx, a)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// UpdatePreferences updates notification preferences.
func (r *ProfileRepo) UpdatePreferences(ctx context.Context, userID uuid.UUID, emailNotifications, weeklyReports bool) error {
	const q = `UPDATE profiles SET email_notifications=$2, weekly_reports=$3, updated_at=now() WHERE user_id=$1`
	return r.exec(ctx, q, userID, emailNotifications, weeklyReports)
}

// SetSecurityScore updates total_security_score.
func (r *ProfileRepo) SetSecurityScore(ctx context.Context, userID uuid.UUID, score int) error {
	const q = `UPDATE profiles SET total_security_score=$2, updated_at=now() WHERE user_id=$1`
	return r.exec(ctx, q, userID, score)
}

// TouchActivity keeps the streak on the same day, extends it on the next day and resets it otherwise.
func (r *ProfileRepo) TouchActivity(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	const q = `
UPDATE profiles SET
  streak_days = CASE
    WHEN last_active_on = $2::date THEN streak_days
    WHEN last_active_on = $2::date - 1 THEN streak_days + 1
    ELSE 1 END,
  last_active_on = $2::date,
  updated_at = now()
WHERE user_id=$1
RETURNING streak_days`
	var streak int
	if err := r.db.Pool.QueryRow(ctx, q, userID, day.UTC().Truncate(24*time.Hour)).Scan(&streak); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return streak, nil
}
