package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CheckRepo implements CheckRepository using PostgreSQL.
type CheckRepo struct{ db *DB }

// NewCheckRepo constructs a check repository.
func NewCheckRepo(db *DB) *CheckRepo { return &CheckRepo{db: db} }

// SavePasswordCheck stores the fingerprint (a conflict means reuse), the check row and the
// profile timestamp in one transaction.
func (r *CheckRepo) SavePasswordCheck(ctx context.Context, pc *model.PasswordCheck, fingerprint []byte) error {
	const insFP = `
INSERT INTO password_fingerprints (user_id, fingerprint)
VALUES ($1, $2)
ON CONFLICT (user_id, fingerprint) DO NOTHING`
	const insCheck = `
INSERT INTO password_checks (user_id, strength_score, has_uppercase, has_lowercase, has_numbers, has_symbols, length, is_unique)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`
	const touch = `UPDATE profiles SET last_password_check=$2, updated_at=now() WHERE user_id=$1`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insFP, pc.UserID, fingerprint)
		if err != nil {
			return err
		}
		pc.IsUnique = tag.RowsAffected() == 1

		err = tx.QueryRow(ctx, insCheck, pc.UserID, pc.StrengthScore, pc.HasUppercase, pc.HasLowercase,
			pc.HasNumbers, pc.HasSymbols, pc.Length, pc.IsUnique).Scan(&pc.ID, &pc.CreatedAt)
		if err != nil {
			return err
		}

		tag, err = tx.Exec(ctx, touch, pc.UserID, pc.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// LatestPasswordCheck returns the newest password check of a user.
func (r *CheckRepo) LatestPasswordCheck(ctx context.Context, userID uuid.UUID) (*model.PasswordCheck, error) {
	const q = `
SELECT id, user_id, strength_score, has_uppercase, has_lowercase, has_numbers, has_symbols, length, is_unique, created_at
FROM password_checks
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT 1`
	var pc model.PasswordCheck
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&pc.ID, &pc.UserID, &pc.StrengthScore, &pc.HasUppercase,
		&pc.HasLowercase, &pc.HasNumbers, &pc.HasSymbols, &pc.Length, &pc.IsUnique, &pc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &pc, nil
}

// UpsertBreachCheck is a single conditional insert-or-update keyed by (user_id, email_checked).
// xmax = 0 holds only for freshly inserted tuples. The result row and its action commit together.
func (r *CheckRepo) UpsertBreachCheck(ctx context.Context, bc *model.BreachCheck, a *model.SecurityAction) (created bool, err error) {
	details, err := json.Marshal(nonNilBreaches(bc.BreachDetails))
	if err != nil {
		return false, err
	}
	const upsert = `
INSERT INTO breach_checks (user_id, email_checked, breaches_found, breach_details, last_checked)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, email_checked) DO UPDATE
SET breaches_found=EXCLUDED.breaches_found, breach_details=EXCLUDED.breach_details, last_checked=EXCLUDED.last_checked
RETURNING id, (xmax = 0) AS created`
	const touch = `UPDATE profiles SET last_breach_check=$2, updated_at=now() WHERE user_id=$1`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsert, bc.UserID, bc.EmailChecked, bc.BreachesFound, details, bc.LastChecked).
			Scan(&bc.ID, &created); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, touch, bc.UserID, bc.LastChecked)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		if a == nil {
			return nil
		}
		return appendAction(ctx, tx, a)
	})
	return created, err
}

const selBreach = `
SELECT id, user_id, email_checked, breaches_found, breach_details, last_checked
FROM breach_checks`

// GetBreachCheck returns the stored check for (user, email).
func (r *CheckRepo) GetBreachCheck(ctx context.Context, userID uuid.UUID, email string) (*model.BreachCheck, error) {
	return r.scanBreach(r.db.Pool.QueryRow(ctx, selBreach+` WHERE user_id=$1 AND email_checked=$2`, userID, email))
}

// LatestBreachCheck returns the most recently checked row of a user.
func (r *CheckRepo) LatestBreachCheck(ctx context.Context, userID uuid.UUID) (*model.BreachCheck, error) {
	return r.scanBreach(r.db.Pool.QueryRow(ctx, selBreach+` WHERE user_id=$1 ORDER BY last_checked DESC, id DESC LIMIT 1`, userID))
}

func (r *CheckRepo) scanBreach(row pgx.Row) (*model.BreachCheck, error) {
	var (
		bc      model.BreachCheck
		details []byte
	)
	if err := row.Scan(&bc.ID, &bc.UserID, &bc.EmailChecked, &bc.BreachesFound, &details, &bc.LastChecked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	bc.BreachDetails = []model.BreachRecord{}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &bc.BreachDetails); err != nil {
			return nil, err
		}
	}
	return &bc, nil
}

func nonNilBreaches(b []model.BreachRecord) []model.BreachRecord {
	if b == nil {
		return []model.BreachRecord{}
	}
	return b
}
