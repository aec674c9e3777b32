package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ActionRepo implements ActionRepository using PostgreSQL. Rows are never updated.
type ActionRepo struct{ db *DB }

// NewActionRepo constructs an activity log repository.
func NewActionRepo(db *DB) *ActionRepo { return &ActionRepo{db: db} }

// Append inserts an action and fills ID and CreatedAt.
func (r *ActionRepo) Append(ctx context.Context, a *model.SecurityAction) error {
	return appendAction(ctx, r.db.Pool, a)
}

// rowQuerier is satisfied by both the pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func appendAction(ctx context.Context, q rowQuerier, a *model.SecurityAction) error {
	details, err := encodeDetails(a.Details)
	if err != nil {
		return err
	}
	const ins = `
INSERT INTO security_actions (user_id, action_type, details)
VALUES ($1, $2, $3)
RETURNING id, created_at`
	return q.QueryRow(ctx, ins, a.UserID, string(a.ActionType), details).Scan(&a.ID, &a.CreatedAt)
}

// Since returns actions newer than or equal to since, newest first.
func (r *ActionRepo) Since(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]model.SecurityAction, error) {
	const q = `
SELECT id, user_id, action_type, details, created_at
FROM security_actions
WHERE user_id=$1 AND created_at >= $2
ORDER BY created_at DESC, id DESC
LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, since, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SecurityAction
	for rows.Next() {
		var (
			a       model.SecurityAction
			kind    string
			details []byte
		)
		if err = rows.Scan(&a.ID, &a.UserID, &kind, &details, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ActionType = model.ActionType(kind)
		if a.Details, err = decodeDetails(details); err != nil {
			return nil, fmt.Errorf("action %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeDetails(d map[string]any) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func decodeDetails(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
