package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with a fixed window and lockout.
type PG struct {
	pool     pgxQuerier
	window   time.Duration
	maxHits  int
	blockFor time.Duration
	now      func() time.Time
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxHits int, blockFor time.Duration) *PG {
	return NewPGWithQuerier(pool, window, maxHits, blockFor)
}

// NewPGWithQuerier constructs a limiter over any querier (pool, tx or a fake).
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxHits int, blockFor time.Duration) *PG {
	return &PG{pool: q, window: window, maxHits: maxHits, blockFor: blockFor, now: time.Now}
}

// HashKey returns a stable hash of a normalized e-mail so raw addresses never reach the limiter table.
func HashKey(email string) []byte {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return h[:]
}

// Allow reports whether a lookup is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, userID uuid.UUID, keyHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM breach_limiter WHERE user_id=$1 AND email_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, userID, keyHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if wait := blockedUntil.Sub(l.now()); wait > 0 {
			return false, wait, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Hit records a lookup and blocks the key once maxHits is reached inside the window.
func (l *PG) Hit(ctx context.Context, userID uuid.UUID, keyHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO breach_limiter (user_id, email_hash, hits, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (user_id, email_hash) DO UPDATE
SET
  hits = CASE WHEN EXCLUDED.updated_at - breach_limiter.updated_at > $3::interval THEN 1 ELSE breach_limiter.hits + 1 END,
  updated_at = CASE WHEN EXCLUDED.updated_at - breach_limiter.updated_at > $3::interval THEN now() ELSE breach_limiter.updated_at END
RETURNING hits`
	var hits int
	if err := l.pool.QueryRow(ctx, q, userID, keyHash, l.window).Scan(&hits); err != nil {
		return false, 0, err
	}
	if l.maxHits <= 0 || hits < l.maxHits {
		return false, 0, nil
	}
	const upd = `UPDATE breach_limiter SET blocked_until=$3 WHERE user_id=$1 AND email_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, userID, keyHash, l.now().Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
