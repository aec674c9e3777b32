package repository

import (
	"context"
	"time"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ActionRepository is the append-only activity log.
type ActionRepository interface {
	// Append stores a new action and fills its ID and CreatedAt.
	Append(ctx context.Context, a *model.SecurityAction) error
	// Since returns actions with created_at >= since, newest first. limit <= 0 means unbounded.
	Since(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]model.SecurityAction, error)
}
