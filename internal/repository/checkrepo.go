package repository

import (
	"context"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CheckRepository stores password and breach check results.
type CheckRepository interface {
	// SavePasswordCheck records the check, decides IsUnique from the fingerprint set
	// and updates profile.last_password_check atomically.
	SavePasswordCheck(ctx context.Context, pc *model.PasswordCheck, fingerprint []byte) error
	// LatestPasswordCheck returns the newest check or errs.ErrNotFound.
	LatestPasswordCheck(ctx context.Context, userID uuid.UUID) (*model.PasswordCheck, error)

	// UpsertBreachCheck inserts or updates the (user, email) row, updates
	// profile.last_breach_check and appends a (when non-nil) atomically.
	// It reports whether the row was created.
	UpsertBreachCheck(ctx context.Context, bc *model.BreachCheck, a *model.SecurityAction) (bool, error)
	// GetBreachCheck returns the row for (user, email) or errs.ErrNotFound.
	GetBreachCheck(ctx context.Context, userID uuid.UUID, email string) (*model.BreachCheck, error)
	// LatestBreachCheck returns the most recently checked row or errs.ErrNotFound.
	LatestBreachCheck(ctx context.Context, userID uuid.UUID) (*model.BreachCheck, error)
}
