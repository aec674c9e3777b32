// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository mirrors externally authenticated users and owns their cascade.
type UserRepository interface {
	// Create inserts the user together with its profile in one transaction.
	Create(ctx context.Context, u *model.User, p *model.Profile) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Delete removes the user and everything it owns (profile, pet, mood history, checks, actions).
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileRepository reads and updates the per-user profile.
type ProfileRepository interface {
	// Get loads the profile of a user.
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// SetTwoFactor stores the 2FA flag. When the flag changes, a (when non-nil)
	// is appended in the same transaction. It reports whether the flag changed.
	SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool, a *model.SecurityAction) (bool, error)
	// UpdatePreferences stores notification preferences.
	UpdatePreferences(ctx context.Context, userID uuid.UUID, emailNotifications, weeklyReports bool) error
	// SetSecurityScore stores total_security_score.
	SetSecurityScore(ctx context.Context, userID uuid.UUID, score int) error
	// TouchActivity advances the daily streak for the given UTC day and returns the new streak.
	TouchActivity(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
}
