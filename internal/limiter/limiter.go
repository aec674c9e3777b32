// Package limiter throttles calls to the external breach source per (user, e-mail).
package limiter

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Limiter bounds provider lookups and places temporary blocks.
type Limiter interface {
	// Allow reports whether a lookup is currently allowed and an optional retry-after.
	Allow(ctx context.Context, userID uuid.UUID, keyHash []byte) (bool, time.Duration, error)
	// Hit records a lookup; reaching the budget within the window places a block.
	Hit(ctx context.Context, userID uuid.UUID, keyHash []byte) (bool, time.Duration, error)
}
