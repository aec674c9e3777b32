// Package token signs and verifies the HS256 bearer tokens issued by the
// external session provider. The subject is the user UUID.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/cyber-companion/internal/errs"
)

// Leeway tolerates clock skew between the session provider and this service.
const Leeway = 30 * time.Second

// Claims carries the subject and an optional display name.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"preferred_username,omitempty"`
}

// Identity is what a verified token tells about the caller.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Issue signs an access token for userID valid for ttl from now.
func Issue(key []byte, userID uuid.UUID, username string, now time.Time, ttl time.Duration) (string, error) {
	if len(key) == 0 {
		return "", errors.New("empty signing key")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Verify checks signature, algorithm and time claims and returns the caller identity.
// Every failure wraps errs.ErrUnauthorized.
func Verify(key []byte, raw string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithLeeway(Leeway), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", errs.ErrUnauthorized)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return Identity{}, fmt.Errorf("bad subject: %w", errs.ErrUnauthorized)
	}
	return Identity{UserID: id, Username: claims.Username}, nil
}
