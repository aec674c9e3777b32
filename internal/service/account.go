package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/cyber-companion/internal/crypto"
	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/repository"
)

// AccountService mirrors externally authenticated users and manages their settings.
type AccountService interface {
	// EnsureUser provisions user, profile and pet on first sight of a token subject.
	EnsureUser(ctx context.Context, userID uuid.UUID, username string) error
	// UpdatePreferences stores notification preferences.
	UpdatePreferences(ctx context.Context, userID uuid.UUID, emailNotifications, weeklyReports bool) (*model.Profile, error)
	// DeleteAccount removes the user and everything it owns.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// KnownTTL bounds how long a provisioned subject is trusted without a lookup.
// Another instance may delete the account in the meantime.
const KnownTTL = 5 * time.Minute

type AccountServiceImpl struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	pets     PetService
	log      *zap.Logger
	now      func() time.Time

	known sync.Map // uuid.UUID -> time.Time, when the provisioning check expires
}

// NewAccountService constructs AccountService.
func NewAccountService(users repository.UserRepository, profiles repository.ProfileRepository, pets PetService, log *zap.Logger) *AccountServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountServiceImpl{users: users, profiles: profiles, pets: pets, log: log, now: utcNow}
}

// EnsureUser implements AccountService.
func (s *AccountServiceImpl) EnsureUser(ctx context.Context, userID uuid.UUID, username string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("empty subject: %w", errs.ErrValidation)
	}
	if exp, ok := s.known.Load(userID); ok && s.now().Before(exp.(time.Time)) {
		return nil
	}

	_, err := s.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		if err := s.create(ctx, userID, username); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("load user: %w", err)
	}

	if _, err := s.pets.EnsurePet(ctx, userID); err != nil {
		return err
	}
	s.known.Store(userID, s.now().Add(KnownTTL))
	return nil
}

// create inserts user and profile. A unique violation is either a concurrent
// provisioning of the same subject or a username taken by someone else; the
// latter falls back to the subject as username.
func (s *AccountServiceImpl) create(ctx context.Context, userID uuid.UUID, username string) error {
	salt, err := pkgcrypto.RandBytes(pkgcrypto.SaltLen)
	if err != nil {
		return err
	}
	names := []string{userID.String()}
	if username != "" && username != userID.String() {
		names = append([]string{username}, names...)
	}
	for _, name := range names {
		err = s.users.Create(ctx,
			&model.User{ID: userID, Username: name},
			&model.Profile{UserID: userID, EmailNotifications: true, WeeklyReports: true, FingerprintSalt: salt})
		if !errors.Is(err, errs.ErrAlreadyExists) {
			break
		}
		if _, gerr := s.users.GetByID(ctx, userID); gerr == nil {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user provisioned", zap.String("user", userID.String()))
	return nil
}

// UpdatePreferences implements AccountService.
func (s *AccountServiceImpl) UpdatePreferences(ctx context.Context, userID uuid.UUID, emailNotifications, weeklyReports bool) (*model.Profile, error) {
	if err := s.profiles.UpdatePreferences(ctx, userID, emailNotifications, weeklyReports); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return s.profiles.Get(ctx, userID)
}

// DeleteAccount implements AccountService.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	s.known.Delete(userID)
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info("account deleted", zap.String("user", userID.String()))
	return nil
}
