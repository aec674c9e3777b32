package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/cyber-companion/internal/breach"
	pkgcrypto "github.com/and161185/cyber-companion/internal/crypto"
	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/limiter"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/repository"
	"github.com/and161185/cyber-companion/internal/scoring"
)

// SecurityService records security actions and runs the password and breach checks.
type SecurityService interface {
	// AnalyzePassword scores a password, stores the check and logs the matching action.
	AnalyzePassword(ctx context.Context, userID uuid.UUID, password string) (PasswordReport, error)
	// RecordAction appends a validated action, advances the streak and refreshes the mood.
	RecordAction(ctx context.Context, userID uuid.UUID, t model.ActionType, details map[string]any) (*model.SecurityAction, error)
	// CheckBreach looks an e-mail up, upserts the result and logs the matching action.
	CheckBreach(ctx context.Context, userID uuid.UUID, email string, force bool) (BreachReport, error)
	// SetTwoFactor stores the 2FA flag and logs a change of it as an action.
	SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) error
}

// SecurityDeps groups collaborators of SecurityServiceImpl.
type SecurityDeps struct {
	Profiles repository.ProfileRepository
	Actions  repository.ActionRepository
	Checks   repository.CheckRepository
	Pets     PetService
	Provider breach.Provider
	Limiter  limiter.Limiter
	// Freshness is how long a stored breach check is reused; 0 always asks the provider.
	Freshness time.Duration
	Log       *zap.Logger
}

type SecurityServiceImpl struct {
	SecurityDeps
	now func() time.Time
}

// NewSecurityService constructs SecurityService.
func NewSecurityService(d SecurityDeps) *SecurityServiceImpl {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Provider == nil {
		d.Provider = breach.Unavailable{}
	}
	return &SecurityServiceImpl{SecurityDeps: d, now: utcNow}
}

// AnalyzePassword implements SecurityService. The password leaves this function only as a salted fingerprint.
func (s *SecurityServiceImpl) AnalyzePassword(ctx context.Context, userID uuid.UUID, password string) (PasswordReport, error) {
	if password == "" {
		return PasswordReport{}, fmt.Errorf("empty password: %w", errs.ErrValidation)
	}
	a := scoring.AnalyzePassword(password)

	profile, err := s.Profiles.Get(ctx, userID)
	if err != nil {
		return PasswordReport{}, fmt.Errorf("load profile: %w", err)
	}

	pc := &model.PasswordCheck{
		UserID:        userID,
		StrengthScore: a.Score,
		HasUppercase:  a.HasUppercase,
		HasLowercase:  a.HasLowercase,
		HasNumbers:    a.HasNumbers,
		HasSymbols:    a.HasSymbols,
		Length:        a.Length,
	}
	fp := pkgcrypto.Fingerprint([]byte(password), profile.FingerprintSalt)
	if err := s.Checks.SavePasswordCheck(ctx, pc, fp); err != nil {
		return PasswordReport{}, fmt.Errorf("save password check: %w", err)
	}

	details := map[string]any{"score": a.Score, "length": a.Length}
	if _, err := s.record(ctx, userID, scoring.PasswordActionType(a.Score), details); err != nil {
		return PasswordReport{}, err
	}
	return PasswordReport{Check: *pc, Label: scoring.StrengthLabel(a.Score)}, nil
}

// RecordAction implements SecurityService.
func (s *SecurityServiceImpl) RecordAction(ctx context.Context, userID uuid.UUID, t model.ActionType, details map[string]any) (*model.SecurityAction, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown action type %q: %w", t, errs.ErrValidation)
	}
	return s.record(ctx, userID, t, details)
}

func (s *SecurityServiceImpl) record(ctx context.Context, userID uuid.UUID, t model.ActionType, details map[string]any) (*model.SecurityAction, error) {
	a := &model.SecurityAction{UserID: userID, ActionType: t, Details: details}
	if err := s.Actions.Append(ctx, a); err != nil {
		return nil, fmt.Errorf("append action: %w", err)
	}
	if _, err := s.Profiles.TouchActivity(ctx, userID, a.CreatedAt); err != nil {
		return nil, fmt.Errorf("touch activity: %w", err)
	}
	s.refreshMood(ctx, userID)
	return a, nil
}

// settle follows an action that was committed together with its source row.
// The action already counts, so streak and mood failures are only logged.
func (s *SecurityServiceImpl) settle(ctx context.Context, a *model.SecurityAction) {
	if _, err := s.Profiles.TouchActivity(ctx, a.UserID, a.CreatedAt); err != nil {
		s.Log.Warn("streak update failed", zap.String("user", a.UserID.String()), zap.Error(err))
	}
	s.refreshMood(ctx, a.UserID)
}

// refreshMood keeps the pet in step with the log. The action is already stored,
// so a failure here is logged and the next refresh catches up.
func (s *SecurityServiceImpl) refreshMood(ctx context.Context, userID uuid.UUID) {
	if s.Pets == nil {
		return
	}
	if _, err := s.Pets.RefreshMood(ctx, userID); err != nil {
		s.Log.Warn("mood refresh failed", zap.String("user", userID.String()), zap.Error(err))
	}
}

// CheckBreach implements SecurityService. The provider is called before any transaction is opened.
func (s *SecurityServiceImpl) CheckBreach(ctx context.Context, userID uuid.UUID, email string, force bool) (BreachReport, error) {
	email, err := breach.NormalizeEmail(email)
	if err != nil {
		return BreachReport{}, err
	}

	if !force && s.Freshness > 0 {
		prev, err := s.Checks.GetBreachCheck(ctx, userID, email)
		if prev, err = optional(prev, err); err != nil {
			return BreachReport{}, fmt.Errorf("load breach check: %w", err)
		}
		if prev != nil && s.now().Sub(prev.LastChecked) <= s.Freshness {
			return breachReport(*prev, false, true), nil
		}
	}

	if s.Limiter != nil {
		key := limiter.HashKey(email)
		ok, wait, err := s.Limiter.Allow(ctx, userID, key)
		if err != nil {
			return BreachReport{}, fmt.Errorf("limiter: %w", err)
		}
		if !ok {
			return BreachReport{}, fmt.Errorf("breach lookups paused for %s: %w", wait.Round(time.Second), errs.ErrRateLimited)
		}
		if _, _, err := s.Limiter.Hit(ctx, userID, key); err != nil {
			return BreachReport{}, fmt.Errorf("limiter: %w", err)
		}
	}

	res, err := s.Provider.Lookup(ctx, email)
	if err != nil {
		if !errors.Is(err, errs.ErrProviderUnavailable) {
			err = fmt.Errorf("%v: %w", err, errs.ErrProviderUnavailable)
		}
		return BreachReport{}, err
	}

	bc := model.BreachCheck{
		UserID:        userID,
		EmailChecked:  email,
		BreachesFound: res.BreachesFound,
		BreachDetails: res.BreachDetails,
		LastChecked:   s.now(),
	}
	kind := model.ActionBreachCheckClean
	if scoring.IsCompromised(bc.BreachesFound) {
		kind = model.ActionBreachFound
	}
	a := &model.SecurityAction{
		UserID:     userID,
		ActionType: kind,
		Details:    map[string]any{"email": email, "breaches": bc.BreachesFound},
	}
	created, err := s.Checks.UpsertBreachCheck(ctx, &bc, a)
	if err != nil {
		return BreachReport{}, fmt.Errorf("upsert breach check: %w", err)
	}
	s.settle(ctx, a)
	return breachReport(bc, created, false), nil
}

func breachReport(bc model.BreachCheck, created, cached bool) BreachReport {
	return BreachReport{
		Check:       bc,
		Created:     created,
		Cached:      cached,
		Compromised: scoring.IsCompromised(bc.BreachesFound),
		Status:      scoring.BreachStatusLabel(bc.BreachesFound),
	}
}

// SetTwoFactor implements SecurityService. Only a change of the flag is logged.
func (s *SecurityServiceImpl) SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) error {
	kind := model.ActionTwoFactorDisabled
	if enabled {
		kind = model.ActionTwoFactorEnabled
	}
	a := &model.SecurityAction{UserID: userID, ActionType: kind}
	changed, err := s.Profiles.SetTwoFactor(ctx, userID, enabled, a)
	if err != nil {
		return fmt.Errorf("set 2fa: %w", err)
	}
	if changed {
		s.settle(ctx, a)
	}
	return nil
}
