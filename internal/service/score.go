package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/repository"
	"github.com/and161185/cyber-companion/internal/scoring"
)

// ScoreService serves grades, tips and the dashboard.
type ScoreService interface {
	// WeeklyScore folds the trailing 7 days of actions.
	WeeklyScore(ctx context.Context, userID uuid.UUID) (WeeklyReport, error)
	// OverallGrade computes the profile grade and persists total_security_score.
	OverallGrade(ctx context.Context, userID uuid.UUID) (OverallReport, error)
	// Tips returns personalized advice.
	Tips(ctx context.Context, userID uuid.UUID) ([]model.Tip, error)
	// Dashboard aggregates the home screen; scoring failures degrade to defaults.
	Dashboard(ctx context.Context, userID uuid.UUID) (Dashboard, error)
}

type ScoreServiceImpl struct {
	profiles repository.ProfileRepository
	actions  repository.ActionRepository
	checks   repository.CheckRepository
	pets     PetService
	log      *zap.Logger
	now      func() time.Time
}

// NewScoreService constructs ScoreService.
func NewScoreService(profiles repository.ProfileRepository, actions repository.ActionRepository,
	checks repository.CheckRepository, pets PetService, log *zap.Logger) *ScoreServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScoreServiceImpl{profiles: profiles, actions: actions, checks: checks, pets: pets, log: log, now: utcNow}
}

func (s *ScoreServiceImpl) window(ctx context.Context, userID uuid.UUID) ([]model.SecurityAction, error) {
	actions, err := s.actions.Since(ctx, userID, s.now().Add(-scoring.ActivityWindow), 0)
	if err != nil {
		return nil, fmt.Errorf("activity window: %w", err)
	}
	return actions, nil
}

// WeeklyScore implements ScoreService.
func (s *ScoreServiceImpl) WeeklyScore(ctx context.Context, userID uuid.UUID) (WeeklyReport, error) {
	actions, err := s.window(ctx, userID)
	if err != nil {
		return WeeklyReport{}, err
	}
	score := scoring.WeeklyScore(actions)
	return WeeklyReport{Score: score, Grade: scoring.Grade(score)}, nil
}

// latest loads the newest password and breach checks; absent ones are nil.
func (s *ScoreServiceImpl) latest(ctx context.Context, userID uuid.UUID) (*model.PasswordCheck, *model.BreachCheck, error) {
	pc, err := s.checks.LatestPasswordCheck(ctx, userID)
	if pc, err = optional(pc, err); err != nil {
		return nil, nil, fmt.Errorf("latest password check: %w", err)
	}
	bc, err := s.checks.LatestBreachCheck(ctx, userID)
	if bc, err = optional(bc, err); err != nil {
		return nil, nil, fmt.Errorf("latest breach check: %w", err)
	}
	return pc, bc, nil
}

// OverallGrade implements ScoreService.
func (s *ScoreServiceImpl) OverallGrade(ctx context.Context, userID uuid.UUID) (OverallReport, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return OverallReport{}, fmt.Errorf("load profile: %w", err)
	}
	pc, bc, err := s.latest(ctx, userID)
	if err != nil {
		return OverallReport{}, err
	}
	in := scoring.GradeInputs{
		LatestPassword:   pc,
		LatestBreach:     bc,
		TwoFactorEnabled: profile.TwoFactorEnabled,
		StreakDays:       profile.StreakDays,
		Now:              s.now(),
	}
	rep := OverallReport{Points: scoring.OverallPoints(in), Grade: scoring.OverallGrade(in)}
	rep.SecurityScore = scoring.SecurityScoreFor(rep.Grade)

	if rep.SecurityScore != profile.TotalSecurityScore {
		if err := s.profiles.SetSecurityScore(ctx, userID, rep.SecurityScore); err != nil {
			return OverallReport{}, fmt.Errorf("store security score: %w", err)
		}
	}
	return rep, nil
}

// Tips implements ScoreService.
func (s *ScoreServiceImpl) Tips(ctx context.Context, userID uuid.UUID) ([]model.Tip, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	pc, bc, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return scoring.PersonalizedTips(scoring.TipInputs{
		LatestPassword:   pc,
		LatestBreach:     bc,
		TwoFactorEnabled: profile.TwoFactorEnabled,
		Now:              s.now(),
	}), nil
}

// Dashboard implements ScoreService. Only a missing pet is fatal; every other part
// falls back to a neutral default and is logged.
func (s *ScoreServiceImpl) Dashboard(ctx context.Context, userID uuid.UUID) (Dashboard, error) {
	log := s.log.With(zap.String("user", userID.String()))
	d := Dashboard{Weekly: WeeklyReport{Score: scoring.BaselineScore, Grade: scoring.Grade(scoring.BaselineScore)}}

	pet, err := s.pets.EnsurePet(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d.Pet = *pet

	if actions, err := s.window(ctx, userID); err != nil {
		log.Warn("dashboard: weekly score degraded", zap.Error(err))
		d.Degraded = true
		d.Pet.CurrentMood, d.Pet.MoodScore = model.MoodNeutral, model.DefaultMoodScore
	} else {
		d.Weekly.Score = scoring.WeeklyScore(actions)
		d.Weekly.Grade = scoring.Grade(d.Weekly.Score)
		d.Recent = actions[:min(len(actions), RecentActionsLimit)]
	}
	d.MoodMessage = s.pets.MoodMessage(d.Pet.CurrentMood)

	if d.LatestPassword, d.LatestBreach, err = s.latest(ctx, userID); err != nil {
		log.Warn("dashboard: latest checks unavailable", zap.Error(err))
		d.Degraded = true
	}

	if profile, err := s.profiles.Get(ctx, userID); err != nil {
		log.Warn("dashboard: profile unavailable", zap.Error(err))
		d.Degraded = true
	} else {
		d.StreakDays, d.SecurityScore = profile.StreakDays, profile.TotalSecurityScore
	}
	return d, nil
}
