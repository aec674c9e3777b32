package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/repository"
	"github.com/and161185/cyber-companion/internal/scoring"
)

// TriggerManualUpdate marks diary rows written by an explicit recompute.
const TriggerManualUpdate = "manual_update"

// PetService runs the mood engine over the activity log.
type PetService interface {
	// EnsurePet returns the owner's pet, creating a neutral one and scoring it once if missing.
	EnsurePet(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error)
	// RefreshMood recomputes and stores the mood without a diary entry.
	RefreshMood(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error)
	// RecomputeMood recomputes the mood, appends a diary entry and picks a message.
	RecomputeMood(ctx context.Context, ownerID uuid.UUID) (MoodReport, error)
	// MoodMessage picks one of the canned messages for a mood.
	MoodMessage(m model.Mood) string
	// MoodDiary returns the newest diary entries.
	MoodDiary(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.MoodHistory, error)
	// RenamePet changes name and appearance.
	RenamePet(ctx context.Context, ownerID uuid.UUID, name string, petType model.PetType) (*model.Pet, error)
}

type PetServiceImpl struct {
	pets    repository.PetRepository
	actions repository.ActionRepository
	log     *zap.Logger
	rnd     scoring.Rand
	now     func() time.Time
}

// NewPetService constructs PetService.
func NewPetService(pets repository.PetRepository, actions repository.ActionRepository, log *zap.Logger) *PetServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &PetServiceImpl{pets: pets, actions: actions, log: log, rnd: globalRand{}, now: utcNow}
}

// EnsurePet implements PetService.
func (s *PetServiceImpl) EnsurePet(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error) {
	pet, created, err := s.getOrCreate(ctx, ownerID)
	if err != nil || !created {
		return pet, err
	}
	return s.applyMood(ctx, pet, "")
}

func (s *PetServiceImpl) getOrCreate(ctx context.Context, ownerID uuid.UUID) (*model.Pet, bool, error) {
	if ownerID == uuid.Nil {
		return nil, false, fmt.Errorf("empty owner: %w", errs.ErrValidation)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, false, err
	}
	pet, created, err := s.pets.GetOrCreate(ctx, &model.Pet{
		ID:          id,
		OwnerID:     ownerID,
		Name:        model.DefaultPetName,
		PetType:     model.DefaultPetType,
		CurrentMood: model.MoodNeutral,
		MoodScore:   model.DefaultMoodScore,
	})
	if err != nil {
		return nil, false, fmt.Errorf("ensure pet: %w", err)
	}
	return pet, created, nil
}

// RefreshMood implements PetService.
func (s *PetServiceImpl) RefreshMood(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error) {
	pet, _, err := s.getOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.applyMood(ctx, pet, "")
}

// RecomputeMood implements PetService.
func (s *PetServiceImpl) RecomputeMood(ctx context.Context, ownerID uuid.UUID) (MoodReport, error) {
	pet, _, err := s.getOrCreate(ctx, ownerID)
	if err != nil {
		return MoodReport{}, err
	}
	pet, err = s.applyMood(ctx, pet, TriggerManualUpdate)
	if err != nil {
		return MoodReport{}, err
	}
	return MoodReport{Pet: *pet, Message: s.MoodMessage(pet.CurrentMood)}, nil
}

// applyMood scores the trailing window and writes it at the pet's version.
// A lost race re-reads the pet and the window once; a second loss is returned.
func (s *PetServiceImpl) applyMood(ctx context.Context, pet *model.Pet, trigger string) (*model.Pet, error) {
	for attempt := 0; ; attempt++ {
		actions, err := s.actions.Since(ctx, pet.OwnerID, s.now().Add(-scoring.ActivityWindow), 0)
		if err != nil {
			return nil, fmt.Errorf("mood window: %w", err)
		}
		score := scoring.MoodScore(actions)
		mood := scoring.MoodFor(score)

		ver, err := s.pets.UpdateMood(ctx, model.MoodUpdate{
			PetID:     pet.ID,
			BaseVer:   pet.Ver,
			Mood:      mood,
			MoodScore: score,
			Trigger:   trigger,
		})
		if err == nil {
			updated := *pet
			updated.CurrentMood, updated.MoodScore, updated.Ver = mood, score, ver
			updated.LastUpdated = s.now()
			return &updated, nil
		}
		if !errors.Is(err, errs.ErrVersionConflict) || attempt > 0 {
			return nil, fmt.Errorf("update mood: %w", err)
		}
		s.log.Info("mood update lost a race, retrying",
			zap.String("pet", pet.ID.String()), zap.Int64("base_ver", pet.Ver))
		if pet, err = s.pets.GetByOwner(ctx, pet.OwnerID); err != nil {
			return nil, fmt.Errorf("reload pet: %w", err)
		}
	}
}

// MoodMessage implements PetService.
func (s *PetServiceImpl) MoodMessage(m model.Mood) string { return scoring.MoodMessage(m, s.rnd) }

// MoodDiary implements PetService.
func (s *PetServiceImpl) MoodDiary(ctx context.Context, ownerID uuid.UUID, limit int) ([]model.MoodHistory, error) {
	if limit <= 0 {
		limit = DefaultDiaryLimit
	}
	pet, err := s.EnsurePet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.pets.History(ctx, pet.ID, limit)
}

// RenamePet implements PetService.
func (s *PetServiceImpl) RenamePet(ctx context.Context, ownerID uuid.UUID, name string, petType model.PetType) (*model.Pet, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxPetNameLen {
		return nil, fmt.Errorf("pet name must be 1..%d characters: %w", MaxPetNameLen, errs.ErrValidation)
	}
	if petType == "" {
		petType = model.DefaultPetType
	}
	if !petType.Valid() {
		return nil, fmt.Errorf("unknown pet type %q: %w", petType, errs.ErrValidation)
	}
	if _, err := s.EnsurePet(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := s.pets.Rename(ctx, ownerID, name, petType); err != nil {
		return nil, fmt.Errorf("rename pet: %w", err)
	}
	return s.pets.GetByOwner(ctx, ownerID)
}
