package service

import (
	"context"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/scoring"
)

func TestEnsurePet_CreatesNeutralThenScoresOnce(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	w.actions.add(owner, model.ActionPasswordCheckStrong, testNow.Add(-time1h))
	w.actions.add(owner, model.ActionTwoFactorEnabled, testNow.Add(-time1h))
	w.actions.add(owner, model.ActionBreachCheckClean, testNow.Add(-time1h))

	pet, err := w.petSvc.EnsurePet(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, model.DefaultPetName, pet.Name)
	require.Equal(t, model.PetCat, pet.PetType)
	require.Equal(t, 80, pet.MoodScore)
	require.Equal(t, model.MoodHappy, pet.CurrentMood)
	require.Equal(t, 1, w.pets.updates)
	require.Empty(t, w.pets.history, "auto-creation writes no diary row")

	again, err := w.petSvc.EnsurePet(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, pet.ID, again.ID)
	require.Equal(t, 1, w.pets.updates, "existing pet is returned as is")
}

func TestEnsurePet_RejectsNilOwner(t *testing.T) {
	w := newWorld()
	_, err := w.petSvc.EnsurePet(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestRecomputeMood_WritesHistoryAndMessage(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := w.provision("")
	w.actions.add(owner, model.ActionPasswordCheckWeak, testNow.Add(-time1h))
	w.actions.add(owner, model.ActionSuspiciousLinkClicked, testNow.Add(-time1h))
	// outside the trailing window, ignored
	w.actions.add(owner, model.ActionTwoFactorEnabled, testNow.Add(-scoring.ActivityWindow-time1h))

	rep, err := w.petSvc.RecomputeMood(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 20, rep.Pet.MoodScore)
	require.Equal(t, model.MoodWorried, rep.Pet.CurrentMood)
	require.Contains(t, scoring.MoodMessages(model.MoodWorried), rep.Message)

	require.Len(t, w.pets.history, 1)
	require.Equal(t, TriggerManualUpdate, w.pets.history[0].TriggerAction)
	require.Equal(t, 20, w.pets.history[0].MoodScore)
}

func TestRecomputeMood_RetriesOnceAfterConflict(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := w.provision("")
	w.pets.conflicts = 1
	w.pets.onConflict = func(p *model.Pet) {
		// a concurrent writer got there first
		p.Ver++
		w.actions.add(owner, model.ActionTwoFactorEnabled, testNow)
	}

	rep, err := w.petSvc.RecomputeMood(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 60, rep.Pet.MoodScore, "retry re-reads the activity window")
	require.Len(t, w.pets.history, 1)
}

func TestRecomputeMood_SurfacesSecondConflict(t *testing.T) {
	w := newWorld()
	owner := w.provision("")
	w.pets.conflicts = 2

	_, err := w.petSvc.RecomputeMood(context.Background(), owner)
	require.ErrorIs(t, err, errs.ErrVersionConflict)
	require.Empty(t, w.pets.history)
}

func TestRecomputeMood_WindowErrorPropagates(t *testing.T) {
	w := newWorld()
	owner := w.provision("")
	w.actions.sinceErr = errBoom

	_, err := w.petSvc.RecomputeMood(context.Background(), owner)
	require.ErrorIs(t, err, errBoom)
}

func TestRecomputeMood_IdempotentWithoutNewActivity(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := w.provision("")
	w.actions.add(owner, model.ActionPasswordCheckStrong, testNow)
	w.actions.add(owner, model.ActionBreachFound, testNow)

	first, err := w.petSvc.RecomputeMood(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 45, first.Pet.MoodScore)
	require.Equal(t, model.MoodNeutral, first.Pet.CurrentMood)

	second, err := w.petSvc.RecomputeMood(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, first.Pet.MoodScore, second.Pet.MoodScore)
	require.Equal(t, first.Pet.CurrentMood, second.Pet.CurrentMood)
	require.Len(t, w.pets.history, 2)
}

func TestMoodDiary_DefaultLimitNewestFirst(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := w.provision("")
	for i := 0; i < DefaultDiaryLimit+5; i++ {
		_, err := w.petSvc.RecomputeMood(ctx, owner)
		require.NoError(t, err)
	}

	diary, err := w.petSvc.MoodDiary(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, diary, DefaultDiaryLimit)
	require.Greater(t, diary[0].ID, diary[1].ID)

	diary, err = w.petSvc.MoodDiary(ctx, owner, 3)
	require.NoError(t, err)
	require.Len(t, diary, 3)
}

func TestRenamePet(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	owner := w.provision("")

	pet, err := w.petSvc.RenamePet(ctx, owner, "  Byte ", model.PetDragon)
	require.NoError(t, err)
	require.Equal(t, "Byte", pet.Name)
	require.Equal(t, model.PetDragon, pet.PetType)

	pet, err = w.petSvc.RenamePet(ctx, owner, "Bit", "")
	require.NoError(t, err)
	require.Equal(t, model.DefaultPetType, pet.PetType)

	for _, tc := range []struct {
		name string
		kind model.PetType
	}{
		{"", model.PetCat},
		{"   ", model.PetCat},
		{strings.Repeat("x", MaxPetNameLen+1), model.PetCat},
		{"Rex", "unicorn"},
	} {
		_, err := w.petSvc.RenamePet(ctx, owner, tc.name, tc.kind)
		require.ErrorIs(t, err, errs.ErrValidation)
	}

	w.pets.renameErr = errBoom
	_, err = w.petSvc.RenamePet(ctx, owner, "Rex", model.PetDog)
	require.ErrorIs(t, err, errBoom)
}
