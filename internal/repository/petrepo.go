package repository

import (
	"context"

	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PetRepository provides versioned access to pets and their mood diary.
type PetRepository interface {
	// GetOrCreate returns the owner's pet, inserting p when none exists.
	GetOrCreate(ctx context.Context, p *model.Pet) (*model.Pet, bool, error)
	// GetByOwner loads the owner's pet or errs.ErrNotFound.
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error)
	// UpdateMood writes mood and score if the pet is still at BaseVer (ver++),
	// otherwise errs.ErrVersionConflict. A non-empty Trigger appends a history row.
	UpdateMood(ctx context.Context, up model.MoodUpdate) (int64, error)
	// Rename changes name and type and marks the profile as customized.
	Rename(ctx context.Context, ownerID uuid.UUID, name string, petType model.PetType) error
	// History returns diary entries newest first.
	History(ctx context.Context, petID uuid.UUID, limit int) ([]model.MoodHistory, error)
}
