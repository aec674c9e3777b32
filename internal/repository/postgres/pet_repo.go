package postgres

import (
	"context"
	"errors"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PetRepo implements PetRepository using PostgreSQL.
type PetRepo struct{ db *DB }

// NewPetRepo constructs a pet repository.
func NewPetRepo(db *DB) *PetRepo { return &PetRepo{db: db} }

// GetOrCreate inserts p unless the owner already has a pet, then loads the stored pet.
func (r *PetRepo) GetOrCreate(ctx context.Context, p *model.Pet) (*model.Pet, bool, error) {
	const ins = `
INSERT INTO pets (id, owner_id, name, pet_type, current_mood, mood_score)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, ins, p.ID, p.OwnerID, p.Name, string(p.PetType), string(p.CurrentMood), p.MoodScore)
	if err != nil {
		return nil, false, err
	}
	stored, err := r.GetByOwner(ctx, p.OwnerID)
	if err != nil {
		return nil, false, err
	}
	return stored, tag.RowsAffected() == 1, nil
}

// GetByOwner selects the pet of an owner.
func (r *PetRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Pet, error) {
	const q = `
SELECT id, owner_id, name, pet_type, current_mood, mood_score, ver, created_at, last_updated
FROM pets WHERE owner_id=$1`
	var (
		p          model.Pet
		kind, mood string
	)
	err := r.db.Pool.QueryRow(ctx, q, ownerID).Scan(&p.ID, &p.OwnerID, &p.Name, &kind, &mood,
		&p.MoodScore, &p.Ver, &p.CreatedAt, &p.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.PetType, p.CurrentMood = model.PetType(kind), model.Mood(mood)
	return &p, nil
}

// UpdateMood applies a versioned mood write and, for triggered updates, the diary row.
func (r *PetRepo) UpdateMood(ctx context.Context, up model.MoodUpdate) (newVer int64, err error) {
	const upd = `
UPDATE pets SET current_mood=$3, mood_score=$4, ver=ver+1, last_updated=now()
WHERE id=$1 AND ver=$2
RETURNING ver`
	const ins = `
INSERT INTO mood_history (pet_id, mood, mood_score, trigger_action)
VALUES ($1, $2, $3, $4)`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upd, up.PetID, up.BaseVer, string(up.Mood), up.MoodScore).Scan(&newVer); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrVersionConflict
			}
			return err
		}
		if up.Trigger == "" {
			return nil
		}
		_, err := tx.Exec(ctx, ins, up.PetID, string(up.Mood), up.MoodScore, up.Trigger)
		return err
	})
	if err != nil {
		return 0, err
	}
	return newVer, nil
}

// Rename updates the pet and flags the owner's profile as customized.
func (r *PetRepo) Rename(ctx context.Context, ownerID uuid.UUID, name string, petType model.PetType) error {
	const upd = `UPDATE pets SET name=$2, pet_type=$3, last_updated=now() WHERE owner_id=$1`
	const flag = `UPDATE profiles SET pet_name_customized=true, updated_at=now() WHERE user_id=$1`

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, upd, ownerID, name, string(petType))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		_, err = tx.Exec(ctx, flag, ownerID)
		return err
	})
}

// History returns the mood diary newest first.
func (r *PetRepo) History(ctx context.Context, petID uuid.UUID, limit int) ([]model.MoodHistory, error) {
	const q = `
SELECT id, pet_id, mood, mood_score, trigger_action, created_at
FROM mood_history
WHERE pet_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, petID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MoodHistory
	for rows.Next() {
		var (
			h    model.MoodHistory
			mood string
		)
		if err = rows.Scan(&h.ID, &h.PetID, &mood, &h.MoodScore, &h.TriggerAction, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Mood = model.Mood(mood)
		out = append(out, h)
	}
	return out, rows.Err()
}
