// Package service contains application services of the security companion:
// account provisioning, security actions, the pet mood engine and read models.
package service

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
)

// DefaultDiaryLimit is used when MoodDiary is called without a positive limit.
const DefaultDiaryLimit = 30

// RecentActionsLimit caps the dashboard activity feed.
const RecentActionsLimit = 5

// MaxPetNameLen matches the pets.name column.
const MaxPetNameLen = 50

// PasswordReport is the outcome of AnalyzePassword.
type PasswordReport struct {
	Check model.PasswordCheck
	Label string
}

// BreachReport is the outcome of CheckBreach.
type BreachReport struct {
	Check       model.BreachCheck
	Created     bool // row inserted rather than updated
	Cached      bool // fresh stored result reused, provider not called
	Compromised bool
	Status      string
}

// MoodReport is a pet state with a message to show next to it.
type MoodReport struct {
	Pet     model.Pet
	Message string
}

// WeeklyReport is the trailing 7-day score.
type WeeklyReport struct {
	Score int
	Grade model.Grade
}

// OverallReport is the profile grade and the persisted score derived from it.
type OverallReport struct {
	Grade         model.Grade
	Points        float64
	SecurityScore int
}

// Dashboard aggregates everything the home screen shows.
type Dashboard struct {
	Pet            model.Pet
	MoodMessage    string
	Weekly         WeeklyReport
	Recent         []model.SecurityAction
	LatestPassword *model.PasswordCheck
	LatestBreach   *model.BreachCheck
	StreakDays     int
	SecurityScore  int
	Degraded       bool // some part fell back to defaults
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func utcNow() time.Time { return time.Now().UTC() }

// optional maps ErrNotFound to a nil value, the "absent contributes nothing" rule.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
