package scoring

import (
	"time"

	"github.com/and161185/cyber-companion/internal/model"
)

// Scoring windows.
const (
	ActivityWindow = 7 * 24 * time.Hour
	GradeWindow    = 30 * 24 * time.Hour
)

// BaselineScore is the neutral starting point of the weekly and mood scores.
const BaselineScore = 50

// weights is the signed mood impact per action type; absent types weigh 0.
var weights = map[model.ActionType]int{
	model.ActionTwoFactorEnabled:      15,
	model.ActionPasswordUpdated:       12,
	model.ActionSuspiciousLinkAvoided: 10,
	model.ActionPasswordCheckStrong:   8,
	model.ActionBreachCheckClean:      8,
	model.ActionSecurityScanCompleted: 8,
	model.ActionSecurityTipViewed:     3,
	model.ActionPasswordCheckWeak:     -10,
	model.ActionBreachFound:           -15,
	model.ActionSuspiciousLinkClicked: -20,
	model.ActionTwoFactorDisabled:     -15,
}

// Weight returns the mood impact of an action type.
func Weight(t model.ActionType) int { return weights[t] }

// WeeklyScore folds the weights of actions already restricted to the trailing
// window. The fold is a plain sum, so ordering and created_at ties do not matter.
func WeeklyScore(actions []model.SecurityAction) int {
	score := BaselineScore
	for _, a := range actions {
		score += Weight(a.ActionType)
	}
	return clamp(score)
}

// Grade maps a 0..100 score to a letter grade (90/80/70/60 breakpoints).
func Grade(score int) model.Grade {
	return gradeFor(float64(score))
}

func gradeFor(points float64) model.Grade {
	switch {
	case points >= 90:
		return model.GradeA
	case points >= 80:
		return model.GradeB
	case points >= 70:
		return model.GradeC
	case points >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

func clamp(v int) int {
	return max(0, min(100, v))
}
