package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/and161185/cyber-companion/internal/model"
)

// GradeInputs are the facts the profile grade is computed from. Nil checks contribute nothing.
type GradeInputs struct {
	LatestPassword   *model.PasswordCheck
	LatestBreach     *model.BreachCheck
	TwoFactorEnabled bool
	StreakDays       int
	Now              time.Time
}

// OverallPoints sums the profile grade points. This formula is separate from
// WeeklyScore on purpose: the two grades answer different questions.
func OverallPoints(in GradeInputs) float64 {
	since := in.Now.Add(-GradeWindow)
	var points float64

	if p := in.LatestPassword; p != nil && !p.CreatedAt.Before(since) {
		points += math.Min(30, float64(p.StrengthScore)*0.3)
	}

	if b := in.LatestBreach; b != nil && !b.LastChecked.Before(since) {
		if b.BreachesFound == 0 {
			points += 20
		} else {
			points += math.Max(0, float64(25-5*b.BreachesFound))
		}
	}

	if in.TwoFactorEnabled {
		points += 25
	}

	switch {
	case in.StreakDays >= 7:
		points += 10
	case in.StreakDays >= 3:
		points += 5
	}
	return points
}

// OverallGrade maps the profile points to a letter grade.
func OverallGrade(in GradeInputs) model.Grade {
	return gradeFor(OverallPoints(in))
}

var gradeScores = map[model.Grade]int{
	model.GradeA: 100,
	model.GradeB: 85,
	model.GradeC: 75,
	model.GradeD: 65,
	model.GradeF: 45,
}

// SecurityScoreFor converts a grade into the stored total_security_score.
func SecurityScoreFor(g model.Grade) int { return gradeScores[g] }

// IsCompromised reports whether a breach count means the address leaked.
func IsCompromised(breaches int) bool { return breaches > 0 }

// BreachStatusLabel is the user-facing breach status.
func BreachStatusLabel(breaches int) string {
	switch {
	case breaches <= 0:
		return "Clean - No breaches found!"
	case breaches == 1:
		return "1 breach found"
	default:
		return fmt.Sprintf("%d breaches found", breaches)
	}
}
