package scoring

import (
	"fmt"
	"time"

	"github.com/and161185/cyber-companion/internal/model"
)

// TipInputs carries the latest state used to personalize advice.
type TipInputs struct {
	LatestPassword   *model.PasswordCheck
	LatestBreach     *model.BreachCheck
	TwoFactorEnabled bool
	Now              time.Time
}

// staleCheckAfter is "more than 30 whole days".
const staleCheckAfter = 31 * 24 * time.Hour

// PersonalizedTips builds advice ordered as the user should act on it.
func PersonalizedTips(in TipInputs) []model.Tip {
	var tips []model.Tip
	p, b := in.LatestPassword, in.LatestBreach

	if p == nil || p.StrengthScore < StrongPasswordThreshold {
		tips = append(tips, model.Tip{
			Title:       "Strengthen Your Passwords",
			Description: "Your current password strength could be improved. Use a mix of uppercase, lowercase, numbers, and symbols with at least 12 characters.",
			Action:      "Check Password Strength",
			Priority:    "high",
		})
	}

	if b != nil && b.BreachesFound > 0 {
		tips = append(tips, model.Tip{
			Title:       "Address Data Breaches",
			Description: fmt.Sprintf("We found %d breach(es) associated with your email. Consider changing passwords for affected accounts.", b.BreachesFound),
			Action:      "View Breach Details",
			Priority:    "high",
		})
	}

	if p == nil && b == nil {
		tips = append(tips, model.Tip{
			Title:       "Start Your Security Journey",
			Description: "Welcome to CyberCompanion! Let's begin by checking your password strength and scanning for data breaches.",
			Action:      "Run Security Checks",
			Priority:    "high",
		})
	}

	if !in.TwoFactorEnabled {
		tips = append(tips, model.Tip{
			Title:       "Enable Two-Factor Authentication",
			Description: "2FA adds an extra layer of security to your accounts and prevents 99.9% of automated attacks.",
			Action:      "Learn About 2FA",
			Priority:    "medium",
		})
	}

	if p != nil && p.StrengthScore >= StrongPasswordThreshold && b != nil && b.BreachesFound == 0 {
		tips = append(tips, model.Tip{
			Title:       "Great Job!",
			Description: "Your security looks good. Keep up the good habits and stay vigilant online!",
			Action:      "View Advanced Tips",
			Priority:    "low",
		})
	}

	if p != nil && in.Now.Sub(p.CreatedAt) >= staleCheckAfter {
		tips = append(tips, model.Tip{
			Title:       "Regular Security Check-ups",
			Description: "It's been a while since your last security check. Regular monitoring helps catch issues early.",
			Action:      "Run Security Check",
			Priority:    "medium",
		})
	}

	return tips
}
