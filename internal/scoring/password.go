// Package scoring holds the deterministic scoring rules: password strength,
// weekly activity score, pet mood and the profile grade.
package scoring

import (
	"crypto/subtle"
	"unicode/utf8"

	"github.com/and161185/cyber-companion/internal/model"
)

const classPoints = 15

// AnalyzePassword rates a password. Character classes are detected with
// constant-time arithmetic over every byte, so timing depends on length only.
// Any byte outside [A-Za-z0-9] (including UTF-8 multibyte sequences) counts as a symbol.
func AnalyzePassword(password string) model.PasswordAnalysis {
	var upper, lower, digit, symbol int
	for i := 0; i < len(password); i++ {
		c := int(password[i])
		u := subtle.ConstantTimeLessOrEq('A', c) & subtle.ConstantTimeLessOrEq(c, 'Z')
		l := subtle.ConstantTimeLessOrEq('a', c) & subtle.ConstantTimeLessOrEq(c, 'z')
		d := subtle.ConstantTimeLessOrEq('0', c) & subtle.ConstantTimeLessOrEq(c, '9')
		upper |= u
		lower |= l
		digit |= d
		symbol |= 1 ^ (u | l | d)
	}

	length := utf8.RuneCountInString(password)
	return model.PasswordAnalysis{
		Length:       length,
		HasUppercase: upper == 1,
		HasLowercase: lower == 1,
		HasNumbers:   digit == 1,
		HasSymbols:   symbol == 1,
		Score:        lengthPoints(length) + classPoints*(upper+lower+digit+symbol),
	}
}

func lengthPoints(length int) int {
	switch {
	case length >= 12:
		return 30
	case length >= 8:
		return 20
	default:
		return 10
	}
}

// StrengthLabel converts a password score into a user-facing label.
func StrengthLabel(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Strong"
	case score >= 50:
		return "Good"
	case score >= 30:
		return "Weak"
	default:
		return "Very Weak"
	}
}

// StrongPasswordThreshold separates password_check_strong from password_check_weak.
const StrongPasswordThreshold = 70

// PasswordActionType picks the activity log entry for an analysis score.
func PasswordActionType(score int) model.ActionType {
	if score >= StrongPasswordThreshold {
		return model.ActionPasswordCheckStrong
	}
	return model.ActionPasswordCheckWeak
}
