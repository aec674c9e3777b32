package scoring

import "github.com/and161185/cyber-companion/internal/model"

const (
	goodActionPoints = 10
	badActionPoints  = 15
)

func isGood(t model.ActionType) bool {
	switch t {
	case model.ActionPasswordCheckStrong, model.ActionTwoFactorEnabled, model.ActionBreachCheckClean:
		return true
	}
	return false
}

func isBad(t model.ActionType) bool {
	switch t {
	case model.ActionPasswordCheckWeak, model.ActionSuspiciousLinkClicked, model.ActionBreachFound:
		return true
	}
	return false
}

// MoodScore recomputes the pet mood score from the trailing-window actions:
// 50 + 10 per good action - 15 per bad action, clamped to [0,100].
func MoodScore(actions []model.SecurityAction) int {
	var good, bad int
	for _, a := range actions {
		switch {
		case isGood(a.ActionType):
			good++
		case isBad(a.ActionType):
			bad++
		}
	}
	return clamp(BaselineScore + goodActionPoints*good - badActionPoints*bad)
}

// MoodFor maps any score to exactly one mood (80/60/40/20 breakpoints).
func MoodFor(score int) model.Mood {
	switch {
	case score >= 80:
		return model.MoodHappy
	case score >= 60:
		return model.MoodExcited
	case score >= 40:
		return model.MoodNeutral
	case score >= 20:
		return model.MoodWorried
	default:
		return model.MoodSad
	}
}

// Rand is the randomness source for message selection. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

var moodMessages = map[model.Mood][]string{
	model.MoodHappy: {
		"Yay! You enabled 2FA! I feel so much safer now! 😊",
		"Your strong passwords make me so happy! 🔒",
		"Thanks for keeping us both secure! ✨",
	},
	model.MoodExcited: {
		"Great job on your security habits! 🎉",
		"I'm feeling more secure every day! 🛡️",
		"You're becoming a cybersecurity pro! 💪",
	},
	model.MoodNeutral: {
		"I'm doing okay, but we can improve together! 😌",
		"Let's work on some security habits today! 📚",
		"Ready for our next security adventure? 🚀",
	},
	model.MoodWorried: {
		"I'm a bit concerned about our security... 😟",
		"Can we check those passwords together? 🔍",
		"Some security updates would make me feel better! ⚠️",
	},
	model.MoodSad: {
		"I'm feeling vulnerable... can you help? 😢",
		"Our security needs attention! 🆘",
		"Let's fix these issues together! 💔",
	},
}

// MoodMessages returns a copy of the canned messages for a mood; unknown moods fall back to neutral.
func MoodMessages(m model.Mood) []string {
	msgs, ok := moodMessages[m]
	if !ok {
		msgs = moodMessages[model.MoodNeutral]
	}
	return append([]string(nil), msgs...)
}

// MoodMessage picks one canned message uniformly at random.
func MoodMessage(m model.Mood, r Rand) string {
	msgs := MoodMessages(m)
	return msgs[r.IntN(len(msgs))]
}
