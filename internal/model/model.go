// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// ActionType is a security action kind. The set is closed; extend only together with a migration.
type ActionType string

const (
	ActionPasswordCheckStrong   ActionType = "password_check_strong"
	ActionPasswordCheckWeak     ActionType = "password_check_weak"
	ActionPasswordUpdated       ActionType = "password_updated"
	ActionBreachCheckClean      ActionType = "breach_check_clean"
	ActionBreachFound           ActionType = "breach_found"
	ActionTwoFactorEnabled      ActionType = "2fa_enabled"
	ActionTwoFactorDisabled     ActionType = "2fa_disabled"
	ActionSecurityTipViewed     ActionType = "security_tip_viewed"
	ActionSecurityScanCompleted ActionType = "security_scan_completed"
	ActionSuspiciousLinkClicked ActionType = "suspicious_link_clicked"
	ActionSuspiciousLinkAvoided ActionType = "suspicious_link_avoided"
)

var actionTypes = map[ActionType]struct{}{
	ActionPasswordCheckStrong:   {},
	ActionPasswordCheckWeak:     {},
	ActionPasswordUpdated:       {},
	ActionBreachCheckClean:      {},
	ActionBreachFound:           {},
	ActionTwoFactorEnabled:      {},
	ActionTwoFactorDisabled:     {},
	ActionSecurityTipViewed:     {},
	ActionSecurityScanCompleted: {},
	ActionSuspiciousLinkClicked: {},
	ActionSuspiciousLinkAvoided: {},
}

// Valid reports whether t belongs to the fixed action enum.
func (t ActionType) Valid() bool {
	_, ok := actionTypes[t]
	return ok
}

// Mood is the discrete emotional state of a pet.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodExcited Mood = "excited"
	MoodNeutral Mood = "neutral"
	MoodWorried Mood = "worried"
	MoodSad     Mood = "sad"
)

// PetType selects the pet appearance.
type PetType string

const (
	PetCat    PetType = "cat"
	PetDog    PetType = "dog"
	PetDragon PetType = "dragon"
	PetRobot  PetType = "robot"
)

// Valid reports whether p is a known pet type.
func (p PetType) Valid() bool {
	switch p {
	case PetCat, PetDog, PetDragon, PetRobot:
		return true
	}
	return false
}

// Grade is a letter grade A..F.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Pet defaults applied on lazy creation.
const (
	DefaultPetName   = "CyberPal"
	DefaultPetType   = PetCat
	DefaultMoodScore = 50
)

// User mirrors the identity issued by the external session provider.
type User struct {
	ID        uuid.UUID // token subject
	Username  string    // unique, may equal ID string when unknown
	CreatedAt time.Time
}

// Profile holds preferences, cached security state and gamification stats. One per user.
type Profile struct {
	UserID             uuid.UUID
	EmailNotifications bool
	WeeklyReports      bool
	PetNameCustomized  bool
	TwoFactorEnabled   bool
	LastPasswordCheck  *time.Time
	LastBreachCheck    *time.Time
	TotalSecurityScore int
	StreakDays         int
	LastActiveOn       *time.Time // UTC day of the latest recorded action
	FingerprintSalt    []byte     // per-user salt for password fingerprints
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SecurityAction is an immutable activity log entry.
type SecurityAction struct {
	ID         int64
	UserID     uuid.UUID
	ActionType ActionType
	Details    map[string]any
	CreatedAt  time.Time
}

// PasswordAnalysis is the result of the strength analyzer. The password itself is never kept.
type PasswordAnalysis struct {
	Length       int
	HasUppercase bool
	HasLowercase bool
	HasNumbers   bool
	HasSymbols   bool
	Score        int
}

// PasswordCheck is one stored analysis attempt; the newest row per user is authoritative.
type PasswordCheck struct {
	ID            int64
	UserID        uuid.UUID
	StrengthScore int // 0..100
	HasUppercase  bool
	HasLowercase  bool
	HasNumbers    bool
	HasSymbols    bool
	Length        int
	IsUnique      bool
	CreatedAt     time.Time
}

// BreachRecord describes a single breach as reported by the intelligence source.
type BreachRecord struct {
	Name         string   `json:"Name"`
	Title        string   `json:"Title"`
	Domain       string   `json:"Domain"`
	BreachDate   string   `json:"BreachDate"`
	AddedDate    string   `json:"AddedDate"`
	ModifiedDate string   `json:"ModifiedDate"`
	PwnCount     int64    `json:"PwnCount"`
	Description  string   `json:"Description"`
	DataClasses  []string `json:"DataClasses"`
}

// BreachResult is what a provider reports for an e-mail.
type BreachResult struct {
	BreachesFound int
	BreachDetails []BreachRecord
}

// BreachCheck is the stored result for a (user, email) pair; upserted, never duplicated.
type BreachCheck struct {
	ID            int64
	UserID        uuid.UUID
	EmailChecked  string
	BreachesFound int
	BreachDetails []BreachRecord
	LastChecked   time.Time
}

// Pet is the virtual companion. Ver guards (mood, mood_score) against lost updates.
type Pet struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	PetType     PetType
	CurrentMood Mood
	MoodScore   int
	Ver         int64
	CreatedAt   time.Time
	LastUpdated time.Time
}

// MoodUpdate is a versioned write of a recomputed mood.
type MoodUpdate struct {
	PetID     uuid.UUID
	BaseVer   int64
	Mood      Mood
	MoodScore int
	// Trigger, when non-empty, appends a MoodHistory row in the same transaction.
	Trigger string
}

// MoodHistory is a diary entry of the pet mood trail.
type MoodHistory struct {
	ID            int64
	PetID         uuid.UUID
	Mood          Mood
	MoodScore     int
	TriggerAction string
	CreatedAt     time.Time
}

// Tip is a personalized piece of advice.
type Tip struct {
	Title       string
	Description string
	Action      string
	Priority    string // high | medium | low
}
