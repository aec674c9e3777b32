// Package convert maps domain values to google.protobuf.Struct payloads and reads request fields back.
package convert

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/scoring"
	"github.com/and161185/cyber-companion/internal/service"
)

// --- helpers ---

func ts(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func tsPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// Struct wraps a map built by this package.
func Struct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return s, nil
}

// --- domain -> payload ---

// Pet renders a pet.
func Pet(p model.Pet) map[string]any {
	return map[string]any{
		"id":           p.ID.String(),
		"name":         p.Name,
		"pet_type":     string(p.PetType),
		"mood":         string(p.CurrentMood),
		"mood_score":   p.MoodScore,
		"ver":          p.Ver,
		"last_updated": ts(p.LastUpdated),
	}
}

// Action renders an activity log entry.
func Action(a model.SecurityAction) map[string]any {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	return map[string]any{
		"id":          a.ID,
		"action_type": string(a.ActionType),
		"weight":      scoring.Weight(a.ActionType),
		"details":     details,
		"created_at":  ts(a.CreatedAt),
	}
}

// PasswordCheck renders a stored password analysis.
func PasswordCheck(c model.PasswordCheck) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"score":         c.StrengthScore,
		"label":         scoring.StrengthLabel(c.StrengthScore),
		"length":        c.Length,
		"has_uppercase": c.HasUppercase,
		"has_lowercase": c.HasLowercase,
		"has_numbers":   c.HasNumbers,
		"has_symbols":   c.HasSymbols,
		"is_unique":     c.IsUnique,
		"created_at":    ts(c.CreatedAt),
	}
}

// BreachRecord renders a single breach.
func BreachRecord(r model.BreachRecord) map[string]any {
	return map[string]any{
		"name":          r.Name,
		"title":         r.Title,
		"domain":        r.Domain,
		"breach_date":   r.BreachDate,
		"added_date":    r.AddedDate,
		"modified_date": r.ModifiedDate,
		"pwn_count":     r.PwnCount,
		"description":   r.Description,
		"data_classes":  anySlice(r.DataClasses),
	}
}

// BreachCheck renders a stored breach check.
func BreachCheck(c model.BreachCheck) map[string]any {
	details := make([]any, len(c.BreachDetails))
	for i, r := range c.BreachDetails {
		details[i] = BreachRecord(r)
	}
	return map[string]any{
		"id":             c.ID,
		"email":          c.EmailChecked,
		"breaches_found": c.BreachesFound,
		"breach_details": details,
		"is_compromised": scoring.IsCompromised(c.BreachesFound),
		"status":         scoring.BreachStatusLabel(c.BreachesFound),
		"last_checked":   ts(c.LastChecked),
	}
}

// Profile renders preferences and gamification stats. The fingerprint salt never leaves the server.
func Profile(p model.Profile) map[string]any {
	return map[string]any{
		"email_notifications":  p.EmailNotifications,
		"weekly_reports":       p.WeeklyReports,
		"pet_name_customized":  p.PetNameCustomized,
		"two_factor_enabled":   p.TwoFactorEnabled,
		"total_security_score": p.TotalSecurityScore,
		"streak_days":          p.StreakDays,
		"last_password_check":  tsPtr(p.LastPasswordCheck),
		"last_breach_check":    tsPtr(p.LastBreachCheck),
	}
}

// Tip renders a tip.
func Tip(t model.Tip) map[string]any {
	return map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"action":      t.Action,
		"priority":    t.Priority,
	}
}

// Tips renders a tip list.
func Tips(tips []model.Tip) map[string]any {
	out := make([]any, len(tips))
	for i, t := range tips {
		out[i] = Tip(t)
	}
	return map[string]any{"tips": out}
}

// MoodDiary renders diary entries.
func MoodDiary(entries []model.MoodHistory) map[string]any {
	out := make([]any, len(entries))
	for i, h := range entries {
		out[i] = map[string]any{
			"id":             h.ID,
			"mood":           string(h.Mood),
			"mood_score":     h.MoodScore,
			"trigger_action": h.TriggerAction,
			"created_at":     ts(h.CreatedAt),
		}
	}
	return map[string]any{"entries": out}
}

// PasswordReport renders the AnalyzePassword result.
func PasswordReport(r service.PasswordReport) map[string]any {
	m := PasswordCheck(r.Check)
	m["label"] = r.Label
	return m
}

// BreachReport renders the CheckBreach result.
func BreachReport(r service.BreachReport) map[string]any {
	m := BreachCheck(r.Check)
	m["created"] = r.Created
	m["cached"] = r.Cached
	return m
}

// MoodReport renders a recomputed mood.
func MoodReport(r service.MoodReport) map[string]any {
	return map[string]any{"pet": Pet(r.Pet), "message": r.Message}
}

// WeeklyReport renders the weekly score.
func WeeklyReport(r service.WeeklyReport) map[string]any {
	return map[string]any{"score": r.Score, "grade": string(r.Grade)}
}

// OverallReport renders the profile grade.
func OverallReport(r service.OverallReport) map[string]any {
	return map[string]any{"grade": string(r.Grade), "points": r.Points, "security_score": r.SecurityScore}
}

// Dashboard renders the home screen aggregate.
func Dashboard(d service.Dashboard) map[string]any {
	recent := make([]any, len(d.Recent))
	for i, a := range d.Recent {
		recent[i] = Action(a)
	}
	m := map[string]any{
		"pet":            Pet(d.Pet),
		"mood_message":   d.MoodMessage,
		"weekly":         WeeklyReport(d.Weekly),
		"recent_actions": recent,
		"streak_days":    d.StreakDays,
		"security_score": d.SecurityScore,
		"degraded":       d.Degraded,
	}
	if d.LatestPassword != nil {
		m["latest_password_check"] = PasswordCheck(*d.LatestPassword)
	}
	if d.LatestBreach != nil {
		m["latest_breach_check"] = BreachCheck(*d.LatestBreach)
	}
	return m
}

// --- payload -> arguments ---

// Fields reads typed request fields. Missing fields yield zero values;
// fields of the wrong kind are validation errors.
type Fields struct{ f map[string]*structpb.Value }

// Read wraps a request. A nil request has no fields.
func Read(in *structpb.Struct) Fields { return Fields{f: in.GetFields()} }

// Has reports whether the field is present and not null.
func (r Fields) Has(key string) bool {
	v, ok := r.f[key]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func badField(key, want string) error {
	return fmt.Errorf("field %q must be a %s: %w", key, want, errs.ErrValidation)
}

// String returns a string field.
func (r Fields) String(key string) (string, error) {
	if !r.Has(key) {
		return "", nil
	}
	k, ok := r.f[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", badField(key, "string")
	}
	return k.StringValue, nil
}

// Bool returns a boolean field.
func (r Fields) Bool(key string) (bool, error) {
	if !r.Has(key) {
		return false, nil
	}
	k, ok := r.f[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, badField(key, "bool")
	}
	return k.BoolValue, nil
}

// Int returns an integral number field.
func (r Fields) Int(key string) (int, error) {
	if !r.Has(key) {
		return 0, nil
	}
	k, ok := r.f[key].GetKind().(*structpb.Value_NumberValue)
	if !ok || k.NumberValue != math.Trunc(k.NumberValue) || math.Abs(k.NumberValue) > math.MaxInt32 {
		return 0, badField(key, "whole number")
	}
	return int(k.NumberValue), nil
}

// Map returns an object field as a plain map.
func (r Fields) Map(key string) (map[string]any, error) {
	if !r.Has(key) {
		return nil, nil
	}
	k, ok := r.f[key].GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, badField(key, "object")
	}
	return k.StructValue.AsMap(), nil
}
