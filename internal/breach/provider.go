// Package breach provides breach intelligence sources for e-mail addresses.
package breach

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/model"
)

// Provider looks up known breaches for an e-mail. Failures are reported as errs.ErrProviderUnavailable.
type Provider interface {
	Lookup(ctx context.Context, email string) (model.BreachResult, error)
}

// Provider kinds accepted by New.
const (
	KindDemo = "demo"
	KindNone = "none"
)

// New returns the provider configured by kind.
func New(kind string) (Provider, error) {
	switch kind {
	case KindDemo:
		return DemoProvider{}, nil
	case KindNone, "":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown breach provider %q", kind)
	}
}

// NormalizeEmail lower-cases and trims the address and rejects values that are not user@domain.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(e, '@')
	if at <= 0 || at == len(e)-1 || strings.ContainsAny(e, " \t\r\n") {
		return "", fmt.Errorf("invalid e-mail %q: %w", email, errs.ErrValidation)
	}
	return e, nil
}

// DemoProvider always reports the same single Adobe breach. It is meant for local runs only.
type DemoProvider struct{}

var adobe = model.BreachRecord{
	Name:         "Adobe",
	Title:        "Adobe",
	Domain:       "adobe.com",
	BreachDate:   "2013-10-04",
	AddedDate:    "2013-12-04T00:00:00Z",
	ModifiedDate: "2013-12-04T00:00:00Z",
	PwnCount:     152445165,
	Description:  "In October 2013, 153 million Adobe accounts were breached...",
	DataClasses:  []string{"Email addresses", "Password hints", "Passwords", "Usernames"},
}

// Lookup returns the demo record; the count always equals the number of details.
func (DemoProvider) Lookup(ctx context.Context, _ string) (model.BreachResult, error) {
	if err := ctx.Err(); err != nil {
		return model.BreachResult{}, fmt.Errorf("demo lookup: %v: %w", err, errs.ErrProviderUnavailable)
	}
	rec := adobe
	rec.DataClasses = append([]string(nil), adobe.DataClasses...)
	details := []model.BreachRecord{rec}
	return model.BreachResult{BreachesFound: len(details), BreachDetails: details}, nil
}

// Unavailable is the provider used when no breach source is configured.
type Unavailable struct{}

// Lookup always fails with errs.ErrProviderUnavailable.
func (Unavailable) Lookup(context.Context, string) (model.BreachResult, error) {
	return model.BreachResult{}, fmt.Errorf("no breach source configured: %w", errs.ErrProviderUnavailable)
}
