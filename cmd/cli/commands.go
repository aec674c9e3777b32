package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/and161185/cyber-companion/internal/api"
)

// call is one RPC prepared from command-line arguments.
type call struct {
	method string
	req    map[string]any
}

// secretReader prompts for a value that must not be echoed.
type secretReader func(prompt string) (string, error)

var errUsage = errors.New("usage")

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// commands maps CLI verbs to request builders.
var commands = map[string]func(args []string, secret secretReader) (call, error){
	"password":       cmdPassword,
	"action":         cmdAction,
	"breach":         cmdBreach,
	"mood":           noArgs(api.MethodRecomputeMood),
	"diary":          cmdDiary,
	"weekly":         noArgs(api.MethodWeeklyScore),
	"grade":          noArgs(api.MethodOverallGrade),
	"dashboard":      noArgs(api.MethodDashboard),
	"tips":           noArgs(api.MethodTips),
	"2fa":            cmdTwoFactor,
	"rename":         cmdRename,
	"prefs":          cmdPrefs,
	"delete-account": cmdDeleteAccount,
}

// buildCall turns a verb and its arguments into a request.
func buildCall(verb string, args []string, secret secretReader) (call, error) {
	b, ok := commands[verb]
	if !ok {
		return call{}, fmt.Errorf("unknown command %q: %w", verb, errUsage)
	}
	return b(args, secret)
}

func noArgs(method string) func([]string, secretReader) (call, error) {
	return func(args []string, _ secretReader) (call, error) {
		if len(args) > 0 {
			return call{}, fmt.Errorf("unexpected arguments %v: %w", args, errUsage)
		}
		return call{method: method, req: map[string]any{}}, nil
	}
}

// cmdPassword prompts for the password unless -stdin is given, so it never lands in shell history.
func cmdPassword(args []string, secret secretReader) (call, error) {
	fs := newFlagSet("password")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	pw, err := secret("Password: ")
	if err != nil {
		return call{}, err
	}
	if pw == "" {
		return call{}, errors.New("empty password")
	}
	return call{method: api.MethodAnalyzePassword, req: map[string]any{"password": pw}}, nil
}

func cmdAction(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("action")
	typ := fs.String("type", "", "action type, e.g. suspicious_link_avoided")
	details := fs.String("details", "", "details as a JSON object")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	if *typ == "" {
		return call{}, fmt.Errorf("need -type: %w", errUsage)
	}
	req := map[string]any{"action_type": *typ}
	if *details != "" {
		var d map[string]any
		if err := json.Unmarshal([]byte(*details), &d); err != nil {
			return call{}, fmt.Errorf("details must be a JSON object: %w", err)
		}
		req["details"] = d
	}
	return call{method: api.MethodRecordAction, req: req}, nil
}

func cmdBreach(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("breach")
	email := fs.String("email", "", "e-mail to look up")
	force := fs.Bool("force", false, "ignore a fresh stored result")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	if *email == "" {
		return call{}, fmt.Errorf("need -email: %w", errUsage)
	}
	return call{method: api.MethodCheckBreach, req: map[string]any{"email": *email, "force": *force}}, nil
}

func cmdDiary(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("diary")
	limit := fs.Int("limit", 0, "max entries (server default when 0)")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	req := map[string]any{}
	if *limit > 0 {
		req["limit"] = *limit
	}
	return call{method: api.MethodMoodDiary, req: req}, nil
}

func cmdTwoFactor(args []string, _ secretReader) (call, error) {
	if len(args) != 1 {
		return call{}, fmt.Errorf("need on|off: %w", errUsage)
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on", "enable":
		enabled = true
	case "off", "disable":
	default:
		return call{}, fmt.Errorf("need on|off, got %q: %w", args[0], errUsage)
	}
	return call{method: api.MethodSetTwoFactor, req: map[string]any{"enabled": enabled}}, nil
}

func cmdRename(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("rename")
	name := fs.String("name", "", "new pet name")
	typ := fs.String("type", "", "cat|dog|dragon|robot")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	if *name == "" {
		return call{}, fmt.Errorf("need -name: %w", errUsage)
	}
	req := map[string]any{"name": *name}
	if *typ != "" {
		req["pet_type"] = *typ
	}
	return call{method: api.MethodRenamePet, req: req}, nil
}

func cmdPrefs(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("prefs")
	email := fs.String("email", "", "e-mail notifications: true|false")
	weekly := fs.String("weekly", "", "weekly reports: true|false")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	e, err := strconv.ParseBool(*email)
	if err != nil {
		return call{}, fmt.Errorf("need -email true|false: %w", errUsage)
	}
	w, err := strconv.ParseBool(*weekly)
	if err != nil {
		return call{}, fmt.Errorf("need -weekly true|false: %w", errUsage)
	}
	return call{method: api.MethodUpdatePreferences, req: map[string]any{"email_notifications": e, "weekly_reports": w}}, nil
}

func cmdDeleteAccount(args []string, _ secretReader) (call, error) {
	fs := newFlagSet("delete-account")
	yes := fs.Bool("yes", false, "confirm deletion of all data")
	if err := fs.Parse(args); err != nil {
		return call{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	if !*yes {
		return call{}, errors.New("refusing to delete without -yes")
	}
	return call{method: api.MethodDeleteAccount, req: map[string]any{}}, nil
}
