// Package rules implements the alert rule kinds and their suppression policies.
//
// Each rule kind is a struct carrying its typed parameters. Evaluation is pure:
// it reads a Snapshot and returns at most one Candidate, never touching storage.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// ErrUnknownKind is returned for rule kinds with no evaluator.
var ErrUnknownKind = errors.New("unknown rule kind")

// ErrMalformedParams marks a parameter bag that could not be decoded.
var ErrMalformedParams = errors.New("malformed rule parameters")

// Snapshot is the read-only state a single rule is evaluated against.
type Snapshot struct {
	// Account is nil when the user has no account yet.
	Account *model.Account
	// Transactions holds the evaluator's requested window, in any order.
	Transactions []model.Transaction
	// History holds earlier alerts raised by the same rule.
	History []model.Alert
	// Currency prefixes amounts in alert bodies; may be empty.
	Currency string
	Now      time.Time
}

// Candidate is an alert an evaluator wants to emit.
type Candidate struct {
	Title    string
	Body     string
	Severity model.Severity
	Dedup    Policy
}

// Evaluator is implemented by every rule kind.
type Evaluator interface {
	// Kind returns the rule kind this evaluator implements.
	Kind() model.RuleKind

	// Window returns the transactions the evaluator needs. ok is false when it needs none.
	Window(now time.Time) (filter model.TransactionFilter, ok bool)

	// History returns the alert history the suppression check needs.
	History(now time.Time) model.AlertFilter

	// Evaluate returns a candidate alert, or nil when the rule does not fire
	// or the alert would be a duplicate of History.
	Evaluate(s Snapshot) *Candidate
}

// Parse builds the evaluator for kind from a raw JSON parameter bag.
// Missing keys keep their defaults. A malformed bag yields the full default set
// together with an error wrapping ErrMalformedParams, so the returned evaluator
// is usable unless the error is ErrUnknownKind.
func Parse(kind model.RuleKind, raw string) (Evaluator, error) {
	ev, err := Defaults(kind)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ev, nil
	}
	err = json.Unmarshal(trimmed, ev)
	if err == nil {
		if v, ok := ev.(validator); ok {
			err = v.validate()
		}
	}
	if err != nil {
		fallback, _ := Defaults(kind)
		return fallback, fmt.Errorf("%w: %s: %v", ErrMalformedParams, kind, err)
	}
	return ev, nil
}

// validator is implemented by rule kinds whose decoded parameters have
// constraints beyond their JSON types.
type validator interface {
	validate() error
}

// ValidateParams reports whether raw decodes cleanly for kind.
func ValidateParams(kind model.RuleKind, raw string) error {
	_, err := Parse(kind, raw)
	return err
}

// Defaults returns the default evaluator for kind.
func Defaults(kind model.RuleKind) (Evaluator, error) {
	switch kind {
	case model.KindLowBalance:
		return &LowBalance{Threshold: 1000.0}, nil
	case model.KindLargeTransaction:
		return &LargeTransaction{Threshold: 2000.0}, nil
	case model.KindCategoryLimit:
		return &CategoryLimit{Category: "Restaurants", Limit: 2000.0}, nil
	case model.KindSpendingSpike:
		return &SpendingSpike{Multiplier: 2.0}, nil
	case model.KindNewSubscription:
		return &NewSubscription{}, nil
	case model.KindPaydayReminder:
		return &PaydayReminder{Payday: 25, DaysBefore: 3}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Encode renders the evaluator's parameters as a JSON bag.
func Encode(ev Evaluator) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("encode %s parameters: %w", ev.Kind(), err)
	}
	return string(data), nil
}
