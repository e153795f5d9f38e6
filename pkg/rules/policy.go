package rules

import (
	"strings"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// Policy decides whether a candidate duplicates an earlier alert of the same rule.
// Exactly one of Since or Match is set.
type Policy struct {
	// Since suppresses when any earlier alert was created at or after it.
	Since time.Time
	// Match suppresses when any earlier alert body contains it.
	Match string
}

// SinceWindow returns a time-window policy starting at since.
func SinceWindow(since time.Time) Policy {
	return Policy{Since: since}
}

// ContentMatch returns a policy keyed on body text.
func ContentMatch(match string) Policy {
	return Policy{Match: match}
}

// Suppresses reports whether any alert in history makes the candidate a duplicate.
func (p Policy) Suppresses(history []model.Alert) bool {
	for _, a := range history {
		if p.Match != "" {
			if strings.Contains(a.Body, p.Match) {
				return true
			}
			continue
		}
		if !a.CreatedAt.Before(p.Since) {
			return true
		}
	}
	return false
}

// emit returns c unless its policy suppresses it against history.
func emit(c *Candidate, history []model.Alert) *Candidate {
	if c.Dedup.Suppresses(history) {
		return nil
	}
	return c
}
