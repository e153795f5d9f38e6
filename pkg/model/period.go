package model

import (
	"strings"
	"time"
)

// Period defines a reporting window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PeriodBounds returns the start and end of the period containing now.
func PeriodBounds(period Period, now time.Time) (start, end time.Time) {
	switch period {
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = StartOfDay(now).AddDate(0, 0, -weekday+1)
		end = start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = StartOfMonth(now)
		end = start.AddDate(0, 1, 0)
	default:
		start = StartOfDay(now)
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

// Matches reports whether a passes every constraint of the filter.
func (f AlertFilter) Matches(a Alert) bool {
	if f.RuleID != "" && a.RuleID != f.RuleID {
		return false
	}
	if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
		return false
	}
	if f.BodyContains != "" && !strings.Contains(a.Body, f.BodyContains) {
		return false
	}
	if f.UnreadOnly && a.Read {
		return false
	}
	return true
}
