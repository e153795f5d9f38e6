package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/shopspring/decimal"
)

const (
	largeTransactionWindow = 5 * time.Minute
	lowBalanceWindow       = 24 * time.Hour
	spikeWindowDays        = 7
	spikeMinSamples        = 7
	subscriptionWindowDays = 30
	subscriptionMinRepeats = 2
	paydayCycleDays        = 30
)

var (
	spikeFloor            = decimal.NewFromInt(500)
	subscriptionTolerance = decimal.RequireFromString("0.05")
)

// selectTxns returns the transactions of txns that pass f.
func selectTxns(txns []model.Transaction, f model.TransactionFilter) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// LowBalance fires when the current balance drops below Threshold.
type LowBalance struct {
	Threshold float64 `json:"threshold"`
}

func (r *LowBalance) Kind() model.RuleKind { return model.KindLowBalance }

func (r *LowBalance) Window(time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{}, false
}

func (r *LowBalance) History(now time.Time) model.AlertFilter {
	return model.AlertFilter{Since: now.Add(-lowBalanceWindow)}
}

func (r *LowBalance) Evaluate(s Snapshot) *Candidate {
	if s.Account == nil {
		return nil
	}
	balance := decimal.NewFromFloat(s.Account.CurrentBalance)
	threshold := decimal.NewFromFloat(r.Threshold)
	if !balance.LessThan(threshold) {
		return nil
	}
	return emit(&Candidate{
		Title:    "Low Balance Alert",
		Body:     fmt.Sprintf("Your balance (%s) is below %s", money(s.Currency, balance), money(s.Currency, threshold)),
		Severity: model.SeverityWarning,
		Dedup:    SinceWindow(s.Now.Add(-lowBalanceWindow)),
	}, s.History)
}

// LargeTransaction fires on the most recently ingested outflow larger than Threshold.
// Only transactions ingested in the last five minutes are considered.
type LargeTransaction struct {
	Threshold float64 `json:"threshold"`
}

func (r *LargeTransaction) Kind() model.RuleKind { return model.KindLargeTransaction }

func (r *LargeTransaction) Window(now time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{
		CreatedSince: now.Add(-largeTransactionWindow),
		Sign:         model.SignOutflow,
	}, true
}

func (r *LargeTransaction) History(time.Time) model.AlertFilter {
	return model.AlertFilter{}
}

func (r *LargeTransaction) Evaluate(s Snapshot) *Candidate {
	f, _ := r.Window(s.Now)
	limit := decimal.NewFromFloat(r.Threshold).Neg()

	var latest *model.Transaction
	for _, t := range selectTxns(s.Transactions, f) {
		if !decimal.NewFromFloat(t.Amount).LessThan(limit) {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = &t
		}
	}
	if latest == nil {
		return nil
	}

	merchant := merchantLabel(*latest)
	return emit(&Candidate{
		Title:    "Large Transaction Detected",
		Body:     fmt.Sprintf("Unusual transaction: %s at %s", money(s.Currency, decimal.NewFromFloat(latest.Amount).Abs()), merchant),
		Severity: model.SeverityCritical,
		Dedup:    ContentMatch(merchant),
	}, s.History)
}

// merchantLabel names the counterparty of t for alert bodies.
func merchantLabel(t model.Transaction) string {
	switch {
	case t.Merchant != "":
		return t.Merchant
	case t.Description != "":
		return t.Description
	default:
		return "unknown merchant"
	}
}

// CategoryLimit fires when month-to-date outflows in Category exceed Limit.
type CategoryLimit struct {
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
}

func (r *CategoryLimit) Kind() model.RuleKind { return model.KindCategoryLimit }

func (r *CategoryLimit) validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("category is empty")
	}
	return nil
}

func (r *CategoryLimit) Window(now time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{
		Since:    model.StartOfMonth(now),
		Category: r.Category,
		Sign:     model.SignOutflow,
	}, true
}

func (r *CategoryLimit) History(now time.Time) model.AlertFilter {
	return model.AlertFilter{Since: model.StartOfMonth(now)}
}

func (r *CategoryLimit) Evaluate(s Snapshot) *Candidate {
	// An empty filter category matches everything; an empty rule category matches nothing.
	if r.Category == "" {
		return nil
	}
	f, _ := r.Window(s.Now)
	total := outflowTotal(selectTxns(s.Transactions, f))
	limit := decimal.NewFromFloat(r.Limit)
	if !total.GreaterThan(limit) {
		return nil
	}
	return emit(&Candidate{
		Title: r.Category + " Limit Exceeded",
		Body: fmt.Sprintf("You've spent %s on %s this month (limit: %s)",
			money(s.Currency, total), r.Category, money(s.Currency, limit)),
		Severity: model.SeverityWarning,
		Dedup:    SinceWindow(model.StartOfMonth(s.Now)),
	}, s.History)
}

// SpendingSpike fires when today's outflows exceed Multiplier times the trailing
// seven-day daily average. Fewer than seven outflows in the window disable it.
type SpendingSpike struct {
	Multiplier float64 `json:"threshold_multiplier"`
}

func (r *SpendingSpike) Kind() model.RuleKind { return model.KindSpendingSpike }

func (r *SpendingSpike) Window(now time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{
		Since: now.AddDate(0, 0, -spikeWindowDays),
		Sign:  model.SignOutflow,
	}, true
}

func (r *SpendingSpike) History(now time.Time) model.AlertFilter {
	return model.AlertFilter{Since: model.StartOfDay(now)}
}

func (r *SpendingSpike) Evaluate(s Snapshot) *Candidate {
	f, _ := r.Window(s.Now)
	recent := selectTxns(s.Transactions, f)
	if len(recent) < spikeMinSamples {
		return nil
	}

	average := outflowTotal(recent).Div(decimal.NewFromInt(spikeWindowDays))
	today := outflowTotal(selectTxns(recent, model.TransactionFilter{Since: model.StartOfDay(s.Now)}))

	multiplier := decimal.NewFromFloat(r.Multiplier)
	if !today.GreaterThan(average.Mul(multiplier)) || !today.GreaterThan(spikeFloor) {
		return nil
	}
	return emit(&Candidate{
		Title: "Spending Spike Detected",
		Body: fmt.Sprintf("You've spent %s today, %sx your daily average of %s",
			money(s.Currency, today), multiplier.String(), money(s.Currency, average)),
		Severity: model.SeverityWarning,
		Dedup:    SinceWindow(model.StartOfDay(s.Now)),
	}, s.History)
}

// NewSubscription fires on the earliest transaction of the trailing 30 days whose
// merchant has at least two other transactions within 5% of its amount.
// Only that earliest recurring merchant is considered, so a suppressed merchant
// keeps later ones quiet until it leaves the window.
type NewSubscription struct{}

func (r *NewSubscription) Kind() model.RuleKind { return model.KindNewSubscription }

// Window asks for the full history: repeats may predate the 30-day window.
func (r *NewSubscription) Window(time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{}, true
}

func (r *NewSubscription) History(time.Time) model.AlertFilter {
	return model.AlertFilter{}
}

func (r *NewSubscription) Evaluate(s Snapshot) *Candidate {
	windowStart := s.Now.AddDate(0, 0, -subscriptionWindowDays)

	var inWindow []model.Transaction
	for _, t := range s.Transactions {
		if t.Merchant != "" && t.Date.After(windowStart) {
			inWindow = append(inWindow, t)
		}
	}
	sort.SliceStable(inWindow, func(i, j int) bool {
		if inWindow[i].Date.Equal(inWindow[j].Date) {
			return inWindow[i].ID < inWindow[j].ID
		}
		return inWindow[i].Date.Before(inWindow[j].Date)
	})

	for _, first := range inWindow {
		if countSimilar(s.Transactions, first) < subscriptionMinRepeats {
			continue
		}
		return emit(&Candidate{
			Title: "New Subscription Detected",
			Body: fmt.Sprintf("Recurring payment detected: %s - %s",
				first.Merchant, money(s.Currency, decimal.NewFromFloat(first.Amount).Abs())),
			Severity: model.SeverityInfo,
			Dedup:    ContentMatch(first.Merchant),
		}, s.History)
	}
	return nil
}

// countSimilar counts the other transactions at the same merchant within the
// subscription tolerance of ref's amount.
func countSimilar(txns []model.Transaction, ref model.Transaction) int {
	amount := decimal.NewFromFloat(ref.Amount)
	tolerance := amount.Abs().Mul(subscriptionTolerance)

	n := 0
	for _, t := range txns {
		if t.ID == ref.ID || t.Merchant != ref.Merchant {
			continue
		}
		if decimal.NewFromFloat(t.Amount).Sub(amount).Abs().LessThanOrEqual(tolerance) {
			n++
		}
	}
	return n
}

// PaydayReminder fires DaysBefore days or fewer ahead of the Payday day-of-month.
// Days until payday are counted on a fixed 30-day cycle.
type PaydayReminder struct {
	Payday     int `json:"payday"`
	DaysBefore int `json:"days_before"`
}

func (r *PaydayReminder) Kind() model.RuleKind { return model.KindPaydayReminder }

func (r *PaydayReminder) Window(time.Time) (model.TransactionFilter, bool) {
	return model.TransactionFilter{}, false
}

func (r *PaydayReminder) History(now time.Time) model.AlertFilter {
	return model.AlertFilter{Since: model.StartOfMonth(now)}
}

// DaysUntil returns the days left until payday as seen on now.
func (r *PaydayReminder) DaysUntil(now time.Time) int {
	return ((r.Payday-now.Day())%paydayCycleDays + paydayCycleDays) % paydayCycleDays
}

func (r *PaydayReminder) Evaluate(s Snapshot) *Candidate {
	days := r.DaysUntil(s.Now)
	if days <= 0 || days > r.DaysBefore {
		return nil
	}
	return emit(&Candidate{
		Title:    "Payday Approaching",
		Body:     fmt.Sprintf("Payday is in %d days!", days),
		Severity: model.SeverityInfo,
		Dedup:    SinceWindow(model.StartOfMonth(s.Now)),
	}, s.History)
}
