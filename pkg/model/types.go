package model

import "time"

// Severity indicates how urgent an alert is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// RuleKind names one of the alert-triggering heuristics.
type RuleKind string

const (
	KindLowBalance       RuleKind = "low_balance"
	KindLargeTransaction RuleKind = "large_transaction"
	KindCategoryLimit    RuleKind = "category_limit"
	KindSpendingSpike    RuleKind = "spending_spike"
	KindNewSubscription  RuleKind = "new_subscription"
	KindPaydayReminder   RuleKind = "payday_reminder"
)

// RuleKinds lists every supported rule kind.
var RuleKinds = []RuleKind{
	KindLowBalance,
	KindLargeTransaction,
	KindCategoryLimit,
	KindSpendingSpike,
	KindNewSubscription,
	KindPaydayReminder,
}

// Valid reports whether k is a supported rule kind.
func (k RuleKind) Valid() bool {
	for _, known := range RuleKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Account is the single primary account modelled per user.
type Account struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Name             string    `json:"name" db:"name"`
	CurrentBalance   float64   `json:"current_balance" db:"current_balance"`
	AvailableBalance float64   `json:"available_balance" db:"available_balance"`
	Currency         string    `json:"currency" db:"currency"`
	LastSync         time.Time `json:"last_sync" db:"last_sync"`
}

// Transaction is an immutable booked account movement.
// Negative amounts are outflows, positive amounts are inflows.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	AccountID   string    `json:"account_id" db:"account_id"`
	Date        time.Time `json:"date" db:"date"`
	Amount      float64   `json:"amount" db:"amount"`
	Merchant    string    `json:"merchant" db:"merchant"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    string    `json:"category" db:"category"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsOutflow reports whether the transaction moves money out of the account.
func (t Transaction) IsOutflow() bool { return t.Amount < 0 }

// AlertRule is a user's configured instance of a rule kind.
// Parameters holds the raw JSON parameter bag as stored.
type AlertRule struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	Kind       RuleKind  `json:"rule_type" db:"rule_type"`
	Parameters string    `json:"parameters" db:"parameters"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Alert is a notification produced by the rule engine.
// RuleID is empty for alerts not created by a rule.
type Alert struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	RuleID    string    `json:"rule_id,omitempty" db:"rule_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Severity  Severity  `json:"severity" db:"severity"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AmountSign restricts transactions by the sign of their amount.
type AmountSign int

const (
	SignAny     AmountSign = iota // No restriction
	SignOutflow                   // amount < 0
	SignInflow                    // amount > 0
)

// Matches reports whether amount satisfies the sign constraint.
func (s AmountSign) Matches(amount float64) bool {
	switch s {
	case SignOutflow:
		return amount < 0
	case SignInflow:
		return amount > 0
	default:
		return true
	}
}

// TransactionFilter controls which transactions a store returns.
// Zero values mean "no constraint". Since is inclusive, Until exclusive.
type TransactionFilter struct {
	Since        time.Time  `json:"since,omitempty"`
	Until        time.Time  `json:"until,omitempty"`
	CreatedSince time.Time  `json:"created_since,omitempty"`
	Category     string     `json:"category,omitempty"`
	Merchant     string     `json:"merchant,omitempty"`
	Sign         AmountSign `json:"sign,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// Matches reports whether t passes every constraint of the filter.
func (f TransactionFilter) Matches(t Transaction) bool {
	if !f.Since.IsZero() && t.Date.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !t.Date.Before(f.Until) {
		return false
	}
	if !f.CreatedSince.IsZero() && t.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Merchant != "" && t.Merchant != f.Merchant {
		return false
	}
	return f.Sign.Matches(t.Amount)
}

// AlertFilter controls which alerts a store returns.
type AlertFilter struct {
	RuleID       string    `json:"rule_id,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	BodyContains string    `json:"body_contains,omitempty"`
	UnreadOnly   bool      `json:"unread_only,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// CategorySummary holds month-to-date outflow totals per category.
type CategorySummary struct {
	Since      time.Time          `json:"since"`
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"by_category"`
}
