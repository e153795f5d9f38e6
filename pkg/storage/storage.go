package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for accounts, transactions, rules and alerts.
type Storage interface {
	// UpsertAccount creates or replaces the user's primary account.
	UpsertAccount(ctx context.Context, account *model.Account) error

	// GetAccount returns the user's primary account, or ErrNotFound.
	GetAccount(ctx context.Context, userID string) (*model.Account, error)

	// AddTransaction stores a transaction. It reports false when a transaction
	// with the same ID already exists, leaving the stored row untouched.
	AddTransaction(ctx context.Context, txn *model.Transaction) (bool, error)

	// GetTransactions returns the user's transactions matching filter, oldest first.
	GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error)

	// CreateRule persists a new alert rule.
	CreateRule(ctx context.Context, rule *model.AlertRule) error

	// ListRules returns every rule of the user, enabled or not.
	ListRules(ctx context.Context, userID string) ([]model.AlertRule, error)

	// GetEnabledRules returns the user's enabled rules.
	GetEnabledRules(ctx context.Context, userID string) ([]model.AlertRule, error)

	// SetRuleEnabled toggles a rule.
	SetRuleEnabled(ctx context.Context, userID, ruleID string, enabled bool) error

	// UpdateRuleParameters replaces a rule's raw parameter bag.
	UpdateRuleParameters(ctx context.Context, userID, ruleID, params string) error

	// GetAlerts returns the user's alerts matching filter, newest first.
	GetAlerts(ctx context.Context, userID string, filter model.AlertFilter) ([]model.Alert, error)

	// CreateAlert persists an alert in a single write, assigning ID and CreatedAt when unset.
	CreateAlert(ctx context.Context, alert *model.Alert) error

	// CreateAlertUnless re-reads the alerts matching history and creates alert
	// unless suppress reports them as duplicates. The read and the write are one
	// atomic step against every other writer of the same database, including
	// other processes. It reports whether the alert was created.
	CreateAlertUnless(ctx context.Context, alert *model.Alert, history model.AlertFilter, suppress func([]model.Alert) bool) (bool, error)

	// MarkAlertRead flags an alert as read.
	MarkAlertRead(ctx context.Context, userID, alertID string) error

	// CategorySpending sums absolute outflows per category booked since the given time.
	CategorySpending(ctx context.Context, userID string, since time.Time) (*model.CategorySummary, error)

	// ListUserIDs returns every user that owns an account or a rule.
	ListUserIDs(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
