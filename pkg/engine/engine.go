// Package engine runs evaluation passes: it loads a user's enabled rules,
// evaluates them against a snapshot of the store and commits the resulting alerts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/alerts"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/categorizer"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/rules"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
)

// Store is the data the engine reads and the alerts it writes.
type Store interface {
	GetAccount(ctx context.Context, userID string) (*model.Account, error)
	GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error)
	GetEnabledRules(ctx context.Context, userID string) ([]model.AlertRule, error)
	GetAlerts(ctx context.Context, userID string, filter model.AlertFilter) ([]model.Alert, error)
	CreateAlert(ctx context.Context, alert *model.Alert) error
}

// AtomicAlertStore is implemented by stores that can re-check suppression and
// insert in one atomic step. The engine prefers it when committing, which keeps
// passes for the same user in different processes from both committing.
type AtomicAlertStore interface {
	CreateAlertUnless(ctx context.Context, alert *model.Alert, history model.AlertFilter, suppress func([]model.Alert) bool) (bool, error)
}

// Engine evaluates alert rules and dispatches the alerts they raise.
type Engine struct {
	store       Store
	notifiers   []alerts.Notifier
	logger      *slog.Logger
	categorizer *categorizer.Categorizer
	parse       func(model.RuleKind, string) (rules.Evaluator, error)
	now         func() time.Time
	passTimeout time.Duration
	parallelism int
	locks       *userLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for rule windows and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPassTimeout bounds every evaluation pass. Zero disables the bound.
func WithPassTimeout(d time.Duration) Option {
	return func(e *Engine) { e.passTimeout = d }
}

// WithParallelism caps how many users EvaluateUsers processes at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithCategorizer sets the categorizer Ingest applies to uncategorized transactions.
func WithCategorizer(c *categorizer.Categorizer) Option {
	return func(e *Engine) { e.categorizer = c }
}

// WithRuleParser replaces how stored rules are turned into evaluators.
func WithRuleParser(parse func(model.RuleKind, string) (rules.Evaluator, error)) Option {
	return func(e *Engine) { e.parse = parse }
}

// New creates an engine over store.
func New(store Store, notifiers []alerts.Notifier, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:       store,
		notifiers:   notifiers,
		logger:      logger,
		categorizer: categorizer.Default(),
		parse:       rules.Parse,
		now:         func() time.Time { return time.Now().UTC() },
		passTimeout: 30 * time.Second,
		parallelism: 4,
		locks:       newUserLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pending is a candidate alert produced by one rule during phase one.
type pending struct {
	rule      model.AlertRule
	candidate *rules.Candidate
	history   model.AlertFilter
}

// EvaluateAllRules runs one evaluation pass for userID and returns the alerts it created.
// A store error aborts the pass; alerts committed before it are returned with the error.
func (e *Engine) EvaluateAllRules(ctx context.Context, userID string) ([]model.Alert, error) {
	if e.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.passTimeout)
		defer cancel()
	}

	release, err := e.locks.acquire(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %q: %w", userID, err)
	}
	defer release()

	now := e.now()
	e.logger.Debug("evaluation pass started", "user", userID)

	candidates, err := e.evaluate(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	created, err := e.commit(ctx, userID, candidates, now)
	e.notify(ctx, created)
	if err != nil {
		return created, err
	}

	e.logger.Debug("evaluation pass finished", "user", userID, "rules", len(candidates), "alerts", len(created))
	return created, nil
}

// evaluate is phase one: every enabled rule is evaluated against freshly read state.
func (e *Engine) evaluate(ctx context.Context, userID string, now time.Time) ([]pending, error) {
	enabled, err := e.store.GetEnabledRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get enabled rules: %w", err)
	}

	account, err := e.store.GetAccount(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		account, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	var out []pending
	for _, rule := range enabled {
		ev, err := e.parse(rule.Kind, rule.Parameters)
		if errors.Is(err, rules.ErrUnknownKind) {
			e.logger.Debug("skipping rule of unknown kind", "rule", rule.ID, "kind", rule.Kind)
			continue
		}
		if err != nil {
			e.logger.Warn("malformed rule parameters, using defaults", "rule", rule.ID, "kind", rule.Kind, "error", err)
		}

		snap, err := e.snapshot(ctx, userID, rule, ev, account, now)
		if err != nil {
			return nil, err
		}

		if c := e.safeEvaluate(rule, ev, snap); c != nil {
			out = append(out, pending{rule: rule, candidate: c, history: historyFilter(rule, ev, now)})
		}
	}
	return out, nil
}

func (e *Engine) snapshot(ctx context.Context, userID string, rule model.AlertRule, ev rules.Evaluator, account *model.Account, now time.Time) (rules.Snapshot, error) {
	snap := rules.Snapshot{Account: account, Now: now}
	if account != nil {
		snap.Currency = account.Currency
	}

	if filter, ok := ev.Window(now); ok {
		txns, err := e.store.GetTransactions(ctx, userID, filter)
		if err != nil {
			return snap, fmt.Errorf("get transactions for rule %s: %w", rule.ID, err)
		}
		snap.Transactions = txns
	}

	existing, err := e.store.GetAlerts(ctx, userID, historyFilter(rule, ev, now))
	if err != nil {
		return snap, fmt.Errorf("get alert history for rule %s: %w", rule.ID, err)
	}
	snap.History = existing
	return snap, nil
}

func historyFilter(rule model.AlertRule, ev rules.Evaluator, now time.Time) model.AlertFilter {
	history := ev.History(now)
	history.RuleID = rule.ID
	return history
}

// safeEvaluate isolates a panicking evaluator from the rest of the pass.
func (e *Engine) safeEvaluate(rule model.AlertRule, ev rules.Evaluator, snap rules.Snapshot) (c *rules.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule evaluator panicked", "rule", rule.ID, "kind", rule.Kind, "panic", r)
			c = nil
		}
	}()
	return ev.Evaluate(snap)
}

// commit is phase two: candidates are re-checked against alerts written earlier
// in this pass and persisted one at a time.
func (e *Engine) commit(ctx context.Context, userID string, candidates []pending, now time.Time) ([]model.Alert, error) {
	created := []model.Alert{}
	for _, p := range candidates {
		if p.candidate.Dedup.Suppresses(committedFor(created, p.rule.ID)) {
			e.logger.Debug("candidate suppressed within pass", "rule", p.rule.ID)
			continue
		}

		alert := model.Alert{
			UserID:    userID,
			RuleID:    p.rule.ID,
			Title:     p.candidate.Title,
			Body:      p.candidate.Body,
			Severity:  p.candidate.Severity,
			CreatedAt: now,
		}
		stored, err := e.createAlert(ctx, &alert, p)
		if err != nil {
			return created, fmt.Errorf("create alert for rule %s: %w", p.rule.ID, err)
		}
		if !stored {
			e.logger.Debug("candidate suppressed by a concurrent pass", "rule", p.rule.ID)
			continue
		}
		created = append(created, alert)

		e.logger.Info("alert created",
			"user", userID,
			"rule", p.rule.ID,
			"kind", p.rule.Kind,
			"severity", alert.Severity,
			"title", alert.Title,
		)
	}
	return created, nil
}

// createAlert writes alert, re-checking the rule's history atomically when the
// store supports it.
func (e *Engine) createAlert(ctx context.Context, alert *model.Alert, p pending) (bool, error) {
	if guarded, ok := e.store.(AtomicAlertStore); ok {
		return guarded.CreateAlertUnless(ctx, alert, p.history, p.candidate.Dedup.Suppresses)
	}
	return true, e.store.CreateAlert(ctx, alert)
}

func committedFor(created []model.Alert, ruleID string) []model.Alert {
	var out []model.Alert
	for _, a := range created {
		if a.RuleID == ruleID {
			out = append(out, a)
		}
	}
	return out
}

// notify fans created alerts out to every notifier. Failures are logged only.
func (e *Engine) notify(ctx context.Context, created []model.Alert) {
	for _, alert := range created {
		for _, notifier := range e.notifiers {
			if err := notifier.Send(ctx, alert); err != nil {
				e.logger.Error("send alert failed",
					"notifier", notifier.Name(),
					"alert", alert.ID,
					"error", err,
				)
			}
		}
	}
}
