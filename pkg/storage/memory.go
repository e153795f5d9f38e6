package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// Memory is an in-process Storage used by tests and ephemeral runs.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	transactions map[string]model.Transaction
	rules        []model.AlertRule
	alerts       []model.Alert
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]model.Account),
		transactions: make(map[string]model.Transaction),
	}
}

func (m *Memory) UpsertAccount(ctx context.Context, account *model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[account.UserID]; ok {
		account.ID = existing.ID
	} else if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.LastSync.IsZero() {
		account.LastSync = time.Now().UTC()
	}
	account.LastSync = account.LastSync.UTC()
	m.accounts[account.UserID] = *account
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account for user %q: %w", userID, ErrNotFound)
	}
	return &a, nil
}

func (m *Memory) AddTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if _, exists := m.transactions[txn.ID]; exists {
		return false, nil
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	if txn.Date.IsZero() {
		txn.Date = txn.CreatedAt
	}
	txn.Date = txn.Date.UTC()
	txn.CreatedAt = txn.CreatedAt.UTC()
	m.transactions[txn.ID] = *txn
	return true, nil
}

func (m *Memory) GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID && filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) CreateRule(ctx context.Context, rule *model.AlertRule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	for _, r := range m.rules {
		if r.ID == rule.ID {
			return fmt.Errorf("insert rule: duplicate id %q", rule.ID)
		}
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.Parameters == "" {
		rule.Parameters = "{}"
	}
	rule.CreatedAt = rule.CreatedAt.UTC()
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *Memory) ListRules(ctx context.Context, userID string) ([]model.AlertRule, error) {
	return m.selectRules(ctx, userID, false)
}

func (m *Memory) GetEnabledRules(ctx context.Context, userID string) ([]model.AlertRule, error) {
	return m.selectRules(ctx, userID, true)
}

func (m *Memory) selectRules(ctx context.Context, userID string, enabledOnly bool) ([]model.AlertRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.AlertRule
	for _, r := range m.rules {
		if r.UserID != userID || (enabledOnly && !r.Enabled) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) SetRuleEnabled(ctx context.Context, userID, ruleID string, enabled bool) error {
	return m.updateRule(ctx, userID, ruleID, func(r *model.AlertRule) { r.Enabled = enabled })
}

func (m *Memory) UpdateRuleParameters(ctx context.Context, userID, ruleID, params string) error {
	return m.updateRule(ctx, userID, ruleID, func(r *model.AlertRule) { r.Parameters = params })
}

func (m *Memory) updateRule(ctx context.Context, userID, ruleID string, apply func(*model.AlertRule)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rules {
		if m.rules[i].ID == ruleID && m.rules[i].UserID == userID {
			apply(&m.rules[i])
			return nil
		}
	}
	return fmt.Errorf("rule %q: %w", ruleID, ErrNotFound)
}

func (m *Memory) GetAlerts(ctx context.Context, userID string, filter model.AlertFilter) ([]model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectAlerts(userID, filter), nil
}

// selectAlerts must be called with mu held.
func (m *Memory) selectAlerts(userID string, filter model.AlertFilter) []model.Alert {
	var out []model.Alert
	for _, a := range m.alerts {
		if a.UserID == userID && filter.Matches(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (m *Memory) CreateAlert(ctx context.Context, alert *model.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertAlert(alert)
	return nil
}

func (m *Memory) CreateAlertUnless(ctx context.Context, alert *model.Alert, history model.AlertFilter, suppress func([]model.Alert) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if suppress(m.selectAlerts(alert.UserID, history)) {
		return false, nil
	}
	m.insertAlert(alert)
	return true, nil
}

// insertAlert must be called with mu held.
func (m *Memory) insertAlert(alert *model.Alert) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	alert.CreatedAt = alert.CreatedAt.UTC()
	m.alerts = append(m.alerts, *alert)
}

func (m *Memory) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == alertID && m.alerts[i].UserID == userID {
			m.alerts[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("alert %q: %w", alertID, ErrNotFound)
}

func (m *Memory) CategorySpending(ctx context.Context, userID string, since time.Time) (*model.CategorySummary, error) {
	txns, err := m.GetTransactions(ctx, userID, model.TransactionFilter{Since: since, Sign: model.SignOutflow})
	if err != nil {
		return nil, err
	}

	summary := &model.CategorySummary{Since: since, ByCategory: make(map[string]float64)}
	for _, t := range txns {
		summary.ByCategory[t.Category] += -t.Amount
		summary.Total += -t.Amount
	}
	return summary, nil
}

func (m *Memory) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for id := range m.accounts {
		seen[id] = true
	}
	for _, r := range m.rules {
		seen[r.UserID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }
