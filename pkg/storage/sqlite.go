package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) UpsertAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.LastSync.IsZero() {
		account.LastSync = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, user_id, name, current_balance, available_balance, currency, last_sync)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   name = excluded.name,
		   current_balance = excluded.current_balance,
		   available_balance = excluded.available_balance,
		   currency = excluded.currency,
		   last_sync = excluded.last_sync
		 RETURNING id`,
		account.ID, account.UserID, account.Name, account.CurrentBalance,
		account.AvailableBalance, account.Currency, formatTime(account.LastSync),
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *SQLite) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	var a model.Account
	var lastSync string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, current_balance, available_balance, currency, last_sync
		 FROM accounts WHERE user_id = ?`, userID,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.CurrentBalance, &a.AvailableBalance, &a.Currency, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account for user %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a.LastSync, err = parseTime(lastSync); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLite) AddTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	if txn.Date.IsZero() {
		txn.Date = txn.CreatedAt
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, date, amount, merchant, description, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		txn.ID, txn.UserID, txn.AccountID, formatTime(txn.Date), txn.Amount,
		txn.Merchant, txn.Description, txn.Category, formatTime(txn.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLite) GetTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := `SELECT id, user_id, account_id, date, amount, merchant, description, category, created_at
		FROM transactions WHERE user_id = ?`
	where, args := buildTransactionWhere(filter)
	args = append([]any{userID}, args...)
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var date, created string
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &date, &t.Amount,
			&t.Merchant, &t.Description, &t.Category, &created); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *SQLite) CreateRule(ctx context.Context, rule *model.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if rule.Parameters == "" {
		rule.Parameters = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_rules (id, user_id, name, rule_type, parameters, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Name, rule.Kind, rule.Parameters, rule.Enabled, formatTime(rule.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (s *SQLite) ListRules(ctx context.Context, userID string) ([]model.AlertRule, error) {
	return s.queryRules(ctx, `WHERE user_id = ?`, userID)
}

func (s *SQLite) GetEnabledRules(ctx context.Context, userID string) ([]model.AlertRule, error) {
	return s.queryRules(ctx, `WHERE user_id = ? AND enabled = 1`, userID)
}

func (s *SQLite) queryRules(ctx context.Context, where string, args ...any) ([]model.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, rule_type, parameters, enabled, created_at
		 FROM alert_rules `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.AlertRule
	for rows.Next() {
		var r model.AlertRule
		var created string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Kind, &r.Parameters, &r.Enabled, &created); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *SQLite) SetRuleEnabled(ctx context.Context, userID, ruleID string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET enabled = ? WHERE id = ? AND user_id = ?`, enabled, ruleID, userID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return expectAffected(result, "rule", ruleID)
}

func (s *SQLite) UpdateRuleParameters(ctx context.Context, userID, ruleID, params string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alert_rules SET parameters = ? WHERE id = ? AND user_id = ?`, params, ruleID, userID)
	if err != nil {
		return fmt.Errorf("update rule parameters: %w", err)
	}
	return expectAffected(result, "rule", ruleID)
}

// querier is satisfied by *sql.DB and by a dedicated *sql.Conn inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLite) GetAlerts(ctx context.Context, userID string, filter model.AlertFilter) ([]model.Alert, error) {
	return selectAlerts(ctx, s.db, userID, filter)
}

func selectAlerts(ctx context.Context, q querier, userID string, filter model.AlertFilter) ([]model.Alert, error) {
	query := `SELECT id, user_id, rule_id, title, body, severity, is_read, created_at
		FROM alerts WHERE user_id = ?`
	where, args := buildAlertWhere(filter)
	args = append([]any{userID}, args...)
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var ruleID sql.NullString
		var created string
		if err := rows.Scan(&a.ID, &a.UserID, &ruleID, &a.Title, &a.Body, &a.Severity, &a.Read, &created); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		a.RuleID = ruleID.String
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) CreateAlert(ctx context.Context, alert *model.Alert) error {
	return insertAlert(ctx, s.db, alert)
}

// CreateAlertUnless holds a write lock on the database file (BEGIN IMMEDIATE)
// across the history read and the insert, so concurrent passes in other
// processes wait on busy_timeout instead of interleaving.
func (s *SQLite) CreateAlertUnless(ctx context.Context, alert *model.Alert, history model.AlertFilter, suppress func([]model.Alert) bool) (created bool, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false, fmt.Errorf("begin alert transaction: %w", err)
	}
	defer func() {
		if !created {
			conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	existing, err := selectAlerts(ctx, conn, alert.UserID, history)
	if err != nil {
		return false, err
	}
	if suppress(existing) {
		return false, nil
	}
	if err := insertAlert(ctx, conn, alert); err != nil {
		return false, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return false, fmt.Errorf("commit alert: %w", err)
	}
	return true, nil
}

func insertAlert(ctx context.Context, q querier, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	var ruleID sql.NullString
	if alert.RuleID != "" {
		ruleID = sql.NullString{String: alert.RuleID, Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO alerts (id, user_id, rule_id, title, body, severity, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.UserID, ruleID, alert.Title, alert.Body, alert.Severity, alert.Read, formatTime(alert.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?`, alertID, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return expectAffected(result, "alert", alertID)
}

func (s *SQLite) CategorySpending(ctx context.Context, userID string, since time.Time) (*model.CategorySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(-amount), 0)
		 FROM transactions
		 WHERE user_id = ? AND amount < 0 AND date >= ?
		 GROUP BY category`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("aggregate category spending: %w", err)
	}
	defer rows.Close()

	summary := &model.CategorySummary{Since: since, ByCategory: make(map[string]float64)}
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category aggregate: %w", err)
		}
		summary.ByCategory[category] = total
		summary.Total += total
	}
	return summary, rows.Err()
}

func (s *SQLite) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM accounts UNION SELECT user_id FROM alert_rules ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func expectAffected(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
	}
	return nil
}

// buildTransactionWhere constructs a SQL condition list from a TransactionFilter.
func buildTransactionWhere(filter model.TransactionFilter) (string, []any) {
	var conditions []string
	var args []any

	if !filter.Since.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "date < ?")
		args = append(args, formatTime(filter.Until))
	}
	if !filter.CreatedSince.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(filter.CreatedSince))
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Merchant != "" {
		conditions = append(conditions, "merchant = ?")
		args = append(args, filter.Merchant)
	}
	switch filter.Sign {
	case model.SignOutflow:
		conditions = append(conditions, "amount < 0")
	case model.SignInflow:
		conditions = append(conditions, "amount > 0")
	}

	return strings.Join(conditions, " AND "), args
}

// buildAlertWhere constructs a SQL condition list from an AlertFilter.
func buildAlertWhere(filter model.AlertFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.RuleID != "" {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if filter.BodyContains != "" {
		conditions = append(conditions, "instr(body, ?) > 0")
		args = append(args, filter.BodyContains)
	}
	if filter.UnreadOnly {
		conditions = append(conditions, "is_read = 0")
	}

	return strings.Join(conditions, " AND "), args
}
