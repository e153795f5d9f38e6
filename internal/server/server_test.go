package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/internal/server"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*server.Server, storage.Storage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.UpsertAccount(ctx, &model.Account{UserID: "alice", Name: "Primary", CurrentBalance: 450, Currency: "ZAR"}))
	require.NoError(t, store.CreateRule(ctx, &model.AlertRule{UserID: "alice", Name: "Low", Kind: model.KindLowBalance, Enabled: true}))
	require.NoError(t, store.CreateRule(ctx, &model.AlertRule{UserID: "alice", Name: "Large", Kind: model.KindLargeTransaction, Enabled: true}))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	eng := engine.New(store, nil, logger)
	return server.NewServer(eng, store, logger), store
}

func serve(srv *server.Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

type evaluation struct {
	Alerts []model.Alert `json:"alerts"`
	Count  int           `json:"count"`
	Error  string        `json:"error"`
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupServer(t)

	w := serve(srv, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_Evaluate(t *testing.T) {
	srv, _ := setupServer(t)

	w := serve(srv, "POST", "/api/v1/users/alice/evaluate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp evaluation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "Low Balance Alert", resp.Alerts[0].Title)

	w = serve(srv, "POST", "/api/v1/users/alice/evaluate", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = evaluation{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Alerts)
}

func TestServer_Evaluate_WrongMethod(t *testing.T) {
	srv, _ := setupServer(t)
	w := serve(srv, "GET", "/api/v1/users/alice/evaluate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Ingest(t *testing.T) {
	srv, store := setupServer(t)

	body := `{"id": "txn-1", "amount": -5000, "merchant": "TAKEALOT", "date": "` + time.Now().UTC().Format(time.RFC3339) + `"}`
	w := serve(srv, "POST", "/api/v1/users/alice/transactions", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp evaluation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)

	txns, err := store.GetTransactions(context.Background(), "alice", model.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Shopping", txns[0].Category)

	w = serve(srv, "POST", "/api/v1/users/alice/transactions", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AlertsAndMarkRead(t *testing.T) {
	srv, _ := setupServer(t)
	serve(srv, "POST", "/api/v1/users/alice/evaluate", "")

	w := serve(srv, "GET", "/api/v1/users/alice/alerts?unread=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Alert
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)

	w = serve(srv, "POST", "/api/v1/users/alice/alerts/"+list[0].ID+"/read", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(srv, "GET", "/api/v1/users/alice/alerts?unread=true", "")
	list = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list)

	w = serve(srv, "POST", "/api/v1/users/alice/alerts/missing/read", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(srv, "GET", "/api/v1/users/alice/alerts?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Summary(t *testing.T) {
	srv, store := setupServer(t)
	ctx := context.Background()
	_, err := store.AddTransaction(ctx, &model.Transaction{UserID: "alice", Date: time.Now().UTC(), Amount: -120, Category: "Groceries"})
	require.NoError(t, err)
	serve(srv, "POST", "/api/v1/users/alice/evaluate", "")

	w := serve(srv, "GET", "/api/v1/users/alice/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Account      *model.Account         `json:"account"`
		UnreadAlerts int                    `json:"unread_alerts"`
		Spending     *model.CategorySummary `json:"spending"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Account)
	assert.InDelta(t, 450.0, resp.Account.CurrentBalance, 0.001)
	assert.Equal(t, 1, resp.UnreadAlerts)
	assert.InDelta(t, 120.0, resp.Spending.ByCategory["Groceries"], 0.001)
}

func TestServer_Summary_UnknownUser(t *testing.T) {
	srv, _ := setupServer(t)
	w := serve(srv, "GET", "/api/v1/users/nobody/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account":null`)
}
