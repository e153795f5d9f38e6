package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/engine"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/storage"
)

// Server exposes evaluation triggers and read-only alert views over HTTP.
type Server struct {
	engine *engine.Engine
	store  storage.Storage
	mux    *http.ServeMux
	logger *slog.Logger
	now    func() time.Time
}

// NewServer creates an API server.
func NewServer(eng *engine.Engine, store storage.Storage, logger *slog.Logger) *Server {
	s := &Server{
		engine: eng,
		store:  store,
		mux:    http.NewServeMux(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/users/{user}/evaluate", s.handleEvaluate)
	s.mux.HandleFunc("POST /api/v1/users/{user}/transactions", s.handleIngest)
	s.mux.HandleFunc("GET /api/v1/users/{user}/alerts", s.handleAlerts)
	s.mux.HandleFunc("POST /api/v1/users/{user}/alerts/{id}/read", s.handleMarkRead)
	s.mux.HandleFunc("GET /api/v1/users/{user}/summary", s.handleSummary)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type evaluateResponse struct {
	Alerts []model.Alert `json:"alerts"`
	Count  int           `json:"count"`
	Error  string        `json:"error,omitempty"`
}

type summaryResponse struct {
	Account      *model.Account         `json:"account"`
	UnreadAlerts int                    `json:"unread_alerts"`
	Spending     *model.CategorySummary `json:"spending"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	created, err := s.engine.EvaluateAllRules(r.Context(), user)
	s.writeEvaluation(w, user, created, err)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var txn model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		http.Error(w, "invalid transaction: "+err.Error(), http.StatusBadRequest)
		return
	}
	txn.UserID = user

	created, err := s.engine.Ingest(r.Context(), s.store, &txn)
	s.writeEvaluation(w, user, created, err)
}

// writeEvaluation reports a pass. Alerts committed before a failure are still returned.
func (s *Server) writeEvaluation(w http.ResponseWriter, user string, created []model.Alert, err error) {
	resp := evaluateResponse{Alerts: created, Count: len(created)}
	if resp.Alerts == nil {
		resp.Alerts = []model.Alert{}
	}
	status := http.StatusOK
	if err != nil {
		s.logger.Error("evaluation pass failed", "user", user, "error", err)
		resp.Error = err.Error()
		status = http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := model.AlertFilter{
		RuleID:     r.URL.Query().Get("rule"),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	list, err := s.store.GetAlerts(ctx, r.PathValue("user"), filter)
	if err != nil {
		s.logger.Error("query alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err := s.store.MarkAlertRead(ctx, r.PathValue("user"), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("mark alert read", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := r.PathValue("user")
	resp := summaryResponse{}

	account, err := s.store.GetAccount(ctx, user)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.logger.Error("get account", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	default:
		resp.Account = account
	}

	unread, err := s.store.GetAlerts(ctx, user, model.AlertFilter{UnreadOnly: true})
	if err != nil {
		s.logger.Error("query alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.UnreadAlerts = len(unread)

	start, _ := model.PeriodBounds(model.PeriodMonthly, s.now())
	resp.Spending, err = s.store.CategorySpending(ctx, user, start)
	if err != nil {
		s.logger.Error("aggregate spending", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListenAndServe serves the API on addr until ctx is canceled, then shuts down
// gracefully, giving in-flight requests up to 10s to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("alarm server started", "listen", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
