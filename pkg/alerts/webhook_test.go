package alerts_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/alerts"
	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Name(t *testing.T) {
	n := alerts.NewWebhookNotifier("https://example.com/webhook", "")
	assert.Equal(t, "webhook", n.Name())
}

func TestWebhookNotifier_Send(t *testing.T) {
	var received map[string]any
	var delivery, timestamp string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Financial-Alarm/1.0", r.Header.Get("User-Agent"))
		delivery = r.Header.Get(alerts.HeaderDelivery)
		timestamp = r.Header.Get(alerts.HeaderTimestamp)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	alert := model.Alert{
		ID:       "a1",
		UserID:   "alice",
		RuleID:   "r1",
		Title:    "Large Transaction Detected",
		Body:     "Unusual transaction: 5000.00 at TAKEALOT",
		Severity: model.SeverityCritical,
	}

	before := time.Now().Unix()
	require.NoError(t, n.Send(context.Background(), alert))

	assert.Equal(t, "a1", delivery)
	sent, err := strconv.ParseInt(timestamp, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sent, before)

	assert.Equal(t, "alert.critical", received["event"])
	assert.NotEmpty(t, received["sent_at"])
	body, ok := received["alert"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CRITICAL", body["severity"])
	assert.Equal(t, "r1", body["rule_id"])
}

func TestWebhookNotifier_SignedDeliveryVerifies(t *testing.T) {
	var signature, timestamp string
	var payload []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get(alerts.HeaderSignature)
		timestamp = r.Header.Get(alerts.HeaderTimestamp)
		payload, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "test-secret")
	require.NoError(t, n.Send(context.Background(), model.Alert{ID: "a2", Severity: model.SeverityWarning}))

	assert.Equal(t, "sha256="+alerts.Sign("test-secret", timestamp, payload), signature)
	assert.True(t, alerts.Verify("test-secret", timestamp, payload, signature))
	assert.False(t, alerts.Verify("other-secret", timestamp, payload, signature))
	assert.False(t, alerts.Verify("test-secret", "0", payload, signature), "signature is bound to the timestamp")
	assert.False(t, alerts.Verify("test-secret", timestamp, payload, alerts.Sign("test-secret", timestamp, payload)), "prefix required")
}

func TestWebhookNotifier_UnsignedWithoutSecret(t *testing.T) {
	var hasSignature bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get(alerts.HeaderSignature) != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	require.NoError(t, n.Send(context.Background(), model.Alert{Severity: model.SeverityWarning}))
	assert.False(t, hasSignature)
}

func TestWebhookNotifier_ServerErrorIncludesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "receiver overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), model.Alert{ID: "a3", Severity: model.SeverityInfo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a3")
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "receiver overloaded")
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "alert.info", alerts.EventName(model.SeverityInfo))
	assert.Equal(t, "alert.warning", alerts.EventName(model.SeverityWarning))
	assert.Equal(t, "alert.critical", alerts.EventName(model.SeverityCritical))
}
