package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ogulcanaydogan/Financial-Alarm/pkg/model"
)

// Webhook delivery headers.
const (
	HeaderDelivery  = "X-Alarm-Delivery"
	HeaderTimestamp = "X-Alarm-Timestamp"
	HeaderSignature = "X-Alarm-Signature"
)

// WebhookNotifier posts alerts as JSON events to an HTTP endpoint.
// Every delivery carries the alert ID in HeaderDelivery so receivers can drop
// repeats. With a secret, deliveries are signed over "<timestamp>.<body>".
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier. An empty secret disables signing.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Send(ctx context.Context, alert model.Alert) error {
	sentAt := w.now()
	body, err := json.Marshal(webhookEvent{
		Event:  EventName(alert.Severity),
		SentAt: sentAt,
		Alert:  alert,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	timestamp := strconv.FormatInt(sentAt.Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Financial-Alarm/1.0")
	req.Header.Set(HeaderDelivery, alert.ID)
	req.Header.Set(HeaderTimestamp, timestamp)
	if w.secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+Sign(w.secret, timestamp, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver alert %s: %w", alert.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("deliver alert %s: status %d: %s", alert.ID, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

type webhookEvent struct {
	Event  string      `json:"event"`
	SentAt time.Time   `json:"sent_at"`
	Alert  model.Alert `json:"alert"`
}

// EventName returns the event type for an alert of severity s, e.g. "alert.critical".
func EventName(s model.Severity) string {
	return "alert." + strings.ToLower(string(s))
}

// Sign returns the hex HMAC-SHA256 of "<timestamp>.<body>" keyed by secret.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature, as sent in HeaderSignature, authenticates
// body and timestamp under secret.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	got, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}
	return hmac.Equal([]byte(got), []byte(Sign(secret, timestamp, body)))
}
