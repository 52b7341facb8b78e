// internal/notification/channels/webhook.go
package channels

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wallet-ledger/internal/util"
)

const (
	SignatureHeader = "X-Ledger-Signature"
	TimestampHeader = "X-Ledger-Timestamp"
)

// Endpoint is where a merchant receives webhooks.
type Endpoint struct {
	URL    string
	Secret string
}

// EndpointLookup resolves a dispatch target (the merchant's user id) to its
// current endpoint, so a changed URL or secret applies to retries.
type EndpointLookup func(ctx context.Context, target string) (Endpoint, error)

// WebhookSender POSTs signed payloads to merchant endpoints.
type WebhookSender struct {
	client    *http.Client
	endpoints EndpointLookup
	now       func() time.Time
}

// NewWebhookSender creates a WebhookSender.
func NewWebhookSender(client *http.Client, endpoints EndpointLookup) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSender{client: client, endpoints: endpoints, now: time.Now}
}

// Sign computes hex(HMAC-SHA256(secret, timestamp + "." + body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	expected := Sign(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Send posts payload to the target merchant. Any non-2xx response is a rejection.
func (s *WebhookSender) Send(ctx context.Context, target, payload string) error {
	ep, err := s.endpoints(ctx, target)
	if err != nil {
		return fmt.Errorf("webhook: endpoint for merchant %s: %w", target, err)
	}
	if ep.URL == "" {
		return fmt.Errorf("webhook: merchant %s has no endpoint: %w", target, util.ErrChannelDeliveryFailed)
	}

	body := []byte(payload)
	ts := strconv.FormatInt(s.now().Unix(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TimestampHeader, ts)
	req.Header.Set(SignatureHeader, Sign(ep.Secret, ts, body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", ep.URL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: %s answered %d: %w", ep.URL, resp.StatusCode, util.ErrChannelDeliveryFailed)
	}
	return nil
}
