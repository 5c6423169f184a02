package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/ratelimit"

	"github.com/goodnatureofminers/blockchain-tracker/internal/tracker/model"
)

// WebhookNotifier POSTs one JSON document per address match to a configured
// endpoint, paced so a confirmation burst cannot flood the receiver.
type WebhookNotifier struct {
	client *http.Client
	url    string
	rl     ratelimit.Limiter
}

// NewWebhookNotifier builds a notifier for the given endpoint, limited to
// rps deliveries per second.
func NewWebhookNotifier(url string, rps int, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
		url:    url,
		rl:     ratelimit.New(rps),
	}
}

// Notify delivers a single match. Non-2xx responses are failures.
func (n *WebhookNotifier) Notify(ctx context.Context, match model.AddressTransaction) error {
	n.rl.Take()

	body, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}
