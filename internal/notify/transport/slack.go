// Package transport implements the outbound notification channels. The
// dispatcher owns retries and audit recording; transports do one attempt.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Slack posts messages to an incoming-webhook URL.
type Slack struct {
	webhookURL string
	client     *http.Client
}

func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// SendSlack delivers one message. The context bounds the attempt.
func (s *Slack) SendSlack(ctx context.Context, message string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
