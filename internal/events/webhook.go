package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPublisher posts events to the document generator, which renders and
// stores the invoice or purchase order document.
type WebhookPublisher struct {
	url      string
	apiToken string
	client   *http.Client
}

func NewWebhookPublisher(url, apiToken string) *WebhookPublisher {
	return &WebhookPublisher{
		url:      url,
		apiToken: apiToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.apiToken != "" {
		req.Header.Set("Authorization", "Token "+p.apiToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode, p.url)
	}

	return nil
}
