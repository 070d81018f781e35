package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WebhookAdapter posts alerts as JSON to a generic incoming webhook.
type WebhookAdapter struct {
	url       string
	client    *http.Client
	sent      int
	lastError string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewWebhookAdapter creates a webhook adapter.
func NewWebhookAdapter(url string, logger *zap.Logger) *WebhookAdapter {
	return &WebhookAdapter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (a *WebhookAdapter) Platform() string { return "webhook" }

func (a *WebhookAdapter) Connect(_ context.Context) error {
	if a.url == "" {
		return fmt.Errorf("webhook url is required")
	}
	return nil
}

func (a *WebhookAdapter) Close() error { return nil }

// Notify posts the alert body.
func (a *WebhookAdapter) Notify(ctx context.Context, alert *Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.setError(err.Error())
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		a.setError(resp.Status)
		return fmt.Errorf("webhook send: %s", resp.Status)
	}

	a.mu.Lock()
	a.sent++
	a.lastError = ""
	a.mu.Unlock()
	return nil
}

func (a *WebhookAdapter) setError(msg string) {
	a.mu.Lock()
	a.lastError = msg
	a.mu.Unlock()
}

func (a *WebhookAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return AdapterStatus{
		Platform:  "webhook",
		Connected: a.url != "",
		Error:     a.lastError,
		Details:   fmt.Sprintf("sent=%d", a.sent),
	}
}
