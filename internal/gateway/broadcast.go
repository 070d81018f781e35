package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCooldown suppresses repeats of the same alert text.
const DefaultCooldown = 10 * time.Minute

const maxHistory = 100

// AlertRecord tracks a sent alert.
type AlertRecord struct {
	Alert   *Alert   `json:"alert"`
	Targets []string `json:"targets"`
}

// Broadcaster sends office alerts through the Gateway, muting repeats.
type Broadcaster struct {
	gateway  *Gateway
	cooldown time.Duration
	now      func() time.Time
	lastSent map[string]time.Time
	history  []AlertRecord
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewBroadcaster creates a broadcaster backed by the given gateway.
func NewBroadcaster(gw *Gateway, cooldown time.Duration, logger *zap.Logger) *Broadcaster {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Broadcaster{
		gateway:  gw,
		cooldown: cooldown,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
		logger:   logger,
	}
}

// Alert sends an error-level alert with the given text.
func (b *Broadcaster) Alert(ctx context.Context, text string) error {
	return b.Send(ctx, &Alert{
		Level: LevelError,
		Title: "Worker needs attention",
		Text:  text,
	})
}

// Send delivers an alert unless the same text went out within the cooldown.
func (b *Broadcaster) Send(ctx context.Context, alert *Alert) error {
	if alert.Text == "" {
		return fmt.Errorf("alert text is required")
	}
	if alert.Level == "" {
		alert.Level = LevelInfo
	}
	now := b.now()
	if alert.Time.IsZero() {
		alert.Time = now
	}

	b.mu.Lock()
	if last, ok := b.lastSent[alert.Text]; ok && now.Sub(last) < b.cooldown {
		b.mu.Unlock()
		b.logger.Debug("alert muted", zap.String("text", alert.Text))
		return nil
	}
	b.lastSent[alert.Text] = now
	b.mu.Unlock()

	b.logger.Info("sending alert",
		zap.String("level", string(alert.Level)),
		zap.String("title", alert.Title),
		zap.String("text", alert.Text),
	)

	if err := b.gateway.Notify(ctx, alert); err != nil {
		return err
	}

	targets := alert.Platforms
	if len(targets) == 0 {
		targets = b.gateway.Adapters()
	}

	b.mu.Lock()
	b.history = append(b.history, AlertRecord{Alert: alert, Targets: targets})
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	b.mu.Unlock()
	return nil
}

// History returns the latest sent alerts, oldest first.
func (b *Broadcaster) History(limit int) []AlertRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]AlertRecord, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}
