package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackAdapter posts alerts to a single Slack channel with a bot token.
type SlackAdapter struct {
	client      *slack.Client
	channelID   string
	username    string
	connected   bool
	connectedAt time.Time
	team        string
	lastError   string
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewSlackAdapter creates a Slack adapter. botToken is the Bot User OAuth
// Token (xoxb-...). Extra options are passed to the Slack client.
func NewSlackAdapter(botToken, channelID string, logger *zap.Logger, opts ...slack.Option) *SlackAdapter {
	return &SlackAdapter{
		client:    slack.New(botToken, opts...),
		channelID: channelID,
		username:  "spritedash",
		logger:    logger,
	}
}

func (a *SlackAdapter) Platform() string { return "slack" }

// Connect verifies the token.
func (a *SlackAdapter) Connect(ctx context.Context) error {
	resp, err := a.client.AuthTestContext(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.connected = false
		a.lastError = fmt.Sprintf("auth test: %v", err)
		return fmt.Errorf("slack auth: %w", err)
	}
	a.connected = true
	a.connectedAt = time.Now()
	a.team = resp.Team
	a.lastError = ""
	a.logger.Info("slack adapter connected",
		zap.String("team", resp.Team), zap.String("channel", a.channelID))
	return nil
}

// Notify posts the alert to the configured channel.
func (a *SlackAdapter) Notify(ctx context.Context, alert *Alert) error {
	text := fmt.Sprintf("%s *%s*\n%s", levelEmoji(alert.Level), alert.Title, alert.Text)
	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername(a.username),
		slack.MsgOptionIconEmoji(":office:"),
	)
	if err != nil {
		a.mu.Lock()
		a.lastError = err.Error()
		a.mu.Unlock()
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

func (a *SlackAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{
		Platform:  "slack",
		Connected: a.connected,
		Error:     a.lastError,
	}
	if a.connected {
		t := a.connectedAt
		s.ConnectedAt = &t
		s.Details = fmt.Sprintf("team=%s, channel=%s", a.team, a.channelID)
	}
	return s
}

// Close is a no-op; the Slack web client holds no connection.
func (a *SlackAdapter) Close() error {
	return nil
}
