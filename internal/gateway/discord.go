package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var levelColors = map[Level]int{
	LevelInfo:    0x3498db,
	LevelWarning: 0xf1c40f,
	LevelError:   0xe74c3c,
}

// DiscordAdapter posts alerts as embeds to one Discord channel over the REST
// API. It never opens the bot gateway websocket.
type DiscordAdapter struct {
	token       string
	channelID   string
	session     *discordgo.Session
	connected   bool
	connectedAt time.Time
	botName     string
	lastError   string
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewDiscordAdapter creates a Discord adapter.
func NewDiscordAdapter(token, channelID string, logger *zap.Logger) *DiscordAdapter {
	return &DiscordAdapter{
		token:     token,
		channelID: channelID,
		logger:    logger,
	}
}

func (a *DiscordAdapter) Platform() string { return "discord" }

// Connect creates the session and checks that the token belongs to a bot
// that can see the channel.
func (a *DiscordAdapter) Connect(ctx context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		a.fail(fmt.Sprintf("session create: %v", err))
		return fmt.Errorf("discord session: %w", err)
	}

	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		a.fail(fmt.Sprintf("identify: %v", err))
		return fmt.Errorf("discord identify: %w", err)
	}
	if _, err := session.Channel(a.channelID, discordgo.WithContext(ctx)); err != nil {
		a.fail(fmt.Sprintf("channel %s: %v", a.channelID, err))
		return fmt.Errorf("discord channel %s: %w", a.channelID, err)
	}

	a.mu.Lock()
	a.session = session
	a.connected = true
	a.connectedAt = time.Now()
	a.botName = user.Username
	a.lastError = ""
	a.mu.Unlock()

	a.logger.Info("discord adapter connected",
		zap.String("user", user.Username), zap.String("channel", a.channelID))
	return nil
}

func (a *DiscordAdapter) fail(msg string) {
	a.mu.Lock()
	a.connected = false
	a.lastError = msg
	a.mu.Unlock()
}

// Notify posts the alert as an embed.
func (a *DiscordAdapter) Notify(ctx context.Context, alert *Alert) error {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()
	if session == nil {
		return fmt.Errorf("discord send: not connected")
	}

	embed := &discordgo.MessageEmbed{
		Title:       alert.Title,
		Description: alert.Text,
		Color:       levelColors[alert.Level],
		Timestamp:   alert.Time.Format(time.RFC3339),
	}
	if alert.WorkerID != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: alert.WorkerID}
	}
	if _, err := session.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		a.mu.Lock()
		a.lastError = err.Error()
		a.mu.Unlock()
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close releases the session.
func (a *DiscordAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
	a.connected = false
	return nil
}

func (a *DiscordAdapter) Status() AdapterStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := AdapterStatus{
		Platform:  "discord",
		Connected: a.connected,
		Error:     a.lastError,
	}
	if a.connected {
		t := a.connectedAt
		s.ConnectedAt = &t
		s.Details = fmt.Sprintf("bot=%s, channel=%s", a.botName, a.channelID)
	}
	return s
}
