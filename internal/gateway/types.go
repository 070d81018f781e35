package gateway

import (
	"context"
	"time"
)

// Adapter delivers alerts to one chat platform.
type Adapter interface {
	Platform() string
	Connect(ctx context.Context) error
	Notify(ctx context.Context, alert *Alert) error
	Status() AdapterStatus
	Close() error
}

// Level grades an alert.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Alert is a notification fanned out to every connected platform.
type Alert struct {
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	WorkerID  string    `json:"worker_id,omitempty"`
	Platforms []string  `json:"platforms,omitempty"`
	Time      time.Time `json:"time"`
}

// AdapterStatus reports the health of an adapter.
type AdapterStatus struct {
	Platform    string     `json:"platform"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Details     string     `json:"details,omitempty"`
}

func levelEmoji(l Level) string {
	switch l {
	case LevelError:
		return ":rotating_light:"
	case LevelWarning:
		return ":warning:"
	}
	return ":information_source:"
}
