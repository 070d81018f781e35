package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is the Redis stream the office publishes its activity to.
const DefaultStream = "spritedash:events"

// maxLen caps the stream; older entries are trimmed approximately.
const maxLen = 1000

// Event is one line of office activity.
type Event struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Session string    `json:"session,omitempty"`
	Workers []string  `json:"workers,omitempty"`
	Text    string    `json:"text"`
	Status  string    `json:"status,omitempty"`
	Time    time.Time `json:"time"`
}

// Bus publishes and follows activity via Redis Streams.
type Bus struct {
	rdb    *redis.Client
	stream string
	logger *zap.Logger
}

// NewBus creates a Redis-backed activity bus.
func NewBus(redisURL, stream string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &Bus{rdb: rdb, stream: stream, logger: logger}, nil
}

// Publish appends an event to the stream.
func (b *Bus) Publish(ctx context.Context, e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", b.stream, err)
	}

	b.logger.Debug("published event",
		zap.String("kind", e.Kind),
		zap.String("text", e.Text))
	return nil
}

// Recent returns up to n of the latest events, oldest first.
func (b *Bus) Recent(ctx context.Context, n int64) ([]*Event, error) {
	msgs, err := b.rdb.XRevRangeN(ctx, b.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.stream, err)
	}
	out := make([]*Event, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		if e, ok := decode(msgs[i]); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Subscribe follows new events. Cancel the context to stop; the channel is
// closed when the follower exits.
func (b *Bus) Subscribe(ctx context.Context) <-chan *Event {
	ch := make(chan *Event, 16)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{b.stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					e, ok := decode(msg)
					if !ok {
						continue
					}
					select {
					case ch <- e:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

func decode(msg redis.XMessage) (*Event, bool) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return nil, false
	}
	var e Event
	if json.Unmarshal([]byte(data), &e) != nil {
		return nil, false
	}
	return &e, true
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
