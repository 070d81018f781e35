package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/spritedash/internal/events"
	"github.com/nidhogg/spritedash/internal/scene"
	"github.com/nidhogg/spritedash/internal/status"
	"github.com/nidhogg/spritedash/internal/store"
	"go.uber.org/zap"
)

// Publisher forwards events to other processes.
type Publisher interface {
	Publish(ctx context.Context, e *events.Event) error
}

// Recorder persists finished interactions and status transitions.
type Recorder interface {
	RecordInteraction(ctx context.Context, kind, sessionID, a, b string) error
	RecordStatus(ctx context.Context, workerID, status string) error
	RecordPoll(ctx context.Context, healthy bool) (int64, error)
}

// Relations tracks who chats with whom.
type Relations interface {
	RecordChat(ctx context.Context, a, b string) error
}

// Alerter notifies humans when a worker breaks.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Sinks are the optional downstream consumers. Nil fields are skipped.
type Sinks struct {
	Bus       Publisher
	Store     Recorder
	Relations Relations
	Alerts    Alerter
}

const (
	queueSize   = 64
	sinkTimeout = 5 * time.Second
)

// Dispatcher takes scene events off the scene goroutine and delivers them
// to the feed and the configured sinks.
type Dispatcher struct {
	feed   *Feed
	sinks  Sinks
	logger *zap.Logger
	now    func() time.Time

	queue  chan *events.Event
	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(feed *Feed, sinks Sinks, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		feed:   feed,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
		queue:  make(chan *events.Event, queueSize),
	}
}

// Emit queues a scene event. It never blocks; when the queue is full the
// event is dropped.
func (d *Dispatcher) Emit(e scene.Event) {
	ev := &events.Event{
		ID:      uuid.NewString(),
		Kind:    string(e.Kind),
		Session: e.Session,
		Workers: e.Workers,
		Text:    e.Text,
		Time:    d.now(),
	}
	if e.Kind == scene.EventStatusChanged {
		ev.Status = string(e.Status)
	}
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("activity queue full, dropping event",
			zap.String("kind", ev.Kind))
	}
}

// Start begins delivering queued events in the background.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(ctx)
	d.logger.Info("activity dispatcher started")
}

// Stop halts delivery after draining what is already queued.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel = nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.logger.Info("activity dispatcher stopped")
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev *events.Event) {
	if ev.Kind == string(scene.EventSelected) {
		return
	}
	d.feed.Add(ev)

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if d.sinks.Bus != nil {
		if err := d.sinks.Bus.Publish(ctx, ev); err != nil {
			d.logger.Warn("publish event failed", zap.Error(err))
		}
	}

	switch scene.EventKind(ev.Kind) {
	case scene.EventChatFinished:
		d.recordInteraction(ctx, store.KindChat, ev)
		if d.sinks.Relations != nil && len(ev.Workers) == 2 {
			if err := d.sinks.Relations.RecordChat(ctx, ev.Workers[0], ev.Workers[1]); err != nil {
				d.logger.Warn("record relation failed", zap.Error(err))
			}
		}
	case scene.EventDispatchFinished:
		d.recordInteraction(ctx, store.KindDispatch, ev)
	case scene.EventStatusChanged:
		if d.sinks.Store != nil && len(ev.Workers) == 1 {
			if err := d.sinks.Store.RecordStatus(ctx, ev.Workers[0], ev.Status); err != nil {
				d.logger.Warn("record status failed", zap.Error(err))
			}
		}
		if d.sinks.Alerts != nil && ev.Status == string(scene.StatusError) {
			if err := d.sinks.Alerts.Alert(ctx, ev.Text); err != nil {
				d.logger.Warn("send alert failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) recordInteraction(ctx context.Context, kind string, ev *events.Event) {
	if d.sinks.Store == nil || len(ev.Workers) != 2 {
		return
	}
	if err := d.sinks.Store.RecordInteraction(ctx, kind, ev.Session, ev.Workers[0], ev.Workers[1]); err != nil {
		d.logger.Warn("record interaction failed",
			zap.String("kind", kind), zap.Error(err))
	}
}

// ObservePoll extends or resets the healthy streak. A poll is healthy when
// no worker reports an error.
func (d *Dispatcher) ObservePoll(p *status.Payload) {
	if d.sinks.Store == nil || p == nil {
		return
	}
	healthy := true
	for id := range p.Workers {
		if st, ok := p.StatusOf(id); ok && st == string(scene.StatusError) {
			healthy = false
			break
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	streak, err := d.sinks.Store.RecordPoll(ctx, healthy)
	if err != nil {
		d.logger.Warn("record poll failed", zap.Error(err))
		return
	}
	d.logger.Debug("poll recorded",
		zap.Bool("healthy", healthy), zap.Int64("streak", streak))
}
