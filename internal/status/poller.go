package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval matches how often workers are expected to update.
const DefaultPollInterval = 30 * time.Second

// Source produces status payloads.
type Source interface {
	Fetch(ctx context.Context) (*Payload, error)
}

// HTTPSource polls a remote /api/status endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for the given status URL.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch GETs and decodes one payload.
func (s *HTTPSource) Fetch(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch status: status %d", resp.StatusCode)
	}
	var p Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &p, nil
}

// Poller fetches the payload on an interval and hands each successful result
// to its listeners. A failed poll keeps the last good payload.
type Poller struct {
	src       Source
	interval  time.Duration
	listeners []func(*Payload)
	last      *Payload
	failures  int
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *zap.Logger
}

// NewPoller creates a poller. A zero interval uses DefaultPollInterval.
func NewPoller(src Source, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{src: src, interval: interval, logger: logger}
}

// OnPayload registers a listener. Register before Start.
func (p *Poller) OnPayload(fn func(*Payload)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Last returns the most recent good payload, or nil.
func (p *Poller) Last() *Payload {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Failures returns the number of consecutive failed polls.
func (p *Poller) Failures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failures
}

// Poll fetches once.
func (p *Poller) Poll(ctx context.Context) error {
	payload, err := p.src.Fetch(ctx)
	p.mu.Lock()
	if err != nil {
		p.failures++
		p.mu.Unlock()
		return err
	}
	p.failures = 0
	p.last = payload
	listeners := make([]func(*Payload), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(payload)
	}
	return nil
}

// Start polls immediately and then on every interval until Stop.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)
	p.logger.Info("status poller started", zap.Duration("interval", p.interval))
}

// Stop halts the loop and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.logger.Info("status poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
		p.logger.Debug("status poll failed, keeping last state",
			zap.Int("failures", p.Failures()), zap.Error(err))
	}
}
