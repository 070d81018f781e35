package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Gateway owns the platform adapters and routes alerts to them.
type Gateway struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates a gateway manager.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		adapters: make(map[string]Adapter),
		logger:   logger,
	}
}

// Register adds an adapter, replacing any previous one for the platform.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

// ConnectAll connects every adapter. Adapters that fail are dropped so the
// rest keep working; the joined error describes the failures.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			g.logger.Error("adapter connect failed",
				zap.String("platform", platform), zap.Error(err))
			errs = append(errs, fmt.Errorf("connect %s: %w", platform, err))
			delete(g.adapters, platform)
			continue
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return errors.Join(errs...)
}

// Notify sends an alert to all matching adapters.
func (g *Gateway) Notify(ctx context.Context, alert *Alert) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	targets := g.adapters
	if len(alert.Platforms) > 0 {
		targets = make(map[string]Adapter)
		for _, p := range alert.Platforms {
			if a, ok := g.adapters[p]; ok {
				targets[p] = a
			}
		}
	}

	var failed int
	for platform, adapter := range targets {
		if err := adapter.Notify(ctx, alert); err != nil {
			g.logger.Error("notify failed",
				zap.String("platform", platform), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("notify failed on %d platform(s)", failed)
	}
	return nil
}

// Close shuts down all adapters.
func (g *Gateway) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

// Adapters returns the registered platform names, sorted.
func (g *Gateway) Adapters() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.adapters))
	for p := range g.adapters {
		names = append(names, p)
	}
	sort.Strings(names)
	return names
}

// Statuses reports every adapter's health.
func (g *Gateway) Statuses() []AdapterStatus {
	out := []AdapterStatus{}
	for _, name := range g.Adapters() {
		g.mu.RLock()
		a, ok := g.adapters[name]
		g.mu.RUnlock()
		if ok {
			out = append(out, a.Status())
		}
	}
	return out
}
