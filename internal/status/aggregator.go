package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nidhogg/spritedash/internal/registry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidReport is returned for reports whose status is not a value a
// worker can report.
var ErrInvalidReport = errors.New("invalid report")

// Aggregator assembles the status payload from the self-report store and the
// analytics source. Neither layer is fatal: a worker whose report cannot be
// read gets a null selfReport and analytics are simply omitted on failure.
type Aggregator struct {
	reg       *registry.Registry
	store     Store
	analytics AnalyticsSource
	now       func() time.Time
	logger    *zap.Logger
}

// NewAggregator creates an aggregator. analytics may be nil.
func NewAggregator(reg *registry.Registry, store Store, analytics AnalyticsSource, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		reg:       reg,
		store:     store,
		analytics: analytics,
		now:       time.Now,
		logger:    logger,
	}
}

// PutReport stores a report under the worker's status key.
func (a *Aggregator) PutReport(ctx context.Context, workerID string, r Report) error {
	w, err := a.reg.Worker(workerID)
	if err != nil {
		return err
	}
	switch r.Status {
	case "idle", "working", "error":
	default:
		return fmt.Errorf("status %q: %w", r.Status, ErrInvalidReport)
	}
	if w.StatusKey == "" {
		return fmt.Errorf("worker %s has no status key: %w", workerID, ErrInvalidReport)
	}
	return a.store.PutReport(ctx, w.StatusKey, r)
}

// Fetch builds the current payload. Every registered worker gets an entry.
func (a *Aggregator) Fetch(ctx context.Context) (*Payload, error) {
	reports := make([]*Report, len(a.reg.Workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range a.reg.Workers {
		if w.StatusKey == "" {
			continue
		}
		i, w := i, w
		g.Go(func() error {
			r, err := a.store.Report(gctx, w.StatusKey)
			if err != nil {
				a.logger.Debug("report unreadable", zap.String("worker", w.ID), zap.Error(err))
				return nil
			}
			reports[i] = r
			return nil
		})
	}
	_ = g.Wait()

	analytics := a.analyticsByWorker(ctx)

	p := &Payload{
		Workers:   make(map[string]Entry, len(a.reg.Workers)),
		Timestamp: a.now().UTC().Format(time.RFC3339Nano),
	}
	for i, w := range a.reg.Workers {
		e := Entry{SelfReport: reports[i]}
		if an, ok := analytics[w.ID]; ok {
			e.Analytics = &an
		}
		p.Workers[w.ID] = e
	}
	return p, nil
}

// analyticsByWorker returns analytics keyed by worker id, using the cache
// when it is fresh.
func (a *Aggregator) analyticsByWorker(ctx context.Context) map[string]Analytics {
	byScript, err := a.store.CachedAnalytics(ctx)
	if err != nil {
		a.logger.Debug("analytics cache unreadable", zap.Error(err))
	}
	if byScript == nil && a.analytics != nil {
		var scripts []string
		for _, w := range a.reg.Workers {
			if w.AnalyticsScript != "" {
				scripts = append(scripts, w.AnalyticsScript)
			}
		}
		byScript, err = a.analytics.Fetch(ctx, scripts)
		if err != nil {
			if !errors.Is(err, ErrAnalyticsDisabled) {
				a.logger.Warn("analytics unavailable", zap.Error(err))
			}
			return nil
		}
		if err := a.store.CacheAnalytics(ctx, byScript, AnalyticsTTL); err != nil {
			a.logger.Debug("analytics not cached", zap.Error(err))
		}
	}

	out := make(map[string]Analytics)
	for _, w := range a.reg.Workers {
		if an, ok := byScript[w.AnalyticsScript]; ok && w.AnalyticsScript != "" {
			out[w.ID] = an
		}
	}
	return out
}
