package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nidhogg/spritedash/internal/activity"
	"github.com/nidhogg/spritedash/internal/api"
	"github.com/nidhogg/spritedash/internal/config"
	"github.com/nidhogg/spritedash/internal/events"
	"github.com/nidhogg/spritedash/internal/gateway"
	"github.com/nidhogg/spritedash/internal/scene"
	"github.com/nidhogg/spritedash/internal/status"
	"github.com/nidhogg/spritedash/internal/store"
	"github.com/nidhogg/spritedash/internal/world"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the office scene and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	return cmd
}

// backends are the optional services. Any of them may be nil.
type backends struct {
	kv        *status.KVStore
	bus       *events.Bus
	pg        *store.Store
	relations *world.RelationGraph
}

// connect dials every configured backing service in parallel. A service
// that cannot be reached is logged and left nil; only a failed migration
// stops startup.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}
	g, gctx := errgroup.WithContext(ctx)

	if url := cfg.Database.Redis.URL; url != "" {
		g.Go(func() error {
			kv, err := status.NewKVStore(url, logger)
			if err != nil {
				logger.Warn("Redis unavailable, keeping reports in memory", zap.Error(err))
				return nil
			}
			b.kv = kv
			return nil
		})
		g.Go(func() error {
			bus, err := events.NewBus(url, cfg.Database.Redis.Stream, logger)
			if err != nil {
				logger.Warn("Redis unavailable, running without event stream", zap.Error(err))
				return nil
			}
			b.bus = bus
			return nil
		})
	}

	if dsn := cfg.Database.Postgres.DSN; dsn != "" {
		g.Go(func() error {
			ps, err := store.New(dsn, logger)
			if err != nil {
				logger.Warn("PostgreSQL unavailable, running without scoreboard", zap.Error(err))
				return nil
			}
			migrate := ps.Migrate
			if dir := cfg.Database.Postgres.Migrations; dir != "" {
				migrate = func(ctx context.Context) error { return ps.MigrateFS(ctx, os.DirFS(dir)) }
			}
			if err := migrate(gctx); err != nil {
				ps.Close()
				return err
			}
			b.pg = ps
			return nil
		})
	}

	if neo := cfg.Database.Neo4j; neo.URI != "" {
		g.Go(func() error {
			rg, err := world.NewRelationGraph(neo.URI, neo.User, neo.Password, logger)
			if err != nil {
				logger.Warn("Neo4j unavailable, running without relations", zap.Error(err))
				return nil
			}
			b.relations = rg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.close(logger)
		return nil, err
	}
	return b, nil
}

func (b *backends) close(logger *zap.Logger) {
	if b.relations != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := b.relations.Close(ctx); err != nil {
			logger.Warn("close neo4j", zap.Error(err))
		}
	}
	if b.pg != nil {
		b.pg.Close()
	}
	if b.bus != nil {
		_ = b.bus.Close()
	}
	if b.kv != nil {
		_ = b.kv.Close()
	}
}

// sinks exposes only the backends that connected, so no typed nil pointer
// ends up behind an interface.
func (b *backends) sinks(alerts activity.Alerter) activity.Sinks {
	s := activity.Sinks{Alerts: alerts}
	if b.bus != nil {
		s.Bus = b.bus
	}
	if b.pg != nil {
		s.Store = b.pg
	}
	if b.relations != nil {
		s.Relations = b.relations
	}
	return s
}

func (b *backends) statusStore() status.Store {
	if b.kv != nil {
		return b.kv
	}
	return status.NewMemoryStore()
}

func newGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) *gateway.Gateway {
	gw := gateway.NewGateway(logger)
	gc := cfg.Gateway
	if gc.Slack.Enabled {
		gw.Register(gateway.NewSlackAdapter(gc.Slack.BotToken, gc.Slack.ChannelID, logger))
	}
	if gc.Discord.Enabled {
		gw.Register(gateway.NewDiscordAdapter(gc.Discord.BotToken, gc.Discord.ChannelID, logger))
	}
	if gc.Webhook.Enabled {
		gw.Register(gateway.NewWebhookAdapter(gc.Webhook.URL, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}
	return gw
}

func newStatusSource(cfg *config.Config, agg *status.Aggregator) status.Source {
	if cfg.Status.SourceURL != "" {
		return status.NewHTTPSource(cfg.Status.SourceURL, cfg.Timeout())
	}
	return agg
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting spritedash...")

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	b, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	gw := newGateway(ctx, cfg, logger)
	defer gw.Close()
	broadcaster := gateway.NewBroadcaster(gw, cfg.Cooldown(), logger)

	var alerts activity.Alerter
	if len(gw.Adapters()) > 0 {
		alerts = broadcaster
	}
	feed := activity.NewFeed(0)
	dispatcher := activity.NewDispatcher(feed, b.sinks(alerts), logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	sc := scene.New(reg, scene.Options{
		Random: scene.NewRandom(cfg.Scene.Seed),
		Events: dispatcher,
	}, logger)
	defer sc.Close()

	clock := world.NewClock(cfg.FrameInterval(), logger)
	clock.AddListener(sc)
	clock.Start()
	defer clock.Stop()

	cf := status.NewCloudflareClient(status.CloudflareConfig{
		AccountID: cfg.Status.Cloudflare.AccountID,
		APIToken:  cfg.Status.Cloudflare.APIToken,
		Endpoint:  cfg.Status.Cloudflare.Endpoint,
		Timeout:   cfg.Timeout(),
	}, logger)
	agg := status.NewAggregator(reg, b.statusStore(), cf, logger)

	poller := status.NewPoller(newStatusSource(cfg, agg), cfg.PollInterval(), logger)
	poller.OnPayload(sc.ApplyStatus)
	poller.OnPayload(dispatcher.ObservePoll)
	poller.Start()
	defer poller.Stop()

	deps := api.Deps{
		Scene:       sc,
		Registry:    reg,
		Status:      poller,
		Aggregator:  agg,
		Feed:        feed,
		Gateway:     gw,
		Broadcaster: broadcaster,
		Clock:       clock,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if b.pg != nil {
		deps.Scores = b.pg
	}
	if b.relations != nil {
		deps.Relations = b.relations
	}
	handler := api.NewHandler(deps, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("spritedash listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down spritedash...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
