package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/nidhogg/spritedash/internal/activity"
	"github.com/nidhogg/spritedash/internal/render/terminal"
	"github.com/nidhogg/spritedash/internal/scene"
	"github.com/nidhogg/spritedash/internal/status"
	"github.com/nidhogg/spritedash/internal/world"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the office in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url := viper.GetString("watch-url"); url != "" {
				cfg.Status.SourceURL = url
			}
			// The terminal belongs to the scene, so logs go to a file.
			logger, err := newLogger(cfg.Server.LogLevel, viper.GetString("log-file"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}

			feed := activity.NewFeed(0)
			dispatcher := activity.NewDispatcher(feed, activity.Sinks{}, logger)
			dispatcher.Start()
			defer dispatcher.Stop()

			surface := terminal.NewSurface()
			sc := scene.New(reg, scene.Options{
				Random:  scene.NewRandom(cfg.Scene.Seed),
				Surface: surface,
				Events:  dispatcher,
			}, logger)
			defer sc.Close()

			var store status.Store = status.NewMemoryStore()
			if cfg.Status.SourceURL == "" && cfg.Database.Redis.URL != "" {
				kv, err := status.NewKVStore(cfg.Database.Redis.URL, logger)
				if err != nil {
					logger.Warn("Redis unavailable, keeping reports in memory", zap.Error(err))
				} else {
					defer kv.Close()
					store = kv
				}
			}
			cf := status.NewCloudflareClient(status.CloudflareConfig{
				AccountID: cfg.Status.Cloudflare.AccountID,
				APIToken:  cfg.Status.Cloudflare.APIToken,
				Endpoint:  cfg.Status.Cloudflare.Endpoint,
				Timeout:   cfg.Timeout(),
			}, logger)
			agg := status.NewAggregator(reg, store, cf, logger)
			poller := status.NewPoller(newStatusSource(cfg, agg), cfg.PollInterval(), logger)
			poller.OnPayload(sc.ApplyStatus)
			poller.Start()
			defer poller.Stop()

			clock := world.NewClock(cfg.FrameInterval(), logger)
			clock.AddListener(sc)
			clock.Start()
			defer clock.Stop()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init screen: %w", err)
			}
			defer screen.Fini()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			app := terminal.NewApp(screen, sc, surface, feed, logger)
			return app.Run(ctx, cfg.FrameInterval())
		},
	}
	cmd.Flags().String("url", "", "remote status endpoint (defaults to status.source_url)")
	cmd.Flags().String("log-file", "spritedash-watch.log", "log destination while the terminal is in use")
	_ = viper.BindPFlag("watch-url", cmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("log-file", cmd.Flags().Lookup("log-file"))
	return cmd
}
