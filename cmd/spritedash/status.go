package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nidhogg/spritedash/internal/events"
	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/nidhogg/spritedash/internal/status"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print every worker's polled status and next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := loadRegistry(cfg)
			if err != nil {
				return err
			}
			url := viper.GetString("url")
			if url == "" {
				url = cfg.Status.SourceURL
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
			defer cancel()
			payload, err := status.NewHTTPSource(url, cfg.Timeout()).Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", url, err)
			}
			printStatus(reg, payload, time.Now())
			return nil
		},
	}
	cmd.Flags().String("url", "http://localhost:8080/api/status", "status endpoint")
	_ = viper.BindPFlag("url", cmd.Flags().Lookup("url"))
	return cmd
}

func printStatus(reg *registry.Registry, payload *status.Payload, now time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Last Run", "Schedule", "Next Run", "Calls 24h", "Errors 24h"})
	for i := range reg.Workers {
		w := &reg.Workers[i]
		st, lastRun := "-", "-"
		var calls, errs string
		if e, ok := payload.Workers[w.ID]; ok {
			if e.SelfReport != nil {
				st, lastRun = e.SelfReport.Status, e.SelfReport.LastRun
			}
			if e.Analytics != nil {
				calls = fmt.Sprintf("%d", e.Analytics.Invocations24h)
				errs = fmt.Sprintf("%d", e.Analytics.Errors24h)
			}
		}
		next := "-"
		if t, ok := w.NextRun(now); ok {
			next = registry.FormatUntil(t, now)
		}
		tw.AppendRow(table.Row{w.ID, w.Name, st, lastRun, w.CronLabel, next, calls, errs})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", "polled", payload.Timestamp})
	tw.Render()
}

func tailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow office activity from the Redis event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Redis.URL == "" {
				return fmt.Errorf("tail needs database.redis.url")
			}
			logger, err := newLogger(cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			bus, err := events.NewBus(cfg.Database.Redis.URL, cfg.Database.Redis.Stream, logger)
			if err != nil {
				return err
			}
			defer bus.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			recent, err := bus.Recent(ctx, viper.GetInt64("history"))
			if err != nil {
				logger.Warn("read recent events", zap.Error(err))
			}
			for _, ev := range recent {
				printEvent(ev)
			}
			for ev := range bus.Subscribe(ctx) {
				printEvent(ev)
			}
			return nil
		},
	}
	cmd.Flags().Int64("history", 10, "recent events to print first")
	_ = viper.BindPFlag("history", cmd.Flags().Lookup("history"))
	return cmd
}

func printEvent(ev *events.Event) {
	line := fmt.Sprintf("%s  %-18s %s", ev.Time.Local().Format("15:04:05"), ev.Kind, ev.Text)
	if len(ev.Workers) > 0 {
		line += "  [" + strings.Join(ev.Workers, ", ") + "]"
	}
	fmt.Println(line)
}
