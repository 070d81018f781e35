package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nidhogg/spritedash/internal/config"
	"github.com/nidhogg/spritedash/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use:   "spritedash",
	Short: "Pixel-art office dashboard for scheduled workers",
	Long: `spritedash shows a fleet of scheduled workers as characters in a small
office. Workers wander, chat and walk to the manager when dispatched; their
desks and the infrastructure they touch light up with their polled status.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(tailCmd())
	rootCmd.AddCommand(watchCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPRITEDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "configs/spritedash.json", "config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig reads the configured file. A missing file falls back to the
// standalone defaults; a broken one is an error.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Server.LogLevel = lvl
	}
	return cfg, nil
}

// newLogger builds a development logger at the configured level. Extra
// output paths replace stderr.
func newLogger(level string, outputs ...string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if len(outputs) > 0 {
		zc.OutputPaths = outputs
		zc.ErrorOutputPaths = outputs
	}
	return zc.Build()
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Scene.Registry == "" {
		return registry.Default()
	}
	return registry.Load(cfg.Scene.Registry)
}
