package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/engine"
	"github.com/use-agent/harvester/harvest"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "harvester",
	Short:         "harvester collects info-table records from the pages an index page links to.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		initLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file, overlaid by HARVESTER_* environment variables.")
}

// ExecuteContext runs the command line and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// stdout stays free for harvested output.
func initLogger(lc config.LogConfig) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	if lc.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			Compress:   true,
		})
	}

	var handler slog.Handler
	if lc.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newHarvester wires the fetch engines, the page cache and a harvester from
// cfg. The returned cleanup closes the browser and stops the cache.
func newHarvester(cfg *config.Config) (*harvest.Harvester, *cache.Cache, func(), error) {
	opts, err := harvest.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	dispatcher, closeEngines, err := engine.New(cfg.Fetch, cfg.Browser)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("fetch engines ready", "mode", cfg.Fetch.Mode, "engines", dispatcher.Engines())

	pages := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	cleanup := func() {
		pages.Stop()
		closeEngines()
	}
	return harvest.New(dispatcher, pages, opts), pages, cleanup, nil
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
