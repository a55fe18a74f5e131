package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"releasewatch/internal/analysis"
	"releasewatch/internal/config"
	"releasewatch/internal/detect"
	"releasewatch/internal/notify"
	"releasewatch/internal/rss"
	"releasewatch/internal/service"
	"releasewatch/internal/storage"
)

var (
	cacheFile    string
	cacheBackend string
	feedURL      string
	coldStart    string
	interval     time.Duration
	bindAddr     string
)

// rootCmd checks the feed once and exits
var rootCmd = &cobra.Command{
	Use:   "releasewatch",
	Short: "Push Apple developer release announcements to Bark.",
	Long: `releasewatch polls the Apple Developer releases RSS feed, works out which
entries arrived since the last run, and pushes one Bark notification per new
entry, oldest first. The identifier of the newest entry is kept between runs.

Run it from cron or a CI schedule, or use "releasewatch watch" to keep it
running with its own poll loop.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), cmd.ErrOrStderr(), loadConfig())
	},
}

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Poll the feed on an interval and serve /healthz and /status.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if interval > 0 {
			cfg.PollInterval = interval
		}
		if bindAddr != "" {
			cfg.BindAddr = bindAddr
		}
		return watch(cmd.Context(), cmd.ErrOrStderr(), cfg)
	},
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", "", "path of the last-seen id file (overrides CACHE_FILE)")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "", "file, bolt, mysql or postgres (overrides CACHE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&feedURL, "feed-url", "", "feed to poll (overrides FEED_URL)")
	rootCmd.PersistentFlags().StringVar(&coldStart, "cold-start", "", "first-run policy: latest or all (overrides COLD_START)")

	watchCmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (overrides POLL_INTERVAL_MINUTES)")
	watchCmd.Flags().StringVar(&bindAddr, "bind", "", "status server address (overrides BIND_ADDR)")
	rootCmd.AddCommand(watchCmd)
}

func loadConfig() config.Config {
	cfg := config.Load()
	if cacheFile != "" {
		cfg.CacheFile = cacheFile
	}
	if cacheBackend != "" {
		cfg.CacheBackend = cacheBackend
	}
	if feedURL != "" {
		cfg.FeedURL = feedURL
	}
	if coldStart != "" {
		cfg.ColdStart = coldStart
	}
	return cfg
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "[releasewatch] ", log.LstdFlags)
}

// runOnce performs a single check. Only setup errors are returned; every
// outcome of the check itself ends with a nil error.
func runOnce(ctx context.Context, out io.Writer, cfg config.Config) error {
	logger := newLogger(out)
	checker, closeCursor, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCursor()

	checker.RunOnce(ctx)
	return nil
}

func watch(ctx context.Context, out io.Writer, cfg config.Config) error {
	logger := newLogger(out)
	checker, closeCursor, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCursor()

	return checker.Run(ctx)
}

func build(ctx context.Context, cfg config.Config, logger *log.Logger) (*service.Checker, func(), error) {
	policy, err := detect.ParseColdStart(cfg.ColdStart)
	if err != nil {
		return nil, nil, err
	}

	if cfg.BarkKey == "" {
		logger.Println("warning: BARK_KEY is not set, pushes will be rejected by the gateway")
	}

	cursor, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init %s cache: %w", cfg.CacheBackend, err)
	}

	var fetcher rss.Source = rss.NewFetcher(cfg.FeedURL, cfg.MaxEntries, logger)
	if cfg.FetchAttempts > 1 {
		fetcher = rss.NewRetryingFetcher(fetcher, cfg.FetchAttempts, cfg.RetryDelay, logger)
	}

	pusher := notify.NewBark(cfg.BarkBaseURL, cfg.BarkKey, cfg.BarkGroup, nil)
	summarizer := analysis.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBase, logger)

	checker := service.NewChecker(fetcher, pusher, summarizer, cursor, logger, service.Options{
		ColdStart:    policy,
		PollInterval: cfg.PollInterval,
		BindAddr:     cfg.BindAddr,
	})
	closeCursor := func() {
		if err := cursor.Close(); err != nil {
			logger.Printf("close cache: %v", err)
		}
	}
	return checker, closeCursor, nil
}
