package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tender_spider/internal/app"
	"tender_spider/internal/config"
	"tender_spider/internal/db"
	"tender_spider/internal/fetch"
	"tender_spider/internal/logger"
	"tender_spider/internal/metrics"
	"tender_spider/internal/notify"
	"tender_spider/internal/relevance"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const failureReportTimeout = 30 * time.Second

type options struct {
	configPath string
	dryRun     bool
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tender-spider:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	runE := func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), opts, cmd.OutOrStdout())
	}
	root := &cobra.Command{
		Use:           "tender-spider",
		Short:         "Scrape tender announcements and notify about new matches",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file (optional)")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "log hits instead of sending them and do not save the seen store")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging and a summary message after the run")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run one scraping pass (default)",
			Args:  cobra.NoArgs,
			RunE:  runE,
		},
		newSeenCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "tender-spider %s\n", version)
			},
		},
	)
	return root
}

// loadConfig applies the command-line flags on top of file and environment.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dryRun {
		cfg.Logic.DryRun = true
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func run(ctx context.Context, opts *options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel()})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := runPipeline(ctx, cfg, log, out); err != nil {
		log.Error("Run failed", logger.Error(err))
		reportFailure(ctx, cfg, err, log)
		return err
	}
	return nil
}

func runPipeline(ctx context.Context, cfg *config.Config, log logger.Logger, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	fetcher, err := fetch.New(fetch.OptionsFromConfig(cfg), log.With(logger.String("component", "fetch")))
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	backend, err := db.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open seen store: %w", err)
	}
	store := db.NewStore(backend, cfg.Store.Capacity, log.With(logger.String("component", "store")))
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to close seen store", logger.Error(err))
		}
	}()

	var notifier notify.Notifier = notify.NewTelegram(cfg.Telegram, nil)
	if cfg.Logic.DryRun {
		notifier = notify.NewLogNotifier(log)
	}

	pipeline, err := app.New(cfg, fetcher, store, relevance.New(cfg.Filter), notifier, log,
		metrics.New(cfg.Metrics.Textfile), app.WithOutput(out))
	if err != nil {
		return err
	}
	_, err = pipeline.Run(ctx)
	return err
}

// reportFailure sends the error to the chats when credentials exist.
func reportFailure(ctx context.Context, cfg *config.Config, runErr error, log logger.Logger) {
	if !cfg.HasTelegram() || cfg.Logic.DryRun {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureReportTimeout)
	defer cancel()
	notify.Broadcast(ctx, notify.NewTelegram(cfg.Telegram, nil), cfg.Telegram.ChatIDs,
		notify.FormatError(runErr), cfg.ChatPause(), log)
}
