package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/collector"
	"github.com/hypemind/hypemind/internal/db"
	"github.com/hypemind/hypemind/internal/reddit"
	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

func main() {
	godotenv.Load()

	subreddits := flag.String("subreddit", "", "comma-separated subreddits, overrides the configured list")
	sortOrder := flag.String("sort", "", "listing sort: hot, new or top")
	timeFilter := flag.String("t", "", "top listing window: hour, day, week, month, year or all")
	posts := flag.Int("posts", 0, "post budget per subreddit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *subreddits != "" {
		cfg.Collector.Subreddits = *subreddits
	}
	if *sortOrder != "" {
		cfg.Collector.Sort = *sortOrder
	}
	if *timeFilter != "" {
		cfg.Collector.TimeFilter = *timeFilter
	}
	if *posts > 0 {
		cfg.Collector.PostLimit = *posts
	}
	// Flag values skipped Load's validation.
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Hypemind Collector")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	client, err := reddit.New(&cfg.Reddit)
	if err != nil {
		logger.Fatal("Failed to create Reddit client", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	col := collector.New(&cfg.Collector, client,
		db.NewPostRepository(repo), db.NewCommentRepository(repo))

	// An interrupt cancels the run; the page in flight finishes first.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Interrupt received, stopping collection...")
		cancel()
	}()

	report, err := col.Run(ctx)
	if err != nil {
		logger.Error("Collection aborted", zap.Error(err))
		os.Exit(1)
	}
	if len(report.Failed) > 0 {
		logger.Warn("Some subreddits were abandoned", zap.Strings("subreddits", report.Failed))
	}
}
