package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/analyzer"
	"github.com/hypemind/hypemind/internal/db"
	"github.com/hypemind/hypemind/internal/extract"
	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

func main() {
	godotenv.Load()

	fromFlag := flag.String("from", "", "backfill window start, YYYY-MM-DD (inclusive)")
	toFlag := flag.String("to", "", "backfill window end, YYYY-MM-DD (exclusive)")
	estimate := flag.Bool("estimate", false, "print the backfill scope without analyzing anything")
	batch := flag.Int("batch", 0, "override the configured batch size")
	postsOnly := flag.Bool("posts-only", false, "analyze posts only")
	commentsOnly := flag.Bool("comments-only", false, "analyze comments only")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *batch > 0 {
		cfg.Analyzer.BatchSize = *batch
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Hypemind Analyzer")

	from, to, backfill, err := parseWindow(*fromFlag, *toFlag)
	if err != nil {
		logger.Fatal("Invalid backfill window", zap.Error(err))
	}
	if *estimate && !backfill {
		logger.Fatal("-estimate requires -from and -to")
	}
	if *postsOnly && *commentsOnly {
		logger.Fatal("-posts-only and -comments-only are mutually exclusive")
	}
	if backfill && (*postsOnly || *commentsOnly) {
		logger.Fatal("backfill always covers both content types")
	}

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

	extractor, err := extract.New(&cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to create extractor", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	anl := analyzer.New(&cfg.Analyzer, extractor, analyzer.Stores{
		Posts:    db.NewPostRepository(repo),
		Comments: db.NewCommentRepository(repo),
		Tickers:  db.NewTickerRepository(repo),
		Stats:    db.NewStatRepository(repo),
	})

	// An interrupt cancels the run; the row in flight finishes first.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Interrupt received, stopping analysis...")
		cancel()
	}()

	if backfill {
		report, err := anl.Backfill(ctx, from, to, *estimate)
		if err != nil {
			logger.Error("Backfill aborted", zap.Error(err))
			os.Exit(1)
		}
		if *estimate {
			printEstimate(from, to, report)
		}
		return
	}

	run := anl.Run
	if *postsOnly {
		run = anl.RunPosts
	}
	if *commentsOnly {
		run = anl.RunComments
	}
	if _, err := run(ctx); err != nil {
		logger.Error("Analysis aborted", zap.Error(err))
		os.Exit(1)
	}
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, bool, error) {
	if fromStr == "" && toStr == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, false, fmt.Errorf("-from and -to must be given together")
	}

	from, err := time.ParseInLocation("2006-01-02", fromStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid -from date %q: %w", fromStr, err)
	}
	to, err := time.ParseInLocation("2006-01-02", toStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid -to date %q: %w", toStr, err)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("-to must be after -from")
	}

	return from, to, true, nil
}

// printEstimate writes the backfill projection to stdout. Assumes two rows
// per second and a tenth of a cent per row, one model call each.
func printEstimate(from, to time.Time, report *analyzer.Report) {
	total := report.EstimatedPosts + report.EstimatedComments
	days := int(to.Sub(from).Hours() / 24)

	fmt.Printf("Backfill estimate %s to %s (%d days)\n",
		from.Format("2006-01-02"), to.Format("2006-01-02"), days)
	fmt.Printf("  unanalyzed posts:    %d\n", report.EstimatedPosts)
	fmt.Printf("  unanalyzed comments: %d\n", report.EstimatedComments)
	fmt.Printf("  total rows:          %d\n", total)

	if total == 0 {
		fmt.Println("Nothing to analyze in this window.")
		return
	}

	eta := time.Duration(total) * 500 * time.Millisecond
	fmt.Printf("  estimated calls:     ~%d\n", total)
	fmt.Printf("  estimated duration:  %s\n", eta.Round(time.Second))
	fmt.Printf("  estimated cost:      ~$%.2f\n", float64(total)*0.001)
}
