package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/db"
	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
)

func main() {
	godotenv.Load()

	yes := flag.Bool("yes", false, "confirm deletion of all stored data")
	flag.Parse()

	if !*yes {
		fmt.Fprintln(os.Stderr, "clear wipes every stored post, comment, mention and aggregate.")
		fmt.Fprintln(os.Stderr, "Re-run with -yes to confirm.")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	repo := db.NewRepository(database.DB)
	if err := repo.ClearAll(context.Background()); err != nil {
		logger.Fatal("Failed to clear database", zap.Error(err))
	}

	logger.Info("Database cleared")
}
