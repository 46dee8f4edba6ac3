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

	apply := flag.Bool("apply", false, "execute the statements instead of printing them")
	flag.Parse()

	if !*apply {
		// Printing the SQL is the default so the statements can be
		// reviewed or piped into psql.
		for _, stmt := range db.MigrationStatements() {
			fmt.Println(stmt)
			fmt.Println()
		}
		return
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

	if err := database.ApplyMigrations(context.Background()); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	logger.Info("Migrations applied", zap.Int("statements", len(db.MigrationStatements())))
}
