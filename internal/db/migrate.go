package db

import (
	"context"

	"github.com/hypemind/hypemind/internal/models"
)

// MigrationStatements returns the schema statements for the enriched
// analysis schema: hype/company columns on content_tickers, the analyzed_at
// stamps on content tables, the aggregate tables, and their indexes.
// Every statement is idempotent so the helper can be re-run safely.
func MigrationStatements() []string {
	return []string{
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS hype_score DECIMAL(4,2) DEFAULT 0.0;",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS company_name VARCHAR(128) DEFAULT '';",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS confidence DECIMAL(4,2) DEFAULT 0.0;",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS method VARCHAR(32) DEFAULT 'llm';",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS span_start INTEGER DEFAULT -1;",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS span_end INTEGER DEFAULT -1;",
		"ALTER TABLE content_tickers ADD COLUMN IF NOT EXISTS created_at TIMESTAMP DEFAULT NOW();",

		"ALTER TABLE posts ADD COLUMN IF NOT EXISTS analyzed_at TIMESTAMP NULL;",
		"ALTER TABLE comments ADD COLUMN IF NOT EXISTS analyzed_at TIMESTAMP NULL;",

		`CREATE TABLE IF NOT EXISTS tickers (
    symbol VARCHAR(8) PRIMARY KEY,
    company_name VARCHAR(128) DEFAULT '',
    mention_count BIGINT NOT NULL DEFAULT 0,
    avg_hype_score DECIMAL(4,2) NOT NULL DEFAULT 0.0,
    last_seen TIMESTAMP NOT NULL DEFAULT NOW()
);`,

		`CREATE TABLE IF NOT EXISTS ticker_daily_stats (
    symbol VARCHAR(8) NOT NULL,
    day DATE NOT NULL,
    mention_count BIGINT NOT NULL DEFAULT 0,
    avg_hype_score DECIMAL(4,2) NOT NULL DEFAULT 0.0,
    PRIMARY KEY (symbol, day)
);`,

		"CREATE INDEX IF NOT EXISTS idx_posts_analyzed_at ON posts(analyzed_at);",
		"CREATE INDEX IF NOT EXISTS idx_comments_analyzed_at ON comments(analyzed_at);",
		"CREATE INDEX IF NOT EXISTS idx_content_tickers_hype_score ON content_tickers(hype_score);",
		"CREATE INDEX IF NOT EXISTS idx_content_tickers_symbol_created ON content_tickers(symbol, created_at);",
		"CREATE INDEX IF NOT EXISTS idx_tickers_mentions ON tickers(mention_count DESC);",
		"CREATE INDEX IF NOT EXISTS idx_tickers_hype ON tickers(avg_hype_score DESC);",
		"CREATE INDEX IF NOT EXISTS idx_daily_stats_day ON ticker_daily_stats(day DESC);",
	}
}

// ApplyMigrations executes the migration statements in order.
func (d *DB) ApplyMigrations(ctx context.Context) error {
	for _, stmt := range MigrationStatements() {
		if err := d.DB.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// AutoMigrate creates the base tables from the model definitions. Used for
// fresh databases; existing installs use the statement helper above.
func (d *DB) AutoMigrate() error {
	return d.DB.AutoMigrate(
		&models.Post{},
		&models.Comment{},
		&models.ContentTicker{},
		&models.TickerStat{},
		&models.TickerDailyStat{},
	)
}
