package models

import (
	"time"
)

// Content type discriminators for ContentTicker rows.
const (
	ContentTypePost    = "post"
	ContentTypeComment = "comment"
)

// Extraction method tags.
const (
	MethodLLM                   = "llm"
	MethodContextualInheritance = "contextual_inheritance"
)

// ContentTicker represents one ticker mention extracted from a post or comment
type ContentTicker struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ContentType     string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_content_symbol,priority:1;column:content_type"`
	ContentRedditID string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_content_symbol,priority:2;column:content_reddit_id"`
	Symbol          string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_content_symbol,priority:3;index;column:symbol"`
	CompanyName     string    `gorm:"type:varchar(128);column:company_name"`
	HypeScore       float64   `gorm:"type:decimal(4,2);not null;column:hype_score"`
	Confidence      float64   `gorm:"type:decimal(4,2);not null;column:confidence"`
	Method          string    `gorm:"type:varchar(32);not null;column:method"`
	SpanStart       int       `gorm:"not null;default:-1;column:span_start"`
	SpanEnd         int       `gorm:"not null;default:-1;column:span_end"`
	CreatedAt       time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for ContentTicker
func (ContentTicker) TableName() string {
	return "content_tickers"
}

// TickerStat represents rolled-up mention statistics for one symbol
type TickerStat struct {
	Symbol       string    `gorm:"primaryKey;type:varchar(8);column:symbol"`
	CompanyName  string    `gorm:"type:varchar(128);column:company_name"`
	MentionCount int64     `gorm:"not null;default:0;column:mention_count"`
	AvgHypeScore float64   `gorm:"type:decimal(4,2);not null;default:0;column:avg_hype_score"`
	LastSeen     time.Time `gorm:"not null;column:last_seen"`
}

// TableName specifies the table name for TickerStat
func (TickerStat) TableName() string {
	return "tickers"
}

// TickerDailyStat represents per-day mention statistics for one symbol
type TickerDailyStat struct {
	Symbol       string    `gorm:"primaryKey;type:varchar(8);column:symbol"`
	Day          time.Time `gorm:"primaryKey;type:date;column:day"`
	MentionCount int64     `gorm:"not null;default:0;column:mention_count"`
	AvgHypeScore float64   `gorm:"type:decimal(4,2);not null;default:0;column:avg_hype_score"`
}

// TableName specifies the table name for TickerDailyStat
func (TickerDailyStat) TableName() string {
	return "ticker_daily_stats"
}
