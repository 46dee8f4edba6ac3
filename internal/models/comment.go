package models

import (
	"database/sql"
	"time"
)

// Comment represents a collected Reddit comment
type Comment struct {
	ID             int64          `gorm:"primaryKey;autoIncrement;column:id"`
	RedditID       string         `gorm:"type:varchar(16);not null;uniqueIndex;column:reddit_id"`
	PostRedditID   string         `gorm:"type:varchar(16);not null;index;column:post_reddit_id"`
	ParentRedditID sql.NullString `gorm:"type:varchar(16);column:parent_reddit_id"`
	Body           string         `gorm:"type:text;not null;column:body"`
	Author         string         `gorm:"type:varchar(64);column:author"`
	Score          int            `gorm:"not null;default:0;column:score"`
	Depth          int16          `gorm:"type:smallint;not null;default:0;column:depth"`
	CreatedUTC     time.Time      `gorm:"not null;index;column:created_utc"`
	AnalyzedAt     sql.NullTime   `gorm:"index;column:analyzed_at"`
	CreatedAt      time.Time      `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time      `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// Analyzed reports whether the comment has been through the analysis phase.
func (c *Comment) Analyzed() bool {
	return c.AnalyzedAt.Valid
}

// AnalysisText returns the text blob submitted for ticker extraction.
func (c *Comment) AnalysisText() string {
	return c.Body
}
