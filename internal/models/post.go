package models

import (
	"database/sql"
	"time"
)

// Post represents a collected Reddit submission
type Post struct {
	ID          int64        `gorm:"primaryKey;autoIncrement;column:id"`
	RedditID    string       `gorm:"type:varchar(16);not null;uniqueIndex;column:reddit_id"`
	Title       string       `gorm:"type:varchar(512);not null;column:title"`
	Body        string       `gorm:"type:text;column:body"`
	URL         string       `gorm:"type:varchar(2048);column:url"`
	Author      string       `gorm:"type:varchar(64);column:author"`
	Subreddit   string       `gorm:"type:varchar(64);not null;index;column:subreddit"`
	Flair       string       `gorm:"type:varchar(128);column:flair"`
	Score       int          `gorm:"not null;default:0;column:score"`
	NumComments int          `gorm:"not null;default:0;column:num_comments"`
	UpvoteRatio float64      `gorm:"type:decimal(4,3);column:upvote_ratio"`
	TotalAwards int          `gorm:"not null;default:0;column:total_awards"`
	Permalink   string       `gorm:"type:varchar(512);column:permalink"`
	CreatedUTC  time.Time    `gorm:"not null;index;column:created_utc"`
	AnalyzedAt  sql.NullTime `gorm:"index;column:analyzed_at"`
	CreatedAt   time.Time    `gorm:"not null;column:created_at"`
	UpdatedAt   time.Time    `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Analyzed reports whether the post has been through the analysis phase.
func (p *Post) Analyzed() bool {
	return p.AnalyzedAt.Valid
}

// AnalysisText returns the text blob submitted for ticker extraction.
func (p *Post) AnalysisText() string {
	if p.Body == "" {
		return p.Title
	}
	return p.Title + "\n\n" + p.Body
}
