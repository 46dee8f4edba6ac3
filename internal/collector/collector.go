// Package collector runs the collection phase: it walks subreddit
// listings page by page and streams posts and comment trees into the
// store. No analysis happens here; rows land unanalyzed and wait for
// the analyzer.
package collector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/models"
	"github.com/hypemind/hypemind/internal/reddit"
	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

// Source is the slice of the Reddit client the collector consumes.
type Source interface {
	Listing(ctx context.Context, subreddit, sort, timeFilter string, limit int, after string) ([]reddit.Post, string, error)
	CommentTree(ctx context.Context, subreddit, postID string) ([]reddit.Comment, error)
}

var _ Source = (*reddit.Client)(nil)

// PostStore persists collected posts.
type PostStore interface {
	Upsert(ctx context.Context, post *models.Post) error
}

// CommentStore persists collected comments.
type CommentStore interface {
	UpsertBatch(ctx context.Context, comments []*models.Comment, chunkSize int) error
}

// Report summarizes one collection run.
type Report struct {
	Posts    int
	Comments int
	Pages    int
	Skipped  int
	Failed   []string
	Elapsed  time.Duration
}

// Collector drives the collection phase across configured subreddits.
type Collector struct {
	cfg      *config.CollectorConfig
	source   Source
	posts    PostStore
	comments CommentStore
	logger   *zap.Logger

	postsStored    otelmetric.Int64Counter
	commentsStored otelmetric.Int64Counter
}

// New creates a new collector
func New(cfg *config.CollectorConfig, source Source, posts PostStore, comments CommentStore) *Collector {
	return &Collector{
		cfg:      cfg,
		source:   source,
		posts:    posts,
		comments: comments,
		logger:   logging.GetLogger().With(zap.String("component", "collector")),

		postsStored:    telemetry.RowCounter("hypemind.collector.posts_stored"),
		commentsStored: telemetry.RowCounter("hypemind.collector.comments_stored"),
	}
}

// Run collects every configured subreddit in order. A subreddit whose
// pages keep failing is abandoned and reported; the rest still run.
func (c *Collector) Run(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "collector.run")
	defer span.End()

	started := time.Now()
	report := &Report{}

	for _, sub := range strings.Split(c.cfg.Subreddits, ",") {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}

		select {
		case <-ctx.Done():
			report.Elapsed = time.Since(started)
			return report, ctx.Err()
		default:
		}

		c.logger.Info("Collecting subreddit", zap.String("subreddit", sub))

		if err := c.collectSubreddit(ctx, sub, report); err != nil {
			if ctx.Err() != nil {
				report.Elapsed = time.Since(started)
				return report, ctx.Err()
			}
			c.logger.Error("Abandoning subreddit",
				zap.String("subreddit", sub),
				zap.Error(err))
			report.Failed = append(report.Failed, sub)
		}
	}

	report.Elapsed = time.Since(started)
	c.logger.Info("Collection finished",
		zap.Int("posts", report.Posts),
		zap.Int("comments", report.Comments),
		zap.Int("pages", report.Pages),
		zap.Int("skipped", report.Skipped),
		zap.Strings("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed))

	return report, nil
}

// collectSubreddit pages through one listing, storing each page before
// requesting the next. An exhausted retry budget aborts this subreddit
// only; everything stored so far stays stored.
func (c *Collector) collectSubreddit(ctx context.Context, sub string, report *Report) error {
	after := ""
	remaining := c.cfg.PostLimit
	unlimited := remaining <= 0

	for unlimited || remaining > 0 {
		pageSize := c.cfg.PageSize
		if !unlimited && remaining < pageSize {
			pageSize = remaining
		}

		page, next, err := c.fetchPage(ctx, sub, pageSize, after)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		report.Pages++

		for _, p := range page {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := c.posts.Upsert(ctx, postRow(p)); err != nil {
				c.logger.Error("Failed to store post",
					zap.String("reddit_id", p.ID),
					zap.Error(err))
				continue
			}
			report.Posts++
			c.postsStored.Add(ctx, 1)

			stored, skipped, err := c.collectComments(ctx, sub, p.ID)
			if err != nil {
				// The post is already stored; its comments can be
				// picked up on the next run.
				c.logger.Warn("Failed to collect comments",
					zap.String("post_id", p.ID),
					zap.Error(err))
				continue
			}
			report.Comments += stored
			report.Skipped += skipped
		}

		if !unlimited {
			remaining -= len(page)
		}
		if next == "" {
			break
		}
		after = next
	}

	return nil
}

// fetchPage requests one listing page, retrying transient failures up
// to the configured budget.
func (c *Collector) fetchPage(ctx context.Context, sub string, limit int, after string) ([]reddit.Post, string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		page, next, err := c.source.Listing(ctx, sub, c.cfg.Sort, c.cfg.TimeFilter, limit, after)
		if err == nil {
			return page, next, nil
		}
		lastErr = err

		c.logger.Warn("Listing page failed",
			zap.String("subreddit", sub),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.cfg.MaxRetries),
			zap.Error(err))

		if attempt < c.cfg.MaxRetries {
			c.wait(ctx, c.cfg.RetryPause)
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", fmt.Errorf("failed to fetch r/%s page after %d attempts: %w", sub, c.cfg.MaxRetries, lastErr)
}

// collectComments pulls one post's comment tree and batch-upserts the
// usable rows. Returns stored and skipped counts.
func (c *Collector) collectComments(ctx context.Context, sub, postID string) (int, int, error) {
	tree, err := c.source.CommentTree(ctx, sub, postID)
	if err != nil {
		return 0, 0, err
	}

	rows := make([]*models.Comment, 0, len(tree))
	skipped := 0
	for _, cm := range tree {
		if skipComment(cm) {
			skipped++
			continue
		}
		rows = append(rows, commentRow(cm))
	}
	if len(rows) == 0 {
		return 0, skipped, nil
	}

	if err := c.comments.UpsertBatch(ctx, rows, c.cfg.CommentChunk); err != nil {
		return 0, skipped, fmt.Errorf("failed to store comments for %s: %w", postID, err)
	}
	c.commentsStored.Add(ctx, int64(len(rows)))

	return len(rows), skipped, nil
}

// wait waits for the specified duration or until context is cancelled
func (c *Collector) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// skipComment drops rows with no analyzable text left.
func skipComment(cm reddit.Comment) bool {
	body := strings.TrimSpace(cm.Body)
	return body == "" || body == "[deleted]" || body == "[removed]"
}

func postRow(p reddit.Post) *models.Post {
	return &models.Post{
		RedditID:    p.ID,
		Title:       p.Title,
		Body:        p.Body,
		URL:         p.URL,
		Author:      p.Author,
		Subreddit:   p.Subreddit,
		Flair:       p.Flair,
		Score:       p.Score,
		NumComments: p.NumComments,
		UpvoteRatio: p.UpvoteRatio,
		TotalAwards: p.TotalAwards,
		Permalink:   p.Permalink,
		CreatedUTC:  p.CreatedUTC,
	}
}

func commentRow(cm reddit.Comment) *models.Comment {
	row := &models.Comment{
		RedditID:     cm.ID,
		PostRedditID: cm.PostID,
		Body:         cm.Body,
		Author:       cm.Author,
		Score:        cm.Score,
		Depth:        int16(cm.Depth),
		CreatedUTC:   cm.CreatedUTC,
	}
	if cm.ParentID != "" {
		row.ParentRedditID = sql.NullString{String: cm.ParentID, Valid: true}
	}
	return row
}
