// Package analyzer runs the analysis phase: it pages through stored
// rows the collector left unanalyzed, asks the extraction client for
// tickers and a hype score, and writes the accepted results back. A row
// that fails stays unanalyzed and is picked up by a later invocation;
// nothing in this loop aborts the batch for one bad row.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/hypemind/hypemind/internal/extract"
	"github.com/hypemind/hypemind/internal/models"
	"github.com/hypemind/hypemind/pkg/config"
	"github.com/hypemind/hypemind/pkg/logging"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

// PostStore reads and flags stored posts.
type PostStore interface {
	FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Post, error)
	FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Post, error)
	CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error)
	MarkAnalyzed(ctx context.Context, redditID string) error
}

// CommentStore reads and flags stored comments.
type CommentStore interface {
	FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Comment, error)
	FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Comment, error)
	CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error)
	MarkAnalyzed(ctx context.Context, redditID string) error
}

// TickerStore writes accepted mentions and reads them back for
// contextual inheritance.
type TickerStore interface {
	Insert(ctx context.Context, tickers []*models.ContentTicker) error
	ForContent(ctx context.Context, contentType, redditID string) ([]*models.ContentTicker, error)
}

// StatStore rolls accepted mentions into the symbol aggregates.
type StatStore interface {
	Record(ctx context.Context, tickers []*models.ContentTicker) error
}

// Stores bundles the persistence surface the analyzer writes through.
type Stores struct {
	Posts    PostStore
	Comments CommentStore
	Tickers  TickerStore
	Stats    StatStore
}

// Analyzer drives the analysis phase.
type Analyzer struct {
	cfg       *config.AnalyzerConfig
	extractor extract.Extractor
	stores    Stores
	logger    *zap.Logger

	rowsProcessed otelmetric.Int64Counter
}

// New creates a new analyzer
func New(cfg *config.AnalyzerConfig, extractor extract.Extractor, stores Stores) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		extractor: extractor,
		stores:    stores,
		logger:    logging.GetLogger().With(zap.String("component", "analyzer")),

		rowsProcessed: telemetry.RowCounter("hypemind.analyzer.rows_processed"),
	}
}

// Run analyzes every unanalyzed row, posts first so that comments can
// inherit from their parent's fresh results.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	return a.run(ctx, true, true)
}

// RunPosts analyzes unanalyzed posts only.
func (a *Analyzer) RunPosts(ctx context.Context) (*Report, error) {
	return a.run(ctx, true, false)
}

// RunComments analyzes unanalyzed comments only. A comment analyzed
// before its parent post cannot inherit the parent's tickers.
func (a *Analyzer) RunComments(ctx context.Context) (*Report, error) {
	return a.run(ctx, false, true)
}

func (a *Analyzer) run(ctx context.Context, posts, comments bool) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "analyzer.run")
	defer span.End()

	report := NewReport(a.extractor.Name())
	started := time.Now()

	a.logger.Info("Starting analysis", zap.String("model", report.Model))

	if posts {
		if err := a.analyzePosts(ctx, report, time.Time{}, time.Time{}); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
	}
	if comments {
		if err := a.analyzeComments(ctx, report, time.Time{}, time.Time{}); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
	}

	report.Elapsed = time.Since(started)
	a.logSummary(report)

	return report, nil
}

// analyzePosts pages through unanalyzed posts. Rows that fail in this
// run are remembered and never re-asked; the fetch window grows past
// them so rows behind the failures are still reached.
func (a *Analyzer) analyzePosts(ctx context.Context, report *Report, from, to time.Time) error {
	failed := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		limit := a.cfg.BatchSize + len(failed)
		var rows []*models.Post
		var err error
		if from.IsZero() {
			rows, err = a.stores.Posts.FetchUnanalyzed(ctx, limit)
		} else {
			rows, err = a.stores.Posts.FetchUnanalyzedWindow(ctx, from, to, limit)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch unanalyzed posts: %w", err)
		}

		fresh := 0
		for _, post := range rows {
			if failed[post.RedditID] {
				continue
			}
			fresh++
			if err := ctx.Err(); err != nil {
				return err
			}
			if !a.analyzePost(ctx, post, report) {
				failed[post.RedditID] = true
			}
		}

		if fresh == 0 || len(rows) < limit {
			return nil
		}
	}
}

func (a *Analyzer) analyzeComments(ctx context.Context, report *Report, from, to time.Time) error {
	failed := make(map[string]bool)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		limit := a.cfg.BatchSize + len(failed)
		var rows []*models.Comment
		var err error
		if from.IsZero() {
			rows, err = a.stores.Comments.FetchUnanalyzed(ctx, limit)
		} else {
			rows, err = a.stores.Comments.FetchUnanalyzedWindow(ctx, from, to, limit)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch unanalyzed comments: %w", err)
		}

		fresh := 0
		for _, comment := range rows {
			if failed[comment.RedditID] {
				continue
			}
			fresh++
			if err := ctx.Err(); err != nil {
				return err
			}
			if !a.analyzeComment(ctx, comment, report) {
				failed[comment.RedditID] = true
			}
		}

		if fresh == 0 || len(rows) < limit {
			return nil
		}
	}
}

// analyzePost runs one post through extraction. Returns false when the
// row must stay unanalyzed.
func (a *Analyzer) analyzePost(ctx context.Context, post *models.Post, report *Report) (ok bool) {
	report.rowProcessed(models.ContentTypePost)
	defer func() {
		a.rowsProcessed.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("content_type", models.ContentTypePost),
			attribute.String("result", resultLabel(ok))))
	}()

	result, err := a.analyzeText(ctx, post.AnalysisText())
	if err != nil {
		report.rowFailed(models.ContentTypePost, err)
		a.logger.Warn("Extraction failed",
			zap.String("content_type", models.ContentTypePost),
			zap.String("reddit_id", post.RedditID),
			zap.Error(err))
		return false
	}

	mentions := mentionRows(models.ContentTypePost, post.RedditID, post.CreatedUTC, result)
	if err := a.persist(ctx, mentions); err != nil {
		report.rowFailed(models.ContentTypePost, err)
		a.logger.Error("Failed to store mentions",
			zap.String("reddit_id", post.RedditID),
			zap.Error(err))
		return false
	}
	if err := a.stores.Posts.MarkAnalyzed(ctx, post.RedditID); err != nil {
		report.rowFailed(models.ContentTypePost, err)
		a.logger.Error("Failed to mark post analyzed",
			zap.String("reddit_id", post.RedditID),
			zap.Error(err))
		return false
	}

	report.rowSucceeded(models.ContentTypePost, result.HypeScore, mentions)
	return true
}

// analyzeComment runs one comment through extraction. A comment that
// names no ticker itself may still inherit its parent post's tickers
// when its standalone enthusiasm clears the configured threshold.
func (a *Analyzer) analyzeComment(ctx context.Context, comment *models.Comment, report *Report) (ok bool) {
	report.rowProcessed(models.ContentTypeComment)
	defer func() {
		a.rowsProcessed.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("content_type", models.ContentTypeComment),
			attribute.String("result", resultLabel(ok))))
	}()

	result, err := a.analyzeText(ctx, comment.AnalysisText())
	if err != nil {
		report.rowFailed(models.ContentTypeComment, err)
		a.logger.Warn("Extraction failed",
			zap.String("content_type", models.ContentTypeComment),
			zap.String("reddit_id", comment.RedditID),
			zap.Error(err))
		return false
	}

	mentions := mentionRows(models.ContentTypeComment, comment.RedditID, comment.CreatedUTC, result)
	if len(mentions) == 0 {
		if inherited := a.inherit(ctx, comment); len(inherited) > 0 {
			mentions = inherited
			report.Inherited++
		}
	}

	if err := a.persist(ctx, mentions); err != nil {
		report.rowFailed(models.ContentTypeComment, err)
		a.logger.Error("Failed to store mentions",
			zap.String("reddit_id", comment.RedditID),
			zap.Error(err))
		return false
	}
	if err := a.stores.Comments.MarkAnalyzed(ctx, comment.RedditID); err != nil {
		report.rowFailed(models.ContentTypeComment, err)
		a.logger.Error("Failed to mark comment analyzed",
			zap.String("reddit_id", comment.RedditID),
			zap.Error(err))
		return false
	}

	report.rowSucceeded(models.ContentTypeComment, result.HypeScore, mentions)
	return true
}

// inherit carries the parent post's tickers onto a ticker-less comment
// whose own enthusiasm clears the threshold. The contextual score is an
// auxiliary signal: if it cannot be obtained the comment simply keeps
// its empty result.
func (a *Analyzer) inherit(ctx context.Context, comment *models.Comment) []*models.ContentTicker {
	if comment.PostRedditID == "" {
		return nil
	}

	hype, err := a.contextualHype(ctx, comment.AnalysisText())
	if err != nil {
		a.logger.Warn("Contextual hype failed",
			zap.String("reddit_id", comment.RedditID),
			zap.Error(err))
		return nil
	}
	if hype < a.cfg.InheritThreshold {
		return nil
	}

	parents, err := a.stores.Tickers.ForContent(ctx, models.ContentTypePost, comment.PostRedditID)
	if err != nil {
		a.logger.Warn("Failed to load parent tickers",
			zap.String("post_reddit_id", comment.PostRedditID),
			zap.Error(err))
		return nil
	}
	if len(parents) == 0 {
		return nil
	}

	confidence := round2(math.Min(0.75, hype+0.2))
	rows := make([]*models.ContentTicker, 0, len(parents))
	for _, parent := range parents {
		rows = append(rows, &models.ContentTicker{
			ContentType:     models.ContentTypeComment,
			ContentRedditID: comment.RedditID,
			Symbol:          parent.Symbol,
			CompanyName:     parent.CompanyName,
			HypeScore:       round2(hype),
			Confidence:      confidence,
			Method:          models.MethodContextualInheritance,
			SpanStart:       -1,
			SpanEnd:         -1,
			CreatedAt:       comment.CreatedUTC,
		})
	}
	return rows
}

// analyzeText calls the model, retrying transport failures up to the
// configured budget. Contract failures are final for this run.
func (a *Analyzer) analyzeText(ctx context.Context, text string) (*extract.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		result, err := a.extractor.Analyze(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if extract.IsContractFailure(err) || ctx.Err() != nil {
			return nil, err
		}

		a.logger.Warn("Model call failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", a.cfg.MaxRetries),
			zap.Error(err))

		if attempt < a.cfg.MaxRetries {
			a.wait(ctx, a.cfg.RetryPause)
		}
	}
	return nil, lastErr
}

func (a *Analyzer) contextualHype(ctx context.Context, text string) (float64, error) {
	var lastErr error
	for attempt := 1; attempt <= a.cfg.MaxRetries; attempt++ {
		hype, err := a.extractor.ContextualHype(ctx, text)
		if err == nil {
			return hype, nil
		}
		lastErr = err
		if extract.IsContractFailure(err) || ctx.Err() != nil {
			return 0, err
		}
		if attempt < a.cfg.MaxRetries {
			a.wait(ctx, a.cfg.RetryPause)
		}
	}
	return 0, lastErr
}

// persist writes accepted mentions and rolls them into the aggregates.
func (a *Analyzer) persist(ctx context.Context, mentions []*models.ContentTicker) error {
	if len(mentions) == 0 {
		return nil
	}
	if err := a.stores.Tickers.Insert(ctx, mentions); err != nil {
		return fmt.Errorf("failed to insert tickers: %w", err)
	}
	if err := a.stores.Stats.Record(ctx, mentions); err != nil {
		return fmt.Errorf("failed to record ticker stats: %w", err)
	}
	return nil
}

// wait waits for the specified duration or until context is cancelled
func (a *Analyzer) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (a *Analyzer) logSummary(report *Report) {
	a.logger.Info("Analysis finished",
		zap.String("model", report.Model),
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("inherited", report.Inherited),
		zap.Int("mentions", report.Mentions),
		zap.Any("by_type", report.ByType),
		zap.Any("failures", report.Failures),
		zap.Any("methods", report.Methods),
		zap.Any("hype_buckets", report.BucketCounts()),
		zap.Any("top_symbols", report.TopSymbols(10)),
		zap.Duration("elapsed", report.Elapsed))
}

func resultLabel(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}

// mentionRows maps a validated extraction result onto ticker rows for
// one content item, stamped with the content's own timestamp so the
// daily aggregates land on the day the text was written.
func mentionRows(contentType, redditID string, at time.Time, result *extract.Result) []*models.ContentTicker {
	rows := make([]*models.ContentTicker, 0, len(result.Tickers))
	for _, m := range result.Tickers {
		rows = append(rows, &models.ContentTicker{
			ContentType:     contentType,
			ContentRedditID: redditID,
			Symbol:          m.Symbol,
			CompanyName:     m.CompanyName,
			HypeScore:       result.HypeScore,
			Confidence:      m.Confidence,
			Method:          models.MethodLLM,
			SpanStart:       m.SpanStart,
			SpanEnd:         m.SpanEnd,
			CreatedAt:       at,
		})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
