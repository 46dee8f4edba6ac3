package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hypemind/hypemind/internal/models"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ClearAll deletes all stored content and derived data, children first.
func (r *Repository) ClearAll(ctx context.Context) error {
	tables := []string{"content_tickers", "ticker_daily_stats", "tickers", "comments", "posts"}
	for _, table := range tables {
		if err := r.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// postUpdateColumns are the columns a re-collected post may refresh.
// Analysis state and the original created timestamp are never touched.
var postUpdateColumns = []string{
	"title", "body", "url", "author", "flair", "score",
	"num_comments", "upvote_ratio", "total_awards", "permalink", "updated_at",
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// Upsert inserts a post or refreshes its mutable columns, keyed on reddit_id
func (r *PostRepository) Upsert(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reddit_id"}},
		DoUpdates: clause.AssignmentColumns(postUpdateColumns),
	}).Create(post).Error
}

// GetByRedditID retrieves a post by its external id
func (r *PostRepository) GetByRedditID(ctx context.Context, redditID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("reddit_id = ?", redditID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// FetchUnanalyzed retrieves posts not yet analyzed, oldest first
func (r *PostRepository) FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("analyzed_at IS NULL").
		Order("created_utc ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FetchUnanalyzedWindow retrieves unanalyzed posts created in [from, to), oldest first
func (r *PostRepository) FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("analyzed_at IS NULL AND created_utc >= ? AND created_utc < ?", from, to).
		Order("created_utc ASC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CountUnanalyzedWindow counts unanalyzed posts created in [from, to)
func (r *PostRepository) CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("analyzed_at IS NULL AND created_utc >= ? AND created_utc < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAnalyzed stamps a post as analyzed
func (r *PostRepository) MarkAnalyzed(ctx context.Context, redditID string) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Where("reddit_id = ?", redditID).
		Update("analyzed_at", time.Now().UTC()).Error
}

// commentUpdateColumns are the columns a re-collected comment may refresh.
var commentUpdateColumns = []string{"body", "author", "score", "updated_at"}

// CommentRepository provides comment-related database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// Upsert inserts a comment or refreshes its mutable columns, keyed on reddit_id
func (r *CommentRepository) Upsert(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reddit_id"}},
		DoUpdates: clause.AssignmentColumns(commentUpdateColumns),
	}).Create(comment).Error
}

// UpsertBatch inserts comments in chunks, keyed on reddit_id
func (r *CommentRepository) UpsertBatch(ctx context.Context, comments []*models.Comment, chunkSize int) error {
	if len(comments) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	ctx, span := telemetry.StartSpan(ctx, "db.upsert_comments")
	defer span.End()

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reddit_id"}},
		DoUpdates: clause.AssignmentColumns(commentUpdateColumns),
	}).CreateInBatches(comments, chunkSize).Error
}

// GetByRedditID retrieves a comment by its external id
func (r *CommentRepository) GetByRedditID(ctx context.Context, redditID string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("reddit_id = ?", redditID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// FetchUnanalyzed retrieves comments not yet analyzed, oldest first
func (r *CommentRepository) FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("analyzed_at IS NULL").
		Order("created_utc ASC").
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// FetchUnanalyzedWindow retrieves unanalyzed comments created in [from, to), oldest first
func (r *CommentRepository) FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("analyzed_at IS NULL AND created_utc >= ? AND created_utc < ?", from, to).
		Order("created_utc ASC").
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// CountUnanalyzedWindow counts unanalyzed comments created in [from, to)
func (r *CommentRepository) CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("analyzed_at IS NULL AND created_utc >= ? AND created_utc < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkAnalyzed stamps a comment as analyzed
func (r *CommentRepository) MarkAnalyzed(ctx context.Context, redditID string) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("reddit_id = ?", redditID).
		Update("analyzed_at", time.Now().UTC()).Error
}

// TickerRepository provides extracted-mention database operations
type TickerRepository struct {
	*Repository
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(repo *Repository) *TickerRepository {
	return &TickerRepository{Repository: repo}
}

// Insert appends ticker mentions. A mention already recorded for the same
// content row and symbol is left untouched.
func (r *TickerRepository) Insert(ctx context.Context, tickers []*models.ContentTicker) error {
	if len(tickers) == 0 {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "db.insert_tickers")
	defer span.End()

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "content_type"},
			{Name: "content_reddit_id"},
			{Name: "symbol"},
		},
		DoNothing: true,
	}).Create(tickers).Error
}

// ForContent retrieves all mentions recorded for one content row
func (r *TickerRepository) ForContent(ctx context.Context, contentType, redditID string) ([]*models.ContentTicker, error) {
	var tickers []*models.ContentTicker
	if err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_reddit_id = ?", contentType, redditID).
		Find(&tickers).Error; err != nil {
		return nil, err
	}
	return tickers, nil
}

// StatRepository provides rolled-up symbol statistics
type StatRepository struct {
	*Repository
}

// NewStatRepository creates a new stat repository
func NewStatRepository(repo *Repository) *StatRepository {
	return &StatRepository{Repository: repo}
}

// Record rolls a batch of accepted mentions into the per-symbol and
// per-symbol-per-day aggregates.
func (r *StatRepository) Record(ctx context.Context, tickers []*models.ContentTicker) error {
	for _, t := range tickers {
		seen := t.CreatedAt
		if seen.IsZero() {
			seen = time.Now().UTC()
		}
		stat := &models.TickerStat{
			Symbol:       t.Symbol,
			CompanyName:  t.CompanyName,
			MentionCount: 1,
			AvgHypeScore: t.HypeScore,
			LastSeen:     seen,
		}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"mention_count":  gorm.Expr("tickers.mention_count + 1"),
				"avg_hype_score": gorm.Expr("round(((tickers.avg_hype_score * tickers.mention_count) + ?) / (tickers.mention_count + 1), 2)", t.HypeScore),
				"last_seen":      seen,
				"company_name":   gorm.Expr("CASE WHEN excluded.company_name <> '' THEN excluded.company_name ELSE tickers.company_name END"),
			}),
		}).Create(stat).Error; err != nil {
			return err
		}

		daily := &models.TickerDailyStat{
			Symbol:       t.Symbol,
			Day:          seen.Truncate(24 * time.Hour),
			MentionCount: 1,
			AvgHypeScore: t.HypeScore,
		}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"mention_count":  gorm.Expr("ticker_daily_stats.mention_count + 1"),
				"avg_hype_score": gorm.Expr("round(((ticker_daily_stats.avg_hype_score * ticker_daily_stats.mention_count) + ?) / (ticker_daily_stats.mention_count + 1), 2)", t.HypeScore),
			}),
		}).Create(daily).Error; err != nil {
			return err
		}
	}
	return nil
}

// Top retrieves symbols ordered by mention count
func (r *StatRepository) Top(ctx context.Context, limit int) ([]*models.TickerStat, error) {
	var stats []*models.TickerStat
	if err := r.db.WithContext(ctx).
		Order("mention_count DESC").
		Limit(limit).
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// BySymbol retrieves the aggregate row for one symbol
func (r *StatRepository) BySymbol(ctx context.Context, symbol string) (*models.TickerStat, error) {
	var stat models.TickerStat
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&stat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stat, nil
}

// Daily retrieves recent per-day rows for one symbol, newest first
func (r *StatRepository) Daily(ctx context.Context, symbol string, days int) ([]*models.TickerDailyStat, error) {
	var stats []*models.TickerDailyStat
	if err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("day DESC").
		Limit(days).
		Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
