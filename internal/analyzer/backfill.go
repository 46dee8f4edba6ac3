package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backfill re-analyzes stored rows day by day inside the half-open
// window [from, to). Estimate mode only counts eligible rows per day
// without touching the model.
func (a *Analyzer) Backfill(ctx context.Context, from, to time.Time, estimate bool) (*Report, error) {
	report := NewReport(a.extractor.Name())
	started := time.Now()

	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)

	a.logger.Info("Starting backfill",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Bool("estimate", estimate))

	for day := from; day.Before(to); day = day.Add(24 * time.Hour) {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
		next := day.Add(24 * time.Hour)

		if estimate {
			posts, err := a.stores.Posts.CountUnanalyzedWindow(ctx, day, next)
			if err != nil {
				report.Elapsed = time.Since(started)
				return report, fmt.Errorf("failed to count unanalyzed posts: %w", err)
			}
			comments, err := a.stores.Comments.CountUnanalyzedWindow(ctx, day, next)
			if err != nil {
				report.Elapsed = time.Since(started)
				return report, fmt.Errorf("failed to count unanalyzed comments: %w", err)
			}
			report.EstimatedPosts += posts
			report.EstimatedComments += comments

			a.logger.Info("Backfill day estimated",
				zap.Time("day", day),
				zap.Int64("posts", posts),
				zap.Int64("comments", comments))
			continue
		}

		before := report.Processed
		if err := a.analyzePosts(ctx, report, day, next); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}
		if err := a.analyzeComments(ctx, report, day, next); err != nil {
			report.Elapsed = time.Since(started)
			return report, err
		}

		a.logger.Info("Backfill day finished",
			zap.Time("day", day),
			zap.Int("rows", report.Processed-before))

		// Only days that touched the model are followed by a pause.
		if report.Processed > before && next.Before(to) {
			a.wait(ctx, a.cfg.DayPause)
		}
	}

	report.Elapsed = time.Since(started)
	if estimate {
		a.logger.Info("Backfill estimate finished",
			zap.Int64("posts", report.EstimatedPosts),
			zap.Int64("comments", report.EstimatedComments),
			zap.Duration("elapsed", report.Elapsed))
	} else {
		a.logSummary(report)
	}

	return report, nil
}
