package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hypemind/hypemind/internal/extract"
	"github.com/hypemind/hypemind/internal/models"
	"github.com/hypemind/hypemind/pkg/config"
)

type fakeExtractor struct {
	results         map[string]*extract.Result
	errs            map[string]error
	contextual      map[string]float64
	failures        int
	calls           int
	contextualCalls int
}

func (f *fakeExtractor) Analyze(ctx context.Context, text string) (*extract.Result, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	if err, ok := f.errs[text]; ok {
		return nil, err
	}
	if r, ok := f.results[text]; ok {
		return r, nil
	}
	return &extract.Result{}, nil
}

func (f *fakeExtractor) ContextualHype(ctx context.Context, text string) (float64, error) {
	f.contextualCalls++
	return f.contextual[text], nil
}

func (f *fakeExtractor) Name() string { return "fake-model" }

type fakePostStore struct {
	posts []*models.Post
}

func (f *fakePostStore) FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if !p.Analyzed() {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePostStore) FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if !p.Analyzed() && !p.CreatedUTC.Before(from) && p.CreatedUTC.Before(to) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePostStore) CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error) {
	rows, _ := f.FetchUnanalyzedWindow(ctx, from, to, len(f.posts)+1)
	return int64(len(rows)), nil
}

func (f *fakePostStore) MarkAnalyzed(ctx context.Context, redditID string) error {
	for _, p := range f.posts {
		if p.RedditID == redditID {
			p.AnalyzedAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
	}
	return nil
}

type fakeCommentStore struct {
	comments []*models.Comment
}

func (f *fakeCommentStore) FetchUnanalyzed(ctx context.Context, limit int) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range f.comments {
		if !c.Analyzed() {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCommentStore) FetchUnanalyzedWindow(ctx context.Context, from, to time.Time, limit int) ([]*models.Comment, error) {
	var out []*models.Comment
	for _, c := range f.comments {
		if !c.Analyzed() && !c.CreatedUTC.Before(from) && c.CreatedUTC.Before(to) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCommentStore) CountUnanalyzedWindow(ctx context.Context, from, to time.Time) (int64, error) {
	rows, _ := f.FetchUnanalyzedWindow(ctx, from, to, len(f.comments)+1)
	return int64(len(rows)), nil
}

func (f *fakeCommentStore) MarkAnalyzed(ctx context.Context, redditID string) error {
	for _, c := range f.comments {
		if c.RedditID == redditID {
			c.AnalyzedAt = sql.NullTime{Time: time.Now(), Valid: true}
		}
	}
	return nil
}

type fakeTickerStore struct {
	rows []*models.ContentTicker
}

func (f *fakeTickerStore) Insert(ctx context.Context, tickers []*models.ContentTicker) error {
	f.rows = append(f.rows, tickers...)
	return nil
}

func (f *fakeTickerStore) ForContent(ctx context.Context, contentType, redditID string) ([]*models.ContentTicker, error) {
	var out []*models.ContentTicker
	for _, t := range f.rows {
		if t.ContentType == contentType && t.ContentRedditID == redditID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeStatStore struct {
	recorded []*models.ContentTicker
}

func (f *fakeStatStore) Record(ctx context.Context, tickers []*models.ContentTicker) error {
	f.recorded = append(f.recorded, tickers...)
	return nil
}

func testConfig() *config.AnalyzerConfig {
	return &config.AnalyzerConfig{
		BatchSize:        2,
		MaxRetries:       2,
		RetryPause:       time.Millisecond,
		InheritThreshold: 0.3,
		DayPause:         time.Millisecond,
	}
}

func day(offset int) time.Time {
	return time.Date(2026, 8, 1+offset, 0, 0, 0, 0, time.UTC)
}

func unanalyzedPost(id, title string, created time.Time) *models.Post {
	return &models.Post{RedditID: id, Title: title, CreatedUTC: created}
}

func unanalyzedComment(id, postID, body string, created time.Time) *models.Comment {
	return &models.Comment{RedditID: id, PostRedditID: postID, Body: body, CreatedUTC: created}
}

func tslaResult() *extract.Result {
	return &extract.Result{
		HypeScore: 0.95,
		Tickers: []extract.Mention{
			{Symbol: "TSLA", CompanyName: "Tesla Inc.", Confidence: 0.9, SpanStart: 0, SpanEnd: 4},
		},
	}
}

func TestRunIsolatesRowFailures(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "TSLA is unstoppable! 🚀", day(0).Add(time.Hour)),
		unanalyzedPost("p2", "Markets look flat today.", day(0).Add(2*time.Hour)),
		unanalyzedPost("p3", "broken row", day(0).Add(3*time.Hour)),
	}}
	comments := &fakeCommentStore{comments: []*models.Comment{
		unanalyzedComment("c1", "p1", "GME for life", day(0).Add(4*time.Hour)),
		unanalyzedComment("c2", "p2", "lol nice", day(0).Add(5*time.Hour)),
	}}
	tickers := &fakeTickerStore{}
	stats := &fakeStatStore{}
	ex := &fakeExtractor{
		results: map[string]*extract.Result{
			"TSLA is unstoppable! 🚀": tslaResult(),
			"GME for life": {
				HypeScore: 0.80,
				Tickers:   []extract.Mention{{Symbol: "GME", Confidence: 0.7, SpanStart: 0, SpanEnd: 3}},
			},
		},
		errs: map[string]error{
			"broken row": fmt.Errorf("%w: prose", extract.ErrBadJSON),
		},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: comments, Tickers: tickers, Stats: stats})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Processed != 5 || report.Succeeded != 4 || report.Failed != 1 {
		t.Errorf("Expected 5/4/1, got %d/%d/%d", report.Processed, report.Succeeded, report.Failed)
	}
	if pc := report.ByType[models.ContentTypePost]; pc == nil || pc.Processed != 3 || pc.Succeeded != 2 || pc.Failed != 1 {
		t.Errorf("Unexpected post counts: %+v", pc)
	}
	if cc := report.ByType[models.ContentTypeComment]; cc == nil || cc.Processed != 2 || cc.Succeeded != 2 || cc.Failed != 0 {
		t.Errorf("Unexpected comment counts: %+v", cc)
	}
	if report.Failures["bad_json"] != 1 {
		t.Errorf("Expected one bad_json failure, got %v", report.Failures)
	}

	// Exactly the failed row stays unanalyzed.
	for _, p := range posts.posts {
		analyzed := p.Analyzed()
		if p.RedditID == "p3" && analyzed {
			t.Error("Failed row p3 must stay unanalyzed")
		}
		if p.RedditID != "p3" && !analyzed {
			t.Errorf("Row %s should be analyzed", p.RedditID)
		}
	}
	for _, c := range comments.comments {
		if !c.Analyzed() {
			t.Errorf("Comment %s should be analyzed", c.RedditID)
		}
	}

	if len(tickers.rows) != 2 {
		t.Fatalf("Expected 2 mentions stored, got %d", len(tickers.rows))
	}
	if tickers.rows[0].Symbol != "TSLA" || tickers.rows[1].Symbol != "GME" {
		t.Errorf("Unexpected mentions: %+v", tickers.rows)
	}
	if len(stats.recorded) != 2 {
		t.Errorf("Expected 2 stat records, got %d", len(stats.recorded))
	}
	if report.Mentions != 2 {
		t.Errorf("Expected 2 mentions in report, got %d", report.Mentions)
	}
	if report.Buckets[4] != 1 || report.Buckets[0] != 2 {
		t.Errorf("Unexpected bucket spread: %v", report.Buckets)
	}
}

func TestRunRetriesTransportErrors(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "TSLA is unstoppable! 🚀", day(0)),
	}}
	ex := &fakeExtractor{
		failures: 1,
		results:  map[string]*extract.Result{"TSLA is unstoppable! 🚀": tslaResult()},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: &fakeCommentStore{}, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if ex.calls != 2 {
		t.Errorf("Expected retry after transport error, got %d calls", ex.calls)
	}
	if report.Succeeded != 1 || report.Failed != 0 {
		t.Errorf("Expected recovery, got %d/%d", report.Succeeded, report.Failed)
	}
	if !posts.posts[0].Analyzed() {
		t.Error("Row should be analyzed after retry")
	}
}

func TestContractFailuresAreNotRetried(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "weird output", day(0)),
	}}
	ex := &fakeExtractor{
		errs: map[string]error{"weird output": extract.ErrShape},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: &fakeCommentStore{}, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if ex.calls != 1 {
		t.Errorf("Contract failure must not be retried, got %d calls", ex.calls)
	}
	if report.Failed != 1 {
		t.Errorf("Expected 1 failed row, got %d", report.Failed)
	}
	if posts.posts[0].Analyzed() {
		t.Error("Failed row must stay unanalyzed")
	}
}

func TestAllRowsFailingStillTerminates(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "bad", day(0)),
		unanalyzedPost("p2", "bad", day(0).Add(time.Hour)),
		unanalyzedPost("p3", "bad", day(0).Add(2*time.Hour)),
	}}
	ex := &fakeExtractor{
		errs: map[string]error{"bad": extract.ErrBadJSON},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: &fakeCommentStore{}, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Each row is asked exactly once per run even though all of them
	// stay at the head of every fetched page.
	if ex.calls != 3 {
		t.Errorf("Expected 3 extraction calls, got %d", ex.calls)
	}
	if report.Failed != 3 {
		t.Errorf("Expected 3 failed rows, got %d", report.Failed)
	}
	for _, p := range posts.posts {
		if p.Analyzed() {
			t.Errorf("Row %s must stay unanalyzed", p.RedditID)
		}
	}
}

func TestScopedRuns(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "TSLA is unstoppable! 🚀", day(0)),
	}}
	comments := &fakeCommentStore{comments: []*models.Comment{
		unanalyzedComment("c1", "p1", "GME for life", day(0).Add(time.Hour)),
	}}
	ex := &fakeExtractor{
		results: map[string]*extract.Result{"TSLA is unstoppable! 🚀": tslaResult()},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: comments, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.RunPosts(context.Background())
	if err != nil {
		t.Fatalf("RunPosts failed: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("Expected only the post processed, got %d", report.Processed)
	}
	if !posts.posts[0].Analyzed() {
		t.Error("Post should be analyzed")
	}
	if comments.comments[0].Analyzed() {
		t.Error("Comments must be untouched in posts-only mode")
	}

	report, err = a.RunComments(context.Background())
	if err != nil {
		t.Fatalf("RunComments failed: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("Expected only the comment processed, got %d", report.Processed)
	}
	if !comments.comments[0].Analyzed() {
		t.Error("Comments-only run should pick up the remaining comment")
	}
}

func TestCommentInheritsParentTickers(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "TSLA is unstoppable! 🚀", day(0)),
	}}
	comments := &fakeCommentStore{comments: []*models.Comment{
		unanalyzedComment("c1", "p1", "🚀🚀🚀 to the moon", day(0).Add(time.Hour)),
	}}
	tickers := &fakeTickerStore{}
	ex := &fakeExtractor{
		results:    map[string]*extract.Result{"TSLA is unstoppable! 🚀": tslaResult()},
		contextual: map[string]float64{"🚀🚀🚀 to the moon": 0.8},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: comments, Tickers: tickers, Stats: &fakeStatStore{}})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Inherited != 1 {
		t.Errorf("Expected 1 inherited row, got %d", report.Inherited)
	}
	if ex.contextualCalls != 1 {
		t.Errorf("Expected 1 contextual call, got %d", ex.contextualCalls)
	}
	if len(tickers.rows) != 2 {
		t.Fatalf("Expected post + inherited mention, got %d", len(tickers.rows))
	}

	inherited := tickers.rows[1]
	if inherited.ContentType != models.ContentTypeComment || inherited.ContentRedditID != "c1" {
		t.Errorf("Unexpected inherited row: %+v", inherited)
	}
	if inherited.Symbol != "TSLA" {
		t.Errorf("Expected inherited TSLA, got %s", inherited.Symbol)
	}
	if inherited.Method != models.MethodContextualInheritance {
		t.Errorf("Expected inheritance method tag, got %s", inherited.Method)
	}
	if inherited.HypeScore != 0.8 {
		t.Errorf("Expected contextual hype 0.8, got %v", inherited.HypeScore)
	}
	if inherited.Confidence != 0.75 {
		t.Errorf("Expected capped confidence 0.75, got %v", inherited.Confidence)
	}
	if inherited.SpanStart != -1 || inherited.SpanEnd != -1 {
		t.Errorf("Inherited mentions carry no span, got (%d,%d)", inherited.SpanStart, inherited.SpanEnd)
	}
}

func TestCommentBelowThresholdDoesNotInherit(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "TSLA is unstoppable! 🚀", day(0)),
	}}
	comments := &fakeCommentStore{comments: []*models.Comment{
		unanalyzedComment("c1", "p1", "meh whatever", day(0).Add(time.Hour)),
	}}
	tickers := &fakeTickerStore{}
	ex := &fakeExtractor{
		results:    map[string]*extract.Result{"TSLA is unstoppable! 🚀": tslaResult()},
		contextual: map[string]float64{"meh whatever": 0.1},
	}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: comments, Tickers: tickers, Stats: &fakeStatStore{}})
	report, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Inherited != 0 {
		t.Errorf("Expected no inheritance, got %d", report.Inherited)
	}
	if len(tickers.rows) != 1 {
		t.Errorf("Expected only the post mention, got %d", len(tickers.rows))
	}
	if !comments.comments[0].Analyzed() {
		t.Error("Ticker-less comment is still a completed analysis")
	}
}

func TestBackfillEstimate(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "a", day(0).Add(time.Hour)),
		unanalyzedPost("p2", "b", day(1).Add(time.Hour)),
		unanalyzedPost("p3", "c", day(5).Add(time.Hour)),
	}}
	comments := &fakeCommentStore{comments: []*models.Comment{
		unanalyzedComment("c1", "p1", "x", day(0).Add(2*time.Hour)),
	}}
	ex := &fakeExtractor{}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: comments, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.Backfill(context.Background(), day(0), day(2), true)
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}

	if report.EstimatedPosts != 2 || report.EstimatedComments != 1 {
		t.Errorf("Expected 2 posts / 1 comment estimated, got %d/%d",
			report.EstimatedPosts, report.EstimatedComments)
	}
	if ex.calls != 0 {
		t.Errorf("Estimate mode must not call the model, got %d calls", ex.calls)
	}
	for _, p := range posts.posts {
		if p.Analyzed() {
			t.Errorf("Estimate mode must not mark rows, %s analyzed", p.RedditID)
		}
	}
}

func TestBackfillWindow(t *testing.T) {
	posts := &fakePostStore{posts: []*models.Post{
		unanalyzedPost("p1", "inside", day(0).Add(time.Hour)),
		unanalyzedPost("p2", "outside", day(5).Add(time.Hour)),
	}}
	ex := &fakeExtractor{}

	a := New(testConfig(), ex, Stores{Posts: posts, Comments: &fakeCommentStore{}, Tickers: &fakeTickerStore{}, Stats: &fakeStatStore{}})
	report, err := a.Backfill(context.Background(), day(0), day(1), false)
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}

	if report.Processed != 1 {
		t.Errorf("Expected 1 row inside the window, got %d", report.Processed)
	}
	if !posts.posts[0].Analyzed() {
		t.Error("Row inside the window should be analyzed")
	}
	if posts.posts[1].Analyzed() {
		t.Error("Row outside the window must be untouched")
	}
}

func TestTopSymbolsOrdering(t *testing.T) {
	r := NewReport("fake")
	r.Symbols["GME"] = 3
	r.Symbols["TSLA"] = 5
	r.Symbols["AMC"] = 3
	r.Symbols["NVDA"] = 1

	top := r.TopSymbols(3)
	if len(top) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(top))
	}
	if top[0].Symbol != "TSLA" || top[1].Symbol != "AMC" || top[2].Symbol != "GME" {
		t.Errorf("Unexpected ordering: %+v", top)
	}
}

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0.0, 0}, {0.29, 0}, {0.30, 1}, {0.49, 1},
		{0.50, 2}, {0.69, 2}, {0.70, 3}, {0.89, 3},
		{0.90, 4}, {1.0, 4},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.score); got != tt.want {
			t.Errorf("bucketIndex(%v) = %d, want %d", tt.score, got, tt.want)
		}
	}
}
