package analyzer

import (
	"errors"
	"sort"
	"time"

	"github.com/hypemind/hypemind/internal/extract"
	"github.com/hypemind/hypemind/internal/models"
)

var bucketLabels = [5]string{"0.00-0.29", "0.30-0.49", "0.50-0.69", "0.70-0.89", "0.90-1.00"}

// Report summarizes one analysis run.
type Report struct {
	Model     string
	Processed int
	Succeeded int
	Failed    int
	Inherited int
	Mentions  int
	ByType    map[string]*RowCounts
	Failures  map[string]int
	Methods   map[string]int
	Symbols   map[string]int
	Buckets   [5]int
	Elapsed   time.Duration

	// Backfill estimate mode fills these instead of processing rows.
	EstimatedPosts    int64
	EstimatedComments int64
}

// RowCounts tracks one content type's rows through a run.
type RowCounts struct {
	Processed int
	Succeeded int
	Failed    int
}

// SymbolCount is one entry of a mention leaderboard.
type SymbolCount struct {
	Symbol string
	Count  int
}

// NewReport creates an empty report for the given model.
func NewReport(model string) *Report {
	return &Report{
		Model:    model,
		ByType:   make(map[string]*RowCounts),
		Failures: make(map[string]int),
		Methods:  make(map[string]int),
		Symbols:  make(map[string]int),
	}
}

func (r *Report) counts(contentType string) *RowCounts {
	c, ok := r.ByType[contentType]
	if !ok {
		c = &RowCounts{}
		r.ByType[contentType] = c
	}
	return c
}

func (r *Report) rowProcessed(contentType string) {
	r.Processed++
	r.counts(contentType).Processed++
}

func (r *Report) rowSucceeded(contentType string, hype float64, mentions []*models.ContentTicker) {
	r.Succeeded++
	r.counts(contentType).Succeeded++
	r.Buckets[bucketIndex(hype)]++
	for _, m := range mentions {
		r.Mentions++
		r.Methods[m.Method]++
		r.Symbols[m.Symbol]++
	}
}

func (r *Report) rowFailed(contentType string, err error) {
	r.Failed++
	r.counts(contentType).Failed++
	r.Failures[failureReason(err)]++
}

// TopSymbols returns up to n symbols by mention count, ties broken
// alphabetically.
func (r *Report) TopSymbols(n int) []SymbolCount {
	out := make([]SymbolCount, 0, len(r.Symbols))
	for symbol, count := range r.Symbols {
		out = append(out, SymbolCount{Symbol: symbol, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Symbol < out[j].Symbol
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// BucketCounts maps hype-score bucket labels to row counts.
func (r *Report) BucketCounts() map[string]int {
	out := make(map[string]int, len(bucketLabels))
	for i, label := range bucketLabels {
		out[label] = r.Buckets[i]
	}
	return out
}

func bucketIndex(score float64) int {
	switch {
	case score < 0.30:
		return 0
	case score < 0.50:
		return 1
	case score < 0.70:
		return 2
	case score < 0.90:
		return 3
	default:
		return 4
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrBadJSON):
		return "bad_json"
	case errors.Is(err, extract.ErrShape):
		return "bad_shape"
	case errors.Is(err, extract.ErrScoreRange):
		return "score_range"
	case errors.Is(err, extract.ErrBadSymbol):
		return "bad_symbol"
	case errors.Is(err, extract.ErrNoResponse):
		return "no_response"
	default:
		return "other"
	}
}
