// Package extract turns free text into structured ticker/hype records by
// way of a language model. The model is trusted for judgment only; every
// response goes through a strict parse-then-validate step and anything
// malformed is rejected whole, never repaired.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/hypemind/hypemind/internal/ticker"
	"github.com/hypemind/hypemind/pkg/telemetry"
)

// Validation failure reasons. Callers match with errors.Is.
var (
	ErrNoResponse = errors.New("no response from model")
	ErrBadJSON    = errors.New("response is not valid json")
	ErrShape      = errors.New("response shape invalid")
	ErrScoreRange = errors.New("hype score out of range")
	ErrBadSymbol  = errors.New("implausible ticker symbol")
)

// IsContractFailure reports whether err is a model-output failure as
// opposed to a transport problem. Contract failures are final for the
// current run; transport problems may be retried by the caller.
func IsContractFailure(err error) bool {
	return errors.Is(err, ErrNoResponse) ||
		errors.Is(err, ErrBadJSON) ||
		errors.Is(err, ErrShape) ||
		errors.Is(err, ErrScoreRange) ||
		errors.Is(err, ErrBadSymbol)
}

// Mention is one validated ticker occurrence in a text blob.
type Mention struct {
	Symbol      string
	CompanyName string
	Confidence  float64
	SpanStart   int
	SpanEnd     int
}

// Result is the validated outcome of one extraction call.
type Result struct {
	Tickers   []Mention
	HypeScore float64
}

// Extractor sends text to a language model and returns validated
// ticker/hype records.
type Extractor interface {
	// Analyze extracts ticker mentions and an overall hype score.
	Analyze(ctx context.Context, text string) (*Result, error)
	// ContextualHype scores enthusiasm in text that names no ticker.
	ContextualHype(ctx context.Context, text string) (float64, error)
	// Name identifies the underlying model for logs and reports.
	Name() string
}

// completeFunc is one round trip to a chat model.
type completeFunc func(ctx context.Context, system, user string) (string, error)

// analyzeWith runs the extraction prompt through complete, allowing one
// re-ask when the model returns something unparseable. Transport errors
// are not retried here; the batch loop owns that policy.
func analyzeWith(ctx context.Context, complete completeFunc, text string) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "extract.analyze")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := complete(ctx, systemPrompt, text)
		if err != nil {
			return nil, err
		}
		result, err := parseResult(raw, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// contextualWith runs the contextual-hype prompt through complete with
// the same single re-ask policy. Texts too short to carry sentiment
// score zero without a model call.
func contextualWith(ctx context.Context, complete completeFunc, text string) (float64, error) {
	if len(strings.TrimSpace(text)) < 3 {
		return 0, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "extract.contextual_hype")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := complete(ctx, contextualPrompt, text)
		if err != nil {
			return 0, err
		}
		score, err := parseContextualHype(raw)
		if err == nil {
			return score, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// cleanResponse strips markdown fencing and surrounding prose, keeping
// the outermost JSON object.
func cleanResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around JSON.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// parseResult validates a raw model response against the extraction
// contract. source is the analyzed text, used for span detection.
func parseResult(raw, source string) (*Result, error) {
	content := cleanResponse(raw)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", ErrBadJSON)
	}

	var wire struct {
		Tickers *[]struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"tickers"`
		HypeScore *float64 `json:"hype_score"`
	}
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if wire.Tickers == nil {
		return nil, fmt.Errorf("%w: missing tickers array", ErrShape)
	}
	if wire.HypeScore == nil {
		return nil, fmt.Errorf("%w: missing hype_score", ErrShape)
	}
	if *wire.HypeScore < 0 || *wire.HypeScore > 1 {
		return nil, fmt.Errorf("%w: %v", ErrScoreRange, *wire.HypeScore)
	}

	result := &Result{HypeScore: round2(*wire.HypeScore)}
	seen := make(map[string]bool)
	for _, t := range *wire.Tickers {
		symbol := strings.ToUpper(strings.TrimSpace(ticker.Normalize(t.Symbol)))
		if !ticker.IsPlausible(symbol) {
			return nil, fmt.Errorf("%w: %q", ErrBadSymbol, t.Symbol)
		}
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		start, end := findSpan(source, symbol)
		result.Tickers = append(result.Tickers, Mention{
			Symbol:      symbol,
			CompanyName: strings.TrimSpace(t.Name),
			Confidence:  round2(extractionConfidence(symbol, t.Name, start >= 0)),
			SpanStart:   start,
			SpanEnd:     end,
		})
	}
	return result, nil
}

// parseContextualHype validates a raw contextual-hype response. Scores
// are clamped to [0,1]; this auxiliary signal feeds a threshold, not a
// stored record.
func parseContextualHype(raw string) (float64, error) {
	content := cleanResponse(raw)
	if content == "" {
		return 0, fmt.Errorf("%w: empty response", ErrBadJSON)
	}

	var wire struct {
		ContextualHype *float64 `json:"contextual_hype"`
	}
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if wire.ContextualHype == nil {
		return 0, fmt.Errorf("%w: missing contextual_hype", ErrShape)
	}
	return math.Max(0, math.Min(1, *wire.ContextualHype)), nil
}

// findSpan locates symbol in text, preferring a cashtag match, then a
// word-boundary match, then a plain substring. Returns (-1, -1) when
// the symbol never appears.
func findSpan(text, symbol string) (int, int) {
	if text == "" || symbol == "" {
		return -1, -1
	}

	quoted := regexp.QuoteMeta(symbol)
	if m := regexp.MustCompile(`(?i)\$` + quoted + `\b`).FindStringIndex(text); m != nil {
		return m[0], m[1]
	}
	if m := regexp.MustCompile(`(?i)\b` + quoted + `\b`).FindStringIndex(text); m != nil {
		return m[0], m[1]
	}
	if i := strings.Index(strings.ToUpper(text), symbol); i >= 0 {
		return i, i + len(symbol)
	}
	return -1, -1
}

// extractionConfidence scores how much to trust one mention: a resolved
// company name and a longer symbol raise it, very short symbols and a
// missing span lower it. Bounded to [0.3, 1.0].
func extractionConfidence(symbol, companyName string, spanFound bool) float64 {
	confidence := 0.8
	if strings.TrimSpace(companyName) != "" {
		confidence += 0.1
	}
	if len(symbol) <= 2 {
		confidence -= 0.1
	} else if len(symbol) >= 4 {
		confidence += 0.05
	}
	if !spanFound {
		confidence -= 0.2
	}
	return math.Max(0.3, math.Min(1.0, confidence))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
