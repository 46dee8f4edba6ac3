// Package ticker decides whether a candidate token is a plausible
// financial symbol. This is a heuristic filter, not a registry lookup:
// a symbol passing here may still not exist on any exchange.
package ticker

import (
	"regexp"
	"strings"
)

var symbolRe = regexp.MustCompile(`^[A-Z]{1,5}$`)

// blockList holds common words and forum jargon that collide with the
// 1-5 uppercase-letter symbol shape.
var blockList = map[string]struct{}{}

func init() {
	words := []string{
		"A", "I", "AN", "AM", "AT", "BE", "BY", "DO", "GO", "IF", "IN",
		"IS", "IT", "ME", "MY", "NO", "OF", "OK", "ON", "OR", "SO", "TO",
		"UP", "US", "WE", "ALL", "AND", "ANY", "ARE", "BIG", "BUY", "CAN",
		"CEO", "CFO", "DAY", "DID", "EPS", "ETF", "EOD", "FOR", "GET",
		"GDP", "HAS", "HE", "HER", "HIS", "IMO", "IPO", "ITM", "LOL",
		"LOW", "MAN", "NEW", "NOT", "NOW", "OMG", "ONE", "OTM", "OUT",
		"PUT", "RED", "SEC", "SHE", "TOP", "THE", "USA", "USD", "WAS",
		"WHO", "WHY", "WSB", "YES", "YOU", "ATH", "FDA", "FED", "FYI",
		"API", "DD", "PE", "EV", "AI", "CALL", "PUTS", "EDIT", "FOMO",
		"HODL", "HOLD", "MOON", "NEWS", "ONLY", "SELL", "THIS", "TLDR",
		"WHAT", "WHEN", "WILL", "WITH", "YOLO", "TODAY",
	}
	for _, w := range words {
		blockList[w] = struct{}{}
	}
}

// Normalize strips a single leading cashtag marker and surrounding
// whitespace from a candidate token. Case is preserved: validation is
// case-sensitive on purpose, lowercase tokens are not symbols.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	return strings.TrimPrefix(token, "$")
}

// IsPlausible reports whether token, after normalization, looks like a
// ticker symbol: 1-5 uppercase letters not on the block-list.
func IsPlausible(token string) bool {
	sym := Normalize(token)
	if !symbolRe.MatchString(sym) {
		return false
	}
	_, blocked := blockList[sym]
	return !blocked
}

// Blocked reports whether the normalized token is on the block-list.
func Blocked(token string) bool {
	_, blocked := blockList[Normalize(token)]
	return blocked
}
