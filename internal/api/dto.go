package api

// TickerResponse is one aggregated symbol row.
type TickerResponse struct {
	Symbol       string  `json:"symbol"`
	CompanyName  string  `json:"company_name,omitempty"`
	MentionCount int64   `json:"mention_count"`
	AvgHypeScore float64 `json:"avg_hype_score"`
	LastSeen     string  `json:"last_seen"`
}

// TopTickersResponse lists the most-mentioned symbols.
type TopTickersResponse struct {
	Tickers []TickerResponse `json:"tickers"`
	Limit   int              `json:"limit"`
}

// DailyStatResponse is one per-day aggregate row, day formatted YYYY-MM-DD.
type DailyStatResponse struct {
	Day          string  `json:"day"`
	MentionCount int64   `json:"mention_count"`
	AvgHypeScore float64 `json:"avg_hype_score"`
}

// DailyStatsResponse is the recent per-day history for one symbol,
// newest day first.
type DailyStatsResponse struct {
	Symbol string              `json:"symbol"`
	Days   int                 `json:"days"`
	Daily  []DailyStatResponse `json:"daily"`
}
