package domain

import "time"

type FetchStatus string

const (
	// FetchSuccess: the source answered and every record normalized.
	FetchSuccess FetchStatus = "success"
	// FetchPartial: the source answered but some records were dropped
	// during normalization.
	FetchPartial FetchStatus = "partial"
	// FetchFailed: the source produced no usable data.
	FetchFailed FetchStatus = "failed"
)

// FetchOutcome is the per-source result of one aggregation run.
// Err is set only when Status is FetchFailed; a partial outcome
// carries Dropped instead.
type FetchOutcome struct {
	Source  Source        `json:"source"`
	Status  FetchStatus   `json:"status"`
	Count   int           `json:"count"`
	Dropped int           `json:"dropped,omitempty"`
	Err     *SourceError  `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// AggregationResult owns the merged, deduplicated review set plus one
// FetchOutcome per configured source, in configuration order. It is
// built once per run and never mutated afterwards.
type AggregationResult struct {
	RunID     string         `json:"run_id"`
	HotelID   string         `json:"hotel_id"`
	Reviews   []Review       `json:"reviews"`
	Outcomes  []FetchOutcome `json:"outcomes"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Failed reports whether every configured source failed.
func (r *AggregationResult) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status != FetchFailed {
			return false
		}
	}
	return len(r.Outcomes) > 0
}

// SourceStats aggregates one source's contribution. Averages are nil
// when the source contributed zero reviews so a missing source never
// reads as a zero-rated one.
type SourceStats struct {
	Count        int      `json:"count"`
	AvgRating    *float64 `json:"average_rating,omitempty"`
	AvgSentiment *float64 `json:"average_sentiment,omitempty"`
}

// TrendPoint is one month of the time trend. Period is "YYYY-MM".
type TrendPoint struct {
	Period       string  `json:"period"`
	AvgRating    float64 `json:"average_rating"`
	AvgSentiment float64 `json:"average_sentiment"`
	Count        int     `json:"count"`
}

// RatingBucketUnknown is the bucket for reviews whose source supplied
// no rating; keeping them in the distribution keeps bucket counts
// summing to TotalCount.
const RatingBucketUnknown = -1

// StatsRollup is the pure aggregate over an analyzed review set.
type StatsRollup struct {
	TotalCount   int      `json:"total_count"`
	AvgRating    *float64 `json:"average_rating,omitempty"`
	AvgSentiment *float64 `json:"average_sentiment,omitempty"`

	EarliestAt *time.Time `json:"earliest_at,omitempty"`
	LatestAt   *time.Time `json:"latest_at,omitempty"`

	// RatingDistribution maps integer star buckets (0–5, plus
	// RatingBucketUnknown) to counts. Bucket counts sum to TotalCount.
	RatingDistribution map[int]int `json:"rating_distribution"`

	// SentimentDistribution counts sum to TotalCount.
	SentimentDistribution map[SentimentLabel]int `json:"sentiment_distribution"`

	// PerSource covers every configured source, including the ones
	// with zero reviews.
	PerSource map[Source]SourceStats `json:"per_source_stats"`

	TopKeywords      []Keyword `json:"top_keywords"`
	PositiveKeywords []Keyword `json:"top_keywords_positive"`
	NegativeKeywords []Keyword `json:"top_keywords_negative"`

	// TimeTrend is ordered by period ascending; reviews with unknown
	// timestamps are excluded here but counted everywhere else.
	TimeTrend []TrendPoint `json:"time_trend"`
}

// AnalysisResult wraps a review set with sentiment and keywords
// populated, the stats rollup, and the per-source outcomes for the
// status panel. Immutable; consumed only by report assembly and the
// API layer.
type AnalysisResult struct {
	RunID      string         `json:"run_id"`
	HotelID    string         `json:"hotel_id"`
	Reviews    []Review       `json:"reviews"`
	Outcomes   []FetchOutcome `json:"outcomes"`
	Stats      StatsRollup    `json:"stats"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
	Elapsed    time.Duration  `json:"elapsed"`
}
