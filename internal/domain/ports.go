package domain

import "context"

// SourceClient is the per-OTA fetch capability. Implementations must
// return an empty slice (not an error) for zero results, and fail with
// a *SourceError so callers can tell transient from permanent faults.
type SourceClient interface {
	Source() Source
	Fetch(ctx context.Context, hotelID string, p FetchParams) ([]RawRecord, error)
}

// ReviewRepository persists canonical reviews and run outcomes.
type ReviewRepository interface {
	UpsertReviews(ctx context.Context, rs []Review) error
	LogRun(ctx context.Context, res *AggregationResult) error
	ListReviews(ctx context.Context, hotelID string, pg PageQuery) (ReviewsPage, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ReportSink materializes assembled sections into a file (or any other
// representation) and returns its location.
type ReportSink interface {
	Write(ctx context.Context, hotelID string, sections []Section) (string, error)
}

type PageQuery struct {
	Limit int
	Sort  string
}

type ReviewsPage struct {
	Items []Review `json:"items"`
}
