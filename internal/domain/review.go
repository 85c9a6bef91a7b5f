package domain

import (
	"strings"
	"time"
)

// Source identifies an OTA platform. The set is closed and known at
// build time; adding a platform means a new constant plus a client.
type Source string

const (
	SourceRakuten Source = "rakuten"
	SourceJalan   Source = "jalan"
	SourceBooking Source = "booking"
	SourceExpedia Source = "expedia"
	SourceAgoda   Source = "agoda"
)

// AllSources lists every supported OTA in canonical order.
var AllSources = []Source{SourceRakuten, SourceJalan, SourceBooking, SourceExpedia, SourceAgoda}

func (s Source) Valid() bool {
	switch s {
	case SourceRakuten, SourceJalan, SourceBooking, SourceExpedia, SourceAgoda:
		return true
	}
	return false
}

// NativeScale returns the maximum of the rating scale the platform
// publishes. Ratings are converted to a common 0–5 scale downstream.
func (s Source) NativeScale() float64 {
	switch s {
	case SourceBooking, SourceAgoda:
		return 10
	default:
		return 5
	}
}

// RawRecord is one review as a source client emitted it, before
// normalization. Rating stays on the source's native scale and the
// posted-at value stays an unparsed string.
type RawRecord struct {
	Source   Source   `json:"source"`
	SourceID string   `json:"source_id,omitempty"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text"`
	Rating   *float64 `json:"rating,omitempty"`
	PostedAt string   `json:"posted_at,omitempty"`
	Reviewer string   `json:"reviewer,omitempty"`
	TripType string   `json:"trip_type,omitempty"`
	Lang     string   `json:"lang,omitempty"`
}

// Timestamp layouts seen across the five platforms. Anything else is
// treated as unknown rather than failing the record.
var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006年01月02日",
	"20060102",
}

// ParsePostedAt tries the known layouts and falls back to "unknown"
// (nil) so one bad date never sinks the whole record.
func ParsePostedAt(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Keyword is an extracted term with its frequency-derived weight.
type Keyword struct {
	Term   string  `json:"term"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

// Review is the canonical unit shared by every stage after
// normalization. ID is the dedup fingerprint, assigned once
// deduplication has run; sentiment and keyword fields are populated by
// the analysis stage and absent before it.
type Review struct {
	ID      string `json:"id"`
	Source  Source `json:"source"`
	HotelID string `json:"hotel_id"`

	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
	Reviewer string `json:"reviewer,omitempty"`
	TripType string `json:"trip_type,omitempty"`
	Lang     string `json:"lang,omitempty"`

	// Rating is normalized to 0–5. Nil means the source supplied none.
	Rating *float64 `json:"rating,omitempty"`

	// PostedAt is nil when the source supplied no usable timestamp.
	PostedAt *time.Time `json:"posted_at,omitempty"`

	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	SentimentLabel SentimentLabel `json:"sentiment_label,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`
	Keywords       []Keyword      `json:"keywords,omitempty"`
}

// FetchParams carries the options every source client recognizes.
type FetchParams struct {
	// MaxResults caps the number of records a source returns. Zero
	// means the source default.
	MaxResults int `json:"max_results,omitempty"`
	// Since is an optional lower bound on the review posting time.
	Since *time.Time `json:"since,omitempty"`
}
