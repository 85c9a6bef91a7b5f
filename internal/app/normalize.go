package app

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"ota_reviews/internal/domain"
)

// NormalizeRecords converts raw per-source records into canonical
// reviews, leaving sentiment and keywords unset. Records that carry
// neither a rating nor any text cannot be used by any downstream stage
// and are dropped and counted instead of propagated as errors.
func NormalizeRecords(hotelID string, recs []domain.RawRecord) ([]domain.Review, int) {
	out := make([]domain.Review, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		text := strings.TrimSpace(norm.NFKC.String(rec.Text))
		if text == "" && rec.Rating == nil {
			dropped++
			continue
		}
		rv := domain.Review{
			Source:   rec.Source,
			HotelID:  hotelID,
			Title:    strings.TrimSpace(norm.NFKC.String(rec.Title)),
			Text:     text,
			Reviewer: strings.TrimSpace(rec.Reviewer),
			TripType: strings.TrimSpace(rec.TripType),
			Lang:     strings.ToLower(strings.TrimSpace(rec.Lang)),
			Rating:   normalizeRating(rec.Source, rec.Rating),
			PostedAt: domain.ParsePostedAt(rec.PostedAt),
		}
		out = append(out, rv)
	}
	return out, dropped
}

// normalizeRating converts a native-scale rating to the common 0–5
// scale, clamping out-of-range values instead of rejecting the record.
func normalizeRating(src domain.Source, r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r * 5 / src.NativeScale()
	if v < 0 {
		v = 0
	}
	if v > 5 {
		v = 5
	}
	return &v
}

