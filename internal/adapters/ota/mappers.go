package ota

import (
	"strconv"
	"strings"
	"time"

	"ota_reviews/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Each OTA names the same fields differently; the registry lists the
// spellings seen across the five feeds so one mapper serves them all.
var recordAliases = map[string][]string{
	"source_id": {"id", "review_id", "reviewId", "commentId"},
	"title":     {"title", "review_title", "headline", "summary"},
	"text":      {"text", "review", "comment", "content", "body", "reviewComment", "commentText"},
	"rating":    {"rating", "rate", "score", "rating.value", "average_score", "reviewAverage", "overall_score"},
	"posted_at": {"posted_at", "date", "review_date", "created_at", "reviewDate", "postDate", "stay_date"},
	"reviewer":  {"reviewer", "author", "name", "user_name", "userName", "reviewer.name"},
	"trip_type": {"trip_type", "travel_type", "traveler_type", "purpose", "stay_purpose"},
	"lang":      {"lang", "language", "languagecode", "language_code", "locale"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstAlias: first non-empty string for a named alias set. Numeric
// values are rendered (source ids come as numbers on some feeds).
func firstAlias(m map[string]any, key string) string {
	for _, p := range recordAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

/********** record mapper **********/

// mapRecord translates one raw feed object. The rating keeps the
// source's native scale and posted_at stays an unparsed string;
// normalization owns both conversions.
func mapRecord(src domain.Source, m map[string]any) domain.RawRecord {
	rec := domain.RawRecord{
		Source:   src,
		SourceID: firstAlias(m, "source_id"),
		Title:    firstAlias(m, "title"),
		Text:     firstAlias(m, "text"),
		Rating:   getFloatFlexible(m, recordAliases["rating"]...),
		PostedAt: firstAlias(m, "posted_at"),
		Reviewer: firstAlias(m, "reviewer"),
		TripType: firstAlias(m, "trip_type"),
		Lang:     firstAlias(m, "lang"),
	}

	// A couple of feeds send the posting time as unix seconds.
	if rec.PostedAt == "" {
		for _, p := range recordAliases["posted_at"] {
			if f, ok := lookupAny(m, p).(float64); ok && f > 0 {
				rec.PostedAt = time.Unix(int64(f), 0).UTC().Format(time.RFC3339)
				break
			}
		}
	}
	return rec
}

// extractRecords finds the review array inside a feed payload. Feeds
// either return the array at the top level or nest it under one of the
// envelope paths.
func extractRecords(payload any, envelope ...string) []map[string]any {
	if arr, ok := payload.([]any); ok {
		return toMaps(arr)
	}
	m, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	for _, p := range envelope {
		if arr, ok := lookupAny(m, p).([]any); ok {
			return toMaps(arr)
		}
	}
	return nil
}

func toMaps(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
