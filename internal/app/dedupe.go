package app

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"ota_reviews/internal/domain"
)

var collapseWS = regexp.MustCompile(`\s+`)

// canonicalText reduces a review body to the form used for
// fingerprinting: NFKC, lower-cased, whitespace collapsed. Stable
// across re-fetches that differ only in encoding or spacing.
func canonicalText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.TrimSpace(collapseWS.ReplaceAllString(s, " "))
}

// ReviewFingerprint derives the dedup key for a normalized review: a
// content hash of the canonical text, combined with the calendar day
// when the posting time is known, text alone when it is not. A
// verbatim re-fetch of an undated review still collapses, while two
// identically worded reviews posted months apart do not.
func ReviewFingerprint(rv domain.Review) string {
	key := canonicalText(rv.Text)
	if rv.PostedAt != nil {
		key += "|" + rv.PostedAt.UTC().Format("2006-01-02")
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Dedupe collapses records that fingerprint to the same underlying
// review and assigns each survivor its fingerprint as ID. Merge policy
// when two raw entries collide: prefer the entry with a known
// timestamp, then the one with richer (longer) text; the surviving
// record is otherwise unchanged. Output preserves first-seen order and
// is never larger than the input. Idempotent: running it on its own
// output is a no-op.
func Dedupe(in []domain.Review) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	index := make(map[string]int, len(in))
	for _, rv := range in {
		fp := ReviewFingerprint(rv)
		if at, ok := index[fp]; ok {
			if preferOver(rv, out[at]) {
				rv.ID = fp
				out[at] = rv
			}
			continue
		}
		rv.ID = fp
		index[fp] = len(out)
		out = append(out, rv)
	}
	return out
}

// preferOver reports whether candidate should replace incumbent.
func preferOver(candidate, incumbent domain.Review) bool {
	if (candidate.PostedAt != nil) != (incumbent.PostedAt != nil) {
		return candidate.PostedAt != nil
	}
	return len(candidate.Text) > len(incumbent.Text)
}
