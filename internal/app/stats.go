package app

import (
	"math"
	"sort"
	"time"

	"ota_reviews/internal/domain"
)

// Rollup computes the aggregate statistics over an analyzed review
// set. Keyword fields are filled by the pipeline, which owns the
// extractor. sources must be the configured source list so every
// source appears in PerSource even with zero reviews.
func Rollup(reviews []domain.Review, sources []domain.Source) domain.StatsRollup {
	st := domain.StatsRollup{
		TotalCount:         len(reviews),
		RatingDistribution: make(map[int]int),
		SentimentDistribution: map[domain.SentimentLabel]int{
			domain.SentimentPositive: 0,
			domain.SentimentNeutral:  0,
			domain.SentimentNegative: 0,
		},
		PerSource: make(map[domain.Source]domain.SourceStats, len(sources)),
	}

	type acc struct {
		count          int
		ratingSum      float64
		ratingCount    int
		sentimentSum   float64
		sentimentCount int
	}
	bySource := make(map[domain.Source]*acc, len(sources))
	for _, src := range sources {
		bySource[src] = &acc{}
	}

	type trendAcc struct {
		ratingSum      float64
		ratingCount    int
		sentimentSum   float64
		sentimentCount int
		count          int
	}
	byPeriod := make(map[string]*trendAcc)

	var ratingSum float64
	var ratingCount int
	var sentimentSum float64
	var sentimentCount int
	var earliest, latest *time.Time

	for _, rv := range reviews {
		st.RatingDistribution[ratingBucket(rv.Rating)]++
		st.SentimentDistribution[rv.SentimentLabel]++

		sa := bySource[rv.Source]
		if sa == nil {
			// Review attributed to a source outside the configured
			// list; still track it so counts reconcile.
			sa = &acc{}
			bySource[rv.Source] = sa
		}
		sa.count++

		if rv.Rating != nil {
			ratingSum += *rv.Rating
			ratingCount++
			sa.ratingSum += *rv.Rating
			sa.ratingCount++
		}
		if rv.SentimentScore != nil {
			sentimentSum += *rv.SentimentScore
			sentimentCount++
			sa.sentimentSum += *rv.SentimentScore
			sa.sentimentCount++
		}

		if rv.PostedAt != nil {
			t := rv.PostedAt.UTC()
			if earliest == nil || t.Before(*earliest) {
				earliest = &t
			}
			if latest == nil || t.After(*latest) {
				latest = &t
			}
			period := t.Format("2006-01")
			ta := byPeriod[period]
			if ta == nil {
				ta = &trendAcc{}
				byPeriod[period] = ta
			}
			ta.count++
			if rv.Rating != nil {
				ta.ratingSum += *rv.Rating
				ta.ratingCount++
			}
			if rv.SentimentScore != nil {
				ta.sentimentSum += *rv.SentimentScore
				ta.sentimentCount++
			}
		}
	}

	st.AvgRating = avg(ratingSum, ratingCount)
	st.AvgSentiment = avg(sentimentSum, sentimentCount)
	st.EarliestAt = earliest
	st.LatestAt = latest

	for src, sa := range bySource {
		st.PerSource[src] = domain.SourceStats{
			Count:        sa.count,
			AvgRating:    avg(sa.ratingSum, sa.ratingCount),
			AvgSentiment: avg(sa.sentimentSum, sa.sentimentCount),
		}
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	st.TimeTrend = make([]domain.TrendPoint, 0, len(periods))
	for _, p := range periods {
		ta := byPeriod[p]
		pt := domain.TrendPoint{Period: p, Count: ta.count}
		if ta.ratingCount > 0 {
			pt.AvgRating = round3(ta.ratingSum / float64(ta.ratingCount))
		}
		if ta.sentimentCount > 0 {
			pt.AvgSentiment = round3(ta.sentimentSum / float64(ta.sentimentCount))
		}
		st.TimeTrend = append(st.TimeTrend, pt)
	}

	return st
}

// ratingBucket maps a normalized rating to its integer-star bucket.
// Unknown ratings land in RatingBucketUnknown so the distribution
// still sums to the review count.
func ratingBucket(r *float64) int {
	if r == nil {
		return domain.RatingBucketUnknown
	}
	b := int(math.Floor(*r))
	if b < 0 {
		b = 0
	}
	if b > 5 {
		b = 5
	}
	return b
}

func avg(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	v := round3(sum / float64(n))
	return &v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
