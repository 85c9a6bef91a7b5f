package app

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ota_reviews/internal/adapters/observability"
	"ota_reviews/internal/domain"
)

// How many keyword/term slots each stage fills.
const (
	topKeywordsOverall     = 30
	topKeywordsPolarity    = 10
	perReviewKeywords      = 5
	overallKeywordsMinHits = 2
)

// Pipeline runs the whole ingestion-aggregation-analysis flow:
// Fetch → Normalize → Dedup → Analyze → Rollup. Strictly linear, no
// backward transitions; a re-run starts a fresh AggregationResult.
type Pipeline struct {
	agg       *Aggregator
	sentiment *SentimentAnalyzer
	keywords  *KeywordExtractor
	repo      domain.ReviewRepository

	resultCache domain.Cache
	resultTTL   time.Duration
}

// NewPipeline wires the stages. repo may be nil; persistence is then
// skipped.
func NewPipeline(agg *Aggregator, sa *SentimentAnalyzer, kw *KeywordExtractor, repo domain.ReviewRepository) *Pipeline {
	if sa == nil {
		sa = NewSentimentAnalyzer()
	}
	if kw == nil {
		kw = NewKeywordExtractor()
	}
	return &Pipeline{agg: agg, sentiment: sa, keywords: kw, repo: repo}
}

// WithResultCache caches whole analysis results keyed by hotel, source
// set, and fetch params, so back-to-back report requests skip the
// sources entirely. ttl <= 0 disables it.
func (p *Pipeline) WithResultCache(c domain.Cache, ttl time.Duration) *Pipeline {
	if c != nil && ttl > 0 {
		p.resultCache = c
		p.resultTTL = ttl
	}
	return p
}

// Run executes one pipeline invocation for the hotel. A run where at
// least one source delivered is a success, degraded or not; the
// per-source status travels in the result's Outcomes. Only a total
// aggregation failure (or an internal fault) comes back as an error,
// always wrapped in *domain.PipelineError.
func (p *Pipeline) Run(ctx context.Context, hotelID string, sources []domain.Source, params domain.FetchParams) (*domain.AnalysisResult, error) {
	started := time.Now()

	if p.resultCache != nil {
		var cached domain.AnalysisResult
		if ok, _ := p.resultCache.Get(ctx, resultCacheKey(hotelID, sources, params), &cached); ok {
			log.Debug().Str("run_id", cached.RunID).Str("hotel", hotelID).Msg("analysis result served from cache")
			return &cached, nil
		}
	}

	agg, err := p.stageAggregate(ctx, hotelID, sources, params)
	if err != nil {
		return nil, &domain.PipelineError{Stage: "aggregate", Err: err}
	}

	reviews := p.stageAnalyze(ctx, agg.Reviews)
	stats := p.stageRollup(reviews, sources)

	res := &domain.AnalysisResult{
		RunID:      agg.RunID,
		HotelID:    hotelID,
		Reviews:    reviews,
		Outcomes:   agg.Outcomes,
		Stats:      stats,
		AnalyzedAt: time.Now().UTC(),
		Elapsed:    time.Since(started),
	}

	p.persist(ctx, agg, reviews)

	if p.resultCache != nil {
		_ = p.resultCache.Set(ctx, resultCacheKey(hotelID, sources, params), res, int(p.resultTTL.Seconds()))
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("hotel", hotelID).
		Int("reviews", len(reviews)).
		Dur("elapsed", res.Elapsed).
		Msg("pipeline complete")
	return res, nil
}

func resultCacheKey(hotelID string, sources []domain.Source, p domain.FetchParams) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, string(s))
	}
	sort.Strings(names)
	since := "-"
	if p.Since != nil {
		since = p.Since.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("result:%s:%s:%d:%s", hotelID, strings.Join(names, ","), p.MaxResults, since)
}

func (p *Pipeline) stageAggregate(ctx context.Context, hotelID string, sources []domain.Source, params domain.FetchParams) (*domain.AggregationResult, error) {
	start := time.Now()
	res, err := p.agg.Aggregate(ctx, hotelID, sources, params)
	observability.ObserveStage("aggregate", err == nil, time.Since(start))
	return res, err
}

// stageAnalyze scores and tags every review. Each task owns its review
// exclusively, so scoring fans out across cores without locking.
func (p *Pipeline) stageAnalyze(ctx context.Context, in []domain.Review) []domain.Review {
	start := time.Now()
	out := make([]domain.Review, len(in))
	copy(out, in)

	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	var wg sync.WaitGroup
	for i := range out {
		// Once the run context dies the semaphore refuses acquisition.
		// Scoring is pure CPU work and every review must leave this
		// stage analyzed, so the remainder is finished inline.
		if err := sem.Acquire(ctx, 1); err != nil {
			p.score(&out[i])
			continue
		}
		wg.Add(1)
		go func(rv *domain.Review) {
			defer wg.Done()
			defer sem.Release(1)
			p.score(rv)
		}(&out[i])
	}
	wg.Wait()

	observability.ObserveStage("analyze", true, time.Since(start))
	return out
}

func (p *Pipeline) score(rv *domain.Review) {
	score, label, conf := p.sentiment.Score(rv.Text)
	rv.SentimentScore = &score
	rv.SentimentLabel = label
	rv.Confidence = &conf
	rv.Keywords = p.keywords.Extract([]string{rv.Text}, perReviewKeywords, 1)
}

func (p *Pipeline) stageRollup(reviews []domain.Review, sources []domain.Source) domain.StatsRollup {
	start := time.Now()
	st := Rollup(reviews, sources)

	texts := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		texts = append(texts, rv.Text)
	}
	st.TopKeywords = p.keywords.Extract(texts, topKeywordsOverall, overallKeywordsMinHits)
	st.PositiveKeywords = p.keywords.ExtractByLabel(reviews, domain.SentimentPositive, topKeywordsPolarity)
	st.NegativeKeywords = p.keywords.ExtractByLabel(reviews, domain.SentimentNegative, topKeywordsPolarity)

	observability.ObserveStage("rollup", true, time.Since(start))
	return st
}

// persist is best-effort: a storage hiccup degrades durability, not
// the run.
func (p *Pipeline) persist(ctx context.Context, agg *domain.AggregationResult, reviews []domain.Review) {
	if p.repo == nil {
		return
	}
	start := time.Now()
	ok := true
	if err := p.repo.UpsertReviews(ctx, reviews); err != nil {
		ok = false
		log.Warn().Str("run_id", agg.RunID).Err(err).Msg("persist reviews failed")
	}
	if err := p.repo.LogRun(ctx, agg); err != nil {
		ok = false
		log.Warn().Str("run_id", agg.RunID).Err(err).Msg("persist run log failed")
	}
	observability.ObserveStage("persist", ok, time.Since(start))
}
