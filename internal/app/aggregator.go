package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ota_reviews/internal/adapters/observability"
	"ota_reviews/internal/domain"
)

// Aggregator fans one fetch task out per configured source and joins
// the results into a single AggregationResult. One source failing
// never blocks the others; only a run where every source fails is an
// error at this layer.
type Aggregator struct {
	clients       map[domain.Source]domain.SourceClient
	cache         domain.Cache
	cacheTTL      time.Duration
	sem           *semaphore.Weighted
	sourceTimeout time.Duration
}

func NewAggregator(
	clients map[domain.Source]domain.SourceClient,
	workers int,
	sourceTimeout time.Duration,
	cache domain.Cache,
	cacheTTL time.Duration,
) *Aggregator {
	if workers <= 0 {
		workers = len(domain.AllSources)
	}
	if sourceTimeout <= 0 {
		sourceTimeout = 30 * time.Second
	}
	return &Aggregator{
		clients:       clients,
		cache:         cache,
		cacheTTL:      cacheTTL,
		sem:           semaphore.NewWeighted(int64(workers)),
		sourceTimeout: sourceTimeout,
	}
}

// Aggregate runs every requested source for the hotel. The returned
// FetchOutcome order is the request order regardless of which task
// finished first, so a run is reproducible modulo external data drift.
// A run-level deadline on ctx bounds the whole aggregation; a source
// still pending at expiry is marked failed without cancelling its
// siblings early.
func (a *Aggregator) Aggregate(ctx context.Context, hotelID string, sources []domain.Source, p domain.FetchParams) (*domain.AggregationResult, error) {
	outcomes := make([]domain.FetchOutcome, len(sources))
	perSource := make([][]domain.Review, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()

			if err := a.sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = failedOutcome(src, err, time.Since(start))
				return
			}
			defer a.sem.Release(1)

			client := a.clients[src]
			if client == nil {
				err := domain.NewSourceError(src, domain.ErrKindAuthFailed, errors.New("source not configured"))
				outcomes[i] = failedOutcome(src, err, time.Since(start))
				return
			}

			cctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			recs, err := a.fetchCached(cctx, client, hotelID, p)
			elapsed := time.Since(start)
			if err != nil {
				outcomes[i] = failedOutcome(src, err, elapsed)
				log.Warn().Str("source", string(src)).Str("hotel", hotelID).Err(err).Msg("source fetch failed")
				return
			}

			reviews, dropped := NormalizeRecords(hotelID, recs)
			perSource[i] = reviews
			status := domain.FetchSuccess
			if dropped > 0 {
				status = domain.FetchPartial
			}
			outcomes[i] = domain.FetchOutcome{
				Source:  src,
				Status:  status,
				Count:   len(reviews),
				Dropped: dropped,
				Elapsed: elapsed,
			}
			observability.ObserveFetch(string(src), string(status), elapsed)
		}()
	}
	wg.Wait()

	// Merge in configuration order; within a source, emission order.
	var merged []domain.Review
	for _, rs := range perSource {
		merged = append(merged, rs...)
	}
	merged = Dedupe(merged)

	res := &domain.AggregationResult{
		RunID:     uuid.NewString(),
		HotelID:   hotelID,
		Reviews:   merged,
		Outcomes:  outcomes,
		FetchedAt: time.Now().UTC(),
	}

	if res.Failed() {
		fail := &domain.TotalAggregationFailure{}
		for _, o := range outcomes {
			fail.Errors = append(fail.Errors, o.Err)
		}
		return nil, fail
	}

	log.Info().
		Str("run_id", res.RunID).
		Str("hotel", hotelID).
		Int("reviews", len(merged)).
		Int("sources", len(sources)).
		Msg("aggregation complete")
	return res, nil
}

// fetchCached serves a source fetch from cache when a fresh copy
// exists, otherwise calls the client and stores the result.
func (a *Aggregator) fetchCached(ctx context.Context, client domain.SourceClient, hotelID string, p domain.FetchParams) ([]domain.RawRecord, error) {
	if a.cache == nil {
		return client.Fetch(ctx, hotelID, p)
	}
	key := fetchCacheKey(client.Source(), hotelID, p)
	var cached []domain.RawRecord
	if ok, _ := a.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}
	recs, err := client.Fetch(ctx, hotelID, p)
	if err != nil {
		return nil, err
	}
	_ = a.cache.Set(ctx, key, recs, int(a.cacheTTL.Seconds()))
	return recs, nil
}

func fetchCacheKey(src domain.Source, hotelID string, p domain.FetchParams) string {
	since := "-"
	if p.Since != nil {
		since = p.Since.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("fetch:%s:%s:%d:%s", src, hotelID, p.MaxResults, since)
}

// failedOutcome wraps err as a SourceError when it is not one already.
// Timeouts and cancellations read as unreachable: transient from the
// run's point of view.
func failedOutcome(src domain.Source, err error, elapsed time.Duration) domain.FetchOutcome {
	var se *domain.SourceError
	if !errors.As(err, &se) {
		kind := domain.ErrKindUnreachable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("fetch timed out: %w", err)
		}
		se = domain.NewSourceError(src, kind, err)
	}
	observability.ObserveFetch(string(src), string(domain.FetchFailed), elapsed)
	return domain.FetchOutcome{Source: src, Status: domain.FetchFailed, Err: se, Elapsed: elapsed}
}
