package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"ota_reviews/internal/adapters/excel"
	"ota_reviews/internal/adapters/observability"
	"ota_reviews/internal/adapters/ota"
	redisad "ota_reviews/internal/adapters/redis"
	"ota_reviews/internal/app"
	"ota_reviews/internal/domain"
	"ota_reviews/internal/shared"
	mysqlrepo "ota_reviews/internal/storage/mysql"
)

// reporter runs the pipeline for every hotel in HOTEL_IDS and writes
// one workbook per hotel. Persistence is best-effort: a run with no
// database still produces its report.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if len(cfg.HotelIDs) == 0 {
		log.Fatal().Msg("HOTEL_IDS is empty; nothing to report on")
	}
	log.Info().
		Int("hotels", len(cfg.HotelIDs)).
		Int("workers", cfg.Workers).
		Int("sources", len(cfg.Sources)).
		Msg("reporter starting")

	var repo domain.ReviewRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Warn().Err(err).Msg("db unreachable; reporting without persistence")
		} else {
			repo = mysqlrepo.New(db)
			log.Info().Msg("db ping ok")
		}
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	clients := ota.NewRegistry(cfg)

	agg := app.NewAggregator(clients, cfg.Workers, cfg.SourceTimeout, cache, cfg.CacheTTL)
	pipe := app.NewPipeline(agg, app.NewSentimentAnalyzer(), app.NewKeywordExtractor(), repo)
	assembler := app.NewReportAssembler(app.NewKeywordExtractor())
	sink := excel.NewWriter(cfg.OutputDir)

	params := domain.FetchParams{MaxResults: cfg.MaxResults}
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, id := range cfg.HotelIDs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(hotelID string) {
			defer wg.Done()
			defer sem.Release(1)

			runCtx, cancel := context.WithTimeout(ctx, cfg.RunDeadline)
			defer cancel()

			res, err := pipe.Run(runCtx, hotelID, cfg.Sources, params)
			if err != nil {
				log.Warn().Str("hotel_id", hotelID).Err(err).Msg("run failed")
				return
			}
			path, err := sink.Write(runCtx, hotelID, assembler.Assemble(res))
			if err != nil {
				log.Warn().Str("hotel_id", hotelID).Err(err).Msg("workbook write failed")
				return
			}
			log.Info().
				Str("hotel_id", hotelID).
				Str("run_id", res.RunID).
				Int("reviews", res.Stats.TotalCount).
				Str("path", path).
				Msg("report ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("reporting completed")
}
