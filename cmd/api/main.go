package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"ota_reviews/internal/adapters/excel"
	server "ota_reviews/internal/adapters/http_server"
	"ota_reviews/internal/adapters/observability"
	"ota_reviews/internal/adapters/ota"
	redisad "ota_reviews/internal/adapters/redis"
	"ota_reviews/internal/app"
	"ota_reviews/internal/shared"
	mysqlrepo "ota_reviews/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	clients := ota.NewRegistry(cfg)

	agg := app.NewAggregator(clients, cfg.Workers, cfg.SourceTimeout, cache, cfg.CacheTTL)
	pipe := app.NewPipeline(agg, app.NewSentimentAnalyzer(), app.NewKeywordExtractor(), repo).
		WithResultCache(cache, cfg.CacheTTL)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	sink := excel.NewWriter(cfg.OutputDir)

	// http
	srv := server.New(cfg.RunDeadline)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		P:    pipe,
		A:    app.NewReportAssembler(app.NewKeywordExtractor()),
		Q:    q,
		Sink: sink,
		Cfg:  cfg,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Int("sources", len(clients)).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
