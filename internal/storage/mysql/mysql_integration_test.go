//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"ota_reviews/internal/domain"
	mysqlrepo "ota_reviews/internal/storage/mysql"
)

// ---------- small helpers ----------
func pfloat(f float64) *float64 { return &f }
func ptime(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestRepo_MySQL_UpsertLogAndList(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=ota_reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "ota_reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	posted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reviews := []domain.Review{
		{
			ID: "fp-aaa", HotelID: "H1", Source: domain.SourceRakuten,
			Text: "部屋が清潔で快適でした", Rating: pfloat(4.5), PostedAt: ptime(posted),
			SentimentScore: pfloat(0.25), SentimentLabel: domain.SentimentPositive, Confidence: pfloat(0.75),
			Keywords: []domain.Keyword{{Term: "清潔", Count: 1, Weight: 1.0}},
		},
		{
			ID: "fp-bbb", HotelID: "H1", Source: domain.SourceBooking,
			Text: "staff was unhelpful", Rating: pfloat(1.5),
			SentimentScore: pfloat(-0.25), SentimentLabel: domain.SentimentNegative, Confidence: pfloat(0.75),
		},
	}
	if err := repo.UpsertReviews(ctx, reviews); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}

	// Upsert again: must be idempotent, not duplicate.
	if err := repo.UpsertReviews(ctx, reviews); err != nil {
		t.Fatalf("UpsertReviews (repeat): %v", err)
	}

	res := &domain.AggregationResult{
		RunID:     "11111111-2222-3333-4444-555555555555",
		HotelID:   "H1",
		Reviews:   reviews,
		FetchedAt: time.Now().UTC(),
		Outcomes: []domain.FetchOutcome{
			{Source: domain.SourceRakuten, Status: domain.FetchSuccess, Count: 1, Elapsed: 120 * time.Millisecond},
			{Source: domain.SourceBooking, Status: domain.FetchSuccess, Count: 1, Elapsed: 340 * time.Millisecond},
			{Source: domain.SourceJalan, Status: domain.FetchFailed,
				Err: domain.NewSourceError(domain.SourceJalan, domain.ErrKindAuthFailed, nil)},
		},
	}
	if err := repo.LogRun(ctx, res); err != nil {
		t.Fatalf("LogRun: %v", err)
	}

	page, err := repo.ListReviews(ctx, "H1", domain.PageQuery{Limit: 10, Sort: "-posted_at"})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(page.Items))
	}
	// Known timestamp sorts before unknown.
	if page.Items[0].ID != "fp-aaa" || page.Items[1].ID != "fp-bbb" {
		t.Fatalf("unexpected order: %s, %s", page.Items[0].ID, page.Items[1].ID)
	}
	first := page.Items[0]
	if first.PostedAt == nil || !first.PostedAt.Equal(posted) {
		t.Fatalf("posted_at roundtrip failed: %+v", first.PostedAt)
	}
	if first.SentimentLabel != domain.SentimentPositive {
		t.Fatalf("sentiment label roundtrip failed: %s", first.SentimentLabel)
	}
	if len(first.Keywords) != 1 || first.Keywords[0].Term != "清潔" {
		t.Fatalf("keywords roundtrip failed: %+v", first.Keywords)
	}

	// A hotel with no rows reads as not found.
	if _, err := repo.ListReviews(ctx, "NOPE", domain.PageQuery{Limit: 10}); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM run_outcomes WHERE run_id = ?`, res.RunID).Scan(&cnt); err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if cnt != 3 {
		t.Fatalf("expected 3 outcome rows, got %d", cnt)
	}
}
