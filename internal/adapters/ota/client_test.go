package ota_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ota_reviews/internal/adapters/ota"
	"ota_reviews/internal/domain"
	"ota_reviews/internal/shared"
)

func conf(base string) shared.SourceConfig {
	return shared.SourceConfig{BaseURL: base, APIKey: "test-key", Enabled: true}
}

func TestClient_Fetch_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []any{
					map[string]any{"review_id": "r1", "comment": "great stay", "average_score": 9.0, "date": "2024-03-01"},
				},
			})
		}
	}))
	defer ts.Close()

	cl := ota.NewBooking(conf(ts.URL), 100) // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.Fetch(ctx, "H1", domain.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].SourceID != "r1" || got[0].Text != "great stay" {
		t.Fatalf("unexpected record: %+v", got[0])
	}
	if got[0].Rating == nil || *got[0].Rating != 9.0 {
		t.Fatalf("rating should stay on the native scale: %+v", got[0].Rating)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Fetch_AuthFailedNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(401)
	}))
	defer ts.Close()

	cl := ota.NewExpedia(conf(ts.URL), 100)
	_, err := cl.Fetch(context.Background(), "H1", domain.FetchParams{})

	var se *domain.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *domain.SourceError, got %v", err)
	}
	if se.Kind != domain.ErrKindAuthFailed {
		t.Fatalf("expected auth_failed, got %s", se.Kind)
	}
	if se.Retryable() {
		t.Fatalf("auth failures must not be retryable")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single call for 401, got %d", n)
	}
}

func TestClient_Fetch_RateLimitedThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(429)
			return
		}
		w.WriteHeader(200)
		_ = json.NewEncoder(w).Encode(map[string]any{"reviews": []any{}})
	}))
	defer ts.Close()

	cl := ota.NewJalan(conf(ts.URL), 100)
	got, err := cl.Fetch(context.Background(), "H1", domain.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if atomic.LoadInt32(&hits) < 2 {
		t.Fatalf("expected the 429 to be retried, got %d calls", hits)
	}
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer ts.Close()

	cl := ota.NewAgoda(conf(ts.URL), 100)
	_, err := cl.Fetch(context.Background(), "H1", domain.FetchParams{})

	var se *domain.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *domain.SourceError, got %v", err)
	}
	if se.Kind != domain.ErrKindMalformed {
		t.Fatalf("expected malformed, got %s", se.Kind)
	}
}

func TestRakuten_UnwrapsEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("applicationId") != "test-key" {
			w.WriteHeader(401)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hotelReviews": []any{
				map[string]any{"hotelReviewInfo": map[string]any{
					"reviewComment": "部屋が清潔で快適でした",
					"reviewAverage": 4.5,
					"postDate":      "2024-03-01",
					"userName":      "taro",
				}},
			},
		})
	}))
	defer ts.Close()

	cl := ota.NewRakuten(conf(ts.URL), 100)
	got, err := cl.Fetch(context.Background(), "12345", domain.FetchParams{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Source != domain.SourceRakuten || r.Text != "部屋が清潔で快適でした" || r.Reviewer != "taro" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Rating == nil || *r.Rating != 4.5 {
		t.Fatalf("unexpected rating: %+v", r.Rating)
	}
	if r.PostedAt != "2024-03-01" {
		t.Fatalf("unexpected posted_at: %q", r.PostedAt)
	}
}

func TestClient_Fetch_SinceDropsOlderReviews(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reviews": []any{
				map[string]any{"review_id": "old", "comment": "dated stay", "date": "2019-01-01"},
				map[string]any{"review_id": "new", "comment": "recent stay", "date": "2024-06-15"},
				map[string]any{"review_id": "undated", "comment": "no date at all"},
			},
		})
	}))
	defer ts.Close()

	// Expedia's API takes no date parameter, so the bound must hold
	// client-side.
	cl := ota.NewExpedia(conf(ts.URL), 100)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := cl.Fetch(context.Background(), "H1", domain.FetchParams{Since: &since})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the 2019 review filtered out, got %d records", len(got))
	}
	for _, rec := range got {
		if rec.SourceID == "old" {
			t.Fatalf("review posted before the since bound was returned: %+v", rec)
		}
	}
	// Undated records are kept; dropping them here would silently lose
	// data the normalizer knows how to handle.
	if got[1].SourceID != "undated" {
		t.Fatalf("undated review should survive the bound: %+v", got[1])
	}
}

func TestClient_Fetch_MaxResultsCap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reviews": []any{
				map[string]any{"comment": "a"},
				map[string]any{"comment": "b"},
				map[string]any{"comment": "c"},
			},
		})
	}))
	defer ts.Close()

	cl := ota.NewExpedia(conf(ts.URL), 100)
	got, err := cl.Fetch(context.Background(), "H1", domain.FetchParams{MaxResults: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the cap to apply, got %d records", len(got))
	}
}
