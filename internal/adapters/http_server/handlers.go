package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"ota_reviews/internal/app"
	"ota_reviews/internal/domain"
	"ota_reviews/internal/shared"
)

type Handlers struct {
	P    *app.Pipeline
	A    *app.ReportAssembler
	Q    *app.QueryService
	Sink domain.ReportSink
	Cfg  shared.Config
}

type problem struct {
	Type    string                `json:"type"`
	Title   string                `json:"title"`
	Status  int                   `json:"status"`
	Detail  string                `json:"detail,omitempty"`
	Sources []domain.FetchOutcome `json:"sources,omitempty"`
}

type reportResponse struct {
	RunID      string                `json:"run_id"`
	HotelID    string                `json:"hotel_id"`
	ReportPath string                `json:"report_path,omitempty"`
	Stats      domain.StatsRollup    `json:"stats"`
	Outcomes   []domain.FetchOutcome `json:"outcomes"`
	AnalyzedAt time.Time             `json:"analyzed_at"`
	ElapsedMS  int64                 `json:"elapsed_ms"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/hotels/{id}/report", h.runReport)
	s.mux.Get("/v1/hotels/{id}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, outcomes []domain.FetchOutcome) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Sources: outcomes}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// runReport runs the full pipeline for one hotel and, unless the
// caller asks for JSON only, writes the workbook. Query params:
// sources (CSV), max (per-source cap), since (YYYY-MM-DD), format
// ("json" skips the workbook).
func (h *Handlers) runReport(w http.ResponseWriter, r *http.Request) {
	hotelID := chi.URLParam(r, "id")
	if hotelID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "hotel id is required", nil)
		return
	}

	sources, err := parseSourcesParam(r.URL.Query().Get("sources"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid sources", err.Error(), nil)
		return
	}
	sources = h.Cfg.EnabledSources(sources)
	if len(sources) == 0 {
		writeProblem(w, http.StatusBadRequest, "No sources", "no enabled OTA source matches the request", nil)
		return
	}

	params := domain.FetchParams{MaxResults: h.Cfg.MaxResults}
	if ms := r.URL.Query().Get("max"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 || n > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid max", "max must be an integer between 1 and 1000", nil)
			return
		}
		params.MaxResults = n
	}
	if ss := r.URL.Query().Get("since"); ss != "" {
		t, err := time.Parse("2006-01-02", ss)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid since", "since must be YYYY-MM-DD", nil)
			return
		}
		params.Since = &t
	}

	res, err := h.P.Run(r.Context(), hotelID, sources, params)
	if err != nil {
		var total *domain.TotalAggregationFailure
		if errors.As(err, &total) {
			outs := make([]domain.FetchOutcome, 0, len(total.Errors))
			for _, se := range total.Errors {
				outs = append(outs, domain.FetchOutcome{Source: se.Source, Status: domain.FetchFailed, Err: se})
			}
			writeProblem(w, http.StatusBadGateway, "Aggregation Failed", "every requested source failed", outs)
			return
		}
		log.Error().Err(err).Str("hotel_id", hotelID).Msg("pipeline run failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "pipeline run failed", nil)
		return
	}

	resp := reportResponse{
		RunID:      res.RunID,
		HotelID:    res.HotelID,
		Stats:      res.Stats,
		Outcomes:   res.Outcomes,
		AnalyzedAt: res.AnalyzedAt,
		ElapsedMS:  res.Elapsed.Milliseconds(),
	}

	if r.URL.Query().Get("format") != "json" && h.Sink != nil {
		path, err := h.Sink.Write(r.Context(), hotelID, h.A.Assemble(res))
		if err != nil {
			log.Error().Err(err).Str("hotel_id", hotelID).Msg("workbook write failed")
			writeProblem(w, http.StatusInternalServerError, "Report Failed", "workbook could not be written", nil)
			return
		}
		resp.ReportPath = path
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write report response")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	hotelID := chi.URLParam(r, "id")
	if hotelID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "hotel id is required", nil)
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200", nil)
			return
		}
		limit = l
	}

	// Newest first; aligns with the index on (hotel_id, posted_at, id)
	page := domain.PageQuery{Limit: limit, Sort: "-posted_at"}
	out, err := h.Q.ListReviews(r.Context(), hotelID, page)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "reviews not found", nil)
		return
	}

	etag, body := calcETagAndBody(out)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

func parseSourcesParam(csv string) ([]domain.Source, error) {
	if csv == "" {
		return nil, nil
	}
	var out []domain.Source
	for _, part := range strings.Split(csv, ",") {
		s := domain.Source(strings.ToLower(strings.TrimSpace(part)))
		if !s.Valid() {
			return nil, errors.New("unknown source: " + string(s))
		}
		out = append(out, s)
	}
	return out, nil
}
