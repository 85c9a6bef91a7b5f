package ota

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"ota_reviews/internal/domain"
	"ota_reviews/internal/shared"
)

const defaultPageSize = 100

// client is one OTA feed. The five platforms share the transport and
// the mapper; they differ in URL shape, auth placement, and where the
// review array sits in the payload.
type client struct {
	*httpClient
	build    func(base, hotelID string, p domain.FetchParams) string
	envelope []string
	unwrap   string // per-element wrapper key, "" when the array is flat
}

var _ domain.SourceClient = (*client)(nil)

func (c *client) Source() domain.Source { return c.src }

func (c *client) Fetch(ctx context.Context, hotelID string, p domain.FetchParams) ([]domain.RawRecord, error) {
	var payload any
	if err := c.getJSON(ctx, c.build(c.base, hotelID, p), &payload); err != nil {
		return nil, err
	}

	items := extractRecords(payload, c.envelope...)
	out := make([]domain.RawRecord, 0, len(items))
	for _, it := range items {
		if c.unwrap != "" {
			inner, ok := it[c.unwrap].(map[string]any)
			if !ok {
				continue
			}
			it = inner
		}
		rec := mapRecord(c.src, it)
		if tooOld(rec, p.Since) {
			continue
		}
		out = append(out, rec)
		if p.MaxResults > 0 && len(out) >= p.MaxResults {
			break
		}
	}
	return out, nil
}

// tooOld enforces the Since lower bound locally. Not every platform
// accepts a date parameter, and the ones that do are not trusted to
// honor it. Records with an unparseable date pass through; the
// normalizer decides what an unknown timestamp means.
func tooOld(rec domain.RawRecord, since *time.Time) bool {
	if since == nil {
		return false
	}
	ts := domain.ParsePostedAt(rec.PostedAt)
	return ts != nil && ts.Before(*since)
}

func pageSize(p domain.FetchParams) int {
	if p.MaxResults > 0 {
		return p.MaxResults
	}
	return defaultPageSize
}

// NewRakuten talks to the Rakuten Travel review API. Rakuten
// authenticates with an applicationId query parameter, so the key
// stays out of the shared header path.
func NewRakuten(conf shared.SourceConfig, rps int) domain.SourceClient {
	return &client{
		httpClient: newHTTPClient(domain.SourceRakuten, conf.BaseURL, "", rps),
		build: func(base, hotelID string, p domain.FetchParams) string {
			return fmt.Sprintf("%s/HotelReview/20170426?applicationId=%s&hotelNo=%s&hits=%d&format=json",
				base, url.QueryEscape(conf.APIKey), url.QueryEscape(hotelID), pageSize(p))
		},
		envelope: []string{"hotelReviews", "reviews"},
		unwrap:   "hotelReviewInfo",
	}
}

func NewJalan(conf shared.SourceConfig, rps int) domain.SourceClient {
	return &client{
		httpClient: newHTTPClient(domain.SourceJalan, conf.BaseURL, conf.APIKey, rps),
		build: func(base, hotelID string, p domain.FetchParams) string {
			return fmt.Sprintf("%s/HotelReviewSearch?hotel_id=%s&count=%d&xml_ptn=2",
				base, url.QueryEscape(hotelID), pageSize(p))
		},
		envelope: []string{"reviews", "review", "results.reviews"},
	}
}

func NewBooking(conf shared.SourceConfig, rps int) domain.SourceClient {
	return &client{
		httpClient: newHTTPClient(domain.SourceBooking, conf.BaseURL, conf.APIKey, rps),
		build: func(base, hotelID string, p domain.FetchParams) string {
			u := fmt.Sprintf("%s/reviews?hotel_ids=%s&rows=%d",
				base, url.QueryEscape(hotelID), pageSize(p))
			if p.Since != nil {
				u += "&from_date=" + p.Since.UTC().Format("2006-01-02")
			}
			return u
		},
		envelope: []string{"result", "reviews"},
	}
}

func NewExpedia(conf shared.SourceConfig, rps int) domain.SourceClient {
	return &client{
		httpClient: newHTTPClient(domain.SourceExpedia, conf.BaseURL, conf.APIKey, rps),
		build: func(base, hotelID string, p domain.FetchParams) string {
			return fmt.Sprintf("%s/properties/%s/reviews?limit=%d",
				base, url.QueryEscape(hotelID), pageSize(p))
		},
		envelope: []string{"reviews", "content.reviews"},
	}
}

func NewAgoda(conf shared.SourceConfig, rps int) domain.SourceClient {
	return &client{
		httpClient: newHTTPClient(domain.SourceAgoda, conf.BaseURL, conf.APIKey, rps),
		build: func(base, hotelID string, p domain.FetchParams) string {
			u := fmt.Sprintf("%s/hotels/%s/reviews?limit=%d",
				base, url.QueryEscape(hotelID), pageSize(p))
			if p.Since != nil {
				u += "&since=" + p.Since.UTC().Format("2006-01-02")
			}
			return u
		},
		envelope: []string{"comments", "reviews"},
	}
}

// NewRegistry builds a client per enabled source. Disabled sources get
// no entry; the aggregator reports a requested-but-missing source as a
// failed outcome rather than silently skipping it.
func NewRegistry(cfg shared.Config) map[domain.Source]domain.SourceClient {
	ctors := map[domain.Source]func(shared.SourceConfig, int) domain.SourceClient{
		domain.SourceRakuten: NewRakuten,
		domain.SourceJalan:   NewJalan,
		domain.SourceBooking: NewBooking,
		domain.SourceExpedia: NewExpedia,
		domain.SourceAgoda:   NewAgoda,
	}
	reg := make(map[domain.Source]domain.SourceClient, len(cfg.SourceConfs))
	for src, conf := range cfg.SourceConfs {
		if !conf.Enabled {
			continue
		}
		reg[src] = ctors[src](conf, cfg.SourceRPS)
	}
	return reg
}
