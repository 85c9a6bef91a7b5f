package ota

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ota_reviews/internal/domain"
)

const maxAttempts = 4

// httpClient is the shared transport every OTA client embeds:
// client-side rate limiting, bounded retries with backoff for
// transient failures, and HTTP status mapping onto the SourceError
// taxonomy. Permanent failures (auth, malformed) are never retried.
type httpClient struct {
	src  domain.Source
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func newHTTPClient(src domain.Source, base, key string, rps int) *httpClient {
	if rps <= 0 {
		rps = 5
	}
	return &httpClient{
		src:  src,
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// getJSON performs a GET and decodes the body into out. Every failure
// comes back as a *domain.SourceError so the aggregator can tell
// transient from permanent without parsing messages.
func (c *httpClient) getJSON(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.NewSourceError(c.src, domain.ErrKindUnreachable, err)
	}

	var lastErr *domain.SourceError
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return domain.NewSourceError(c.src, domain.ErrKindMalformed, err)
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "ota-reviews/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.NewSourceError(c.src, domain.ErrKindUnreachable, ctx.Err())
			}
			lastErr = domain.NewSourceError(c.src, domain.ErrKindUnreachable, err)
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return domain.NewSourceError(c.src, domain.ErrKindMalformed, fmt.Errorf("decode response: %w", err))
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return domain.NewSourceError(c.src, domain.ErrKindAuthFailed, fmt.Errorf("status %d", resp.StatusCode))

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.NewSourceError(c.src, domain.ErrKindMalformed, fmt.Errorf("hotel not found"))

		case http.StatusTooManyRequests:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = domain.NewSourceError(c.src, domain.ErrKindRateLimited, fmt.Errorf("status 429"))
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			return lastErr

		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = domain.NewSourceError(c.src, domain.ErrKindUnreachable, fmt.Errorf("remote %d", resp.StatusCode))
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return domain.NewSourceError(c.src, domain.ErrKindMalformed,
				fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles each attempt (200ms, 400ms, 800ms...) with up to
// +50% jitter to avoid thundering herds across source tasks.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
