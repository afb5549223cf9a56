package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/contre95/musicdex/src/features/config"
	"github.com/contre95/musicdex/src/infra/monitoring"
	"golang.org/x/time/rate"
)

const userAgent = "musicdex/1.0 (https://github.com/contre95/musicdex)"

var (
	// ErrNotFound is returned when the provider has no match for the request.
	ErrNotFound = errors.New("metadata: not found")
	// ErrDisabled is returned by providers turned off in the configuration.
	ErrDisabled = errors.New("metadata: provider disabled")
)

// StatusError is returned for non retryable HTTP responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Cache is the read-through store used for provider responses.
type Cache interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
}

// httpClient is shared by every provider. It throttles requests with a
// token bucket and retries transport errors, 429 and 5xx responses.
type httpClient struct {
	provider string
	config   *config.Manager
	http     *http.Client
	limiter  *rate.Limiter
	cache    Cache
}

func newHTTPClient(provider string, cfg *config.Manager, rps float64, cache Cache) *httpClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &httpClient{
		provider: provider,
		config:   cfg,
		http:     &http.Client{Timeout: cfg.Get().HTTP.TimeoutDuration()},
		limiter:  rate.NewLimiter(limit, 1),
		cache:    cache,
	}
}

// getJSON fetches rawURL and decodes the body into out. When cacheKey is not
// empty the cache is consulted first and successful responses are stored.
func (c *httpClient) getJSON(ctx context.Context, rawURL string, header http.Header, cacheKey string, out any) error {
	if cacheKey != "" && c.cache != nil {
		key := c.provider + ":" + cacheKey
		found, err := c.cache.Get(key, out)
		if err != nil {
			slog.Warn("Cache read failed", "provider", c.provider, "error", err)
		} else if found {
			monitoring.ProviderRequests.WithLabelValues(c.provider, "cached").Inc()
			return nil
		}
	}

	body, err := c.fetch(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.provider, err)
	}

	if cacheKey != "" && c.cache != nil {
		if err := c.cache.Set(c.provider+":"+cacheKey, json.RawMessage(body)); err != nil {
			slog.Warn("Cache write failed", "provider", c.provider, "error", err)
		}
	}
	return nil
}

func (c *httpClient) fetch(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	httpCfg := c.config.Get().HTTP
	attempts := httpCfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, wait, err := c.do(ctx, rawURL, header)
		if err == nil {
			monitoring.ProviderRequests.WithLabelValues(c.provider, "ok").Inc()
			return body, nil
		}
		if !retryable(err) || ctx.Err() != nil {
			c.countFailure(err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		lastErr = err
		monitoring.ProviderRequests.WithLabelValues(c.provider, "retry").Inc()

		if attempt == attempts {
			break
		}
		if wait < httpCfg.RetryWaitDuration() {
			wait = httpCfg.RetryWaitDuration()
		}
		slog.Debug("Retrying provider request", "provider", c.provider, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	monitoring.ProviderRequests.WithLabelValues(c.provider, "error").Inc()
	return nil, fmt.Errorf("%s: giving up after %d attempts: %w", c.provider, attempts, lastErr)
}

// do performs a single request. The returned duration is the server's
// Retry-After hint, if any.
func (c *httpClient) do(ctx context.Context, rawURL string, header http.Header) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, 0, &transportError{err: err}
		}
		return body, 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, ErrNotFound
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, retryAfter(resp.Header.Get("Retry-After")), &StatusError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}
}

func (c *httpClient) countFailure(err error) {
	outcome := "error"
	if errors.Is(err, ErrNotFound) {
		outcome = "not_found"
	}
	monitoring.ProviderRequests.WithLabelValues(c.provider, outcome).Inc()
}

type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return false
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
