// Package client provides the HTTP source for the article feed. It speaks the
// Spaceflight News style collection API (limit/offset query, count plus
// results body) and optionally keeps responses in a redis cache.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/astronews/pkg/cache"
	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/pagination"
	"github.com/Sternrassler/astronews/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public Spaceflight News API.
	DefaultBaseURL = "https://api.spaceflightnewsapi.net/v4"

	// DefaultUserAgent identifies the client to the API.
	DefaultUserAgent = "astronews/0.1.0"

	// articlesPath is the collection endpoint relative to the base URL.
	articlesPath = "articles/"

	// maxErrorBody bounds how much of an error body ends up in messages.
	maxErrorBody = 512
)

// Prometheus metrics for source requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astronews_source_requests_total",
		Help: "Total news source requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "astronews_source_request_duration_seconds",
		Help:    "News source request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astronews_source_errors_total",
		Help: "Total news source errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without the collection path
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout for a single HTTP request
	Timeout time.Duration

	// Redis enables the response cache and shares rate limit state
	// between processes when set
	Redis *redis.Client
}

// DefaultConfig returns a configuration for the public API without cache.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Client fetches article pages from the news API.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	limiter    *ratelimit.Tracker
	endpoint   *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	endpoint, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	endpoint = endpoint.JoinPath(articlesPath)

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   endpoint,
		config:     cfg,
		logger:     log.With().Str("component", "news-client").Logger(),
	}
	c.limiter = ratelimit.NewTracker(cfg.Redis, log.With().Str("component", "rate-limit").Logger())

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Fetch implements pagination.Source. It requests limit articles starting at
// offset and decodes the count/results body.
func (c *Client) Fetch(ctx context.Context, offset, limit int) (pagination.Batch, error) {
	u := *c.endpoint
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return pagination.Batch{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return pagination.Batch{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Int("offset", offset).
			Msg("News source request error")

		return pagination.Batch{}, &SourceError{
			Class:      class,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Status, body),
		}
	}

	batch, err := decodeBatch(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		return pagination.Batch{}, &SourceError{
			Class:      ErrorClassMalformed,
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return batch, nil
}

// Do performs an HTTP request with caching and conditional revalidation.
// Non-2xx responses are returned to the caller. Errors are transport failures
// or a local refusal while the source's rate limit is in force.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	key := cache.Key{Endpoint: req.URL.Path, Query: req.URL.Query()}

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Cache lookup
	var cached *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
	}

	// Step 2: Conditional request on cache hit
	if cache.CanRevalidate(cached) {
		cache.ApplyConditional(req, cached)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("key", key.String()).
			Str("etag", cached.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 3: Refuse locally while the source throttles us
	allowed, wait, err := c.limiter.Allow(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Rate limit check failed - sending request")
	}
	if !allowed {
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		requestsTotal.WithLabelValues("rate_limited").Inc()
		return nil, &SourceError{
			Class:      ErrorClassRateLimit,
			StatusCode: http.StatusTooManyRequests,
			Message:    fmt.Sprintf("rate limited, try again in %s", wait.Round(time.Second)),
		}
	}

	// Step 4: Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, &SourceError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.limiter.Update(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
	}

	// Step 5: 304 Not Modified serves the cached body
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()

		if raw := resp.Header.Get("Expires"); raw != "" {
			if expires, err := http.ParseTime(raw); err == nil {
				if err := c.cache.Extend(ctx, key, expires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to extend cache entry")
				}
			}
		}

		c.logger.Debug().Str("key", key.String()).Msg("304 Not Modified - using cache")
		return cache.ToResponse(cached), nil
	}

	// Step 6: Store successful responses
	if resp.StatusCode == http.StatusOK && c.cache != nil {
		entry, err := cache.FromResponse(resp)
		if err != nil {
			resp.Body.Close()
			return nil, &SourceError{Class: ErrorClassNetwork, StatusCode: resp.StatusCode, Message: "read body", Err: err}
		}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// Invalidate implements feed.Invalidator by dropping every cached page.
func (c *Client) Invalidate(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}

	removed, err := c.cache.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge response cache: %w", err)
	}

	c.logger.Debug().Int("keys", removed).Msg("Invalidated cached pages")
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// wireArticle is the API representation of an article.
type wireArticle struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	NewsSite    string `json:"news_site"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

// wirePage is the API representation of a collection page. Pointer fields
// distinguish absent from empty.
type wirePage struct {
	Count   *int           `json:"count"`
	Results *[]wireArticle `json:"results"`
}

func decodeBatch(r io.Reader) (pagination.Batch, error) {
	var page wirePage
	if err := json.NewDecoder(r).Decode(&page); err != nil {
		return pagination.Batch{}, fmt.Errorf("decode body: %w", err)
	}
	if page.Count == nil {
		return pagination.Batch{}, fmt.Errorf("missing count")
	}
	if page.Results == nil {
		return pagination.Batch{}, fmt.Errorf("missing results")
	}

	articles := make([]feed.Article, 0, len(*page.Results))
	for i, w := range *page.Results {
		if w.ID == 0 {
			return pagination.Batch{}, fmt.Errorf("result %d has no id", i)
		}

		a := feed.Article{
			ID:      feed.Identifier(strconv.FormatInt(w.ID, 10)),
			Title:   w.Title,
			Summary: w.Summary,
			Image:   w.ImageURL,
			Source:  w.NewsSite,
			URL:     w.URL,
		}
		if w.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, w.PublishedAt); err == nil {
				a.PublishedAt = t
			}
		}
		articles = append(articles, a)
	}

	return pagination.Batch{Articles: articles, Total: *page.Count}, nil
}

func errorMessage(status string, body []byte) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}
	return status
}
