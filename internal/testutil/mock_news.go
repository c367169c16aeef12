// Package testutil provides testing utilities for the astronews client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// ArticlesPath is the collection endpoint served by MockNews.
const ArticlesPath = "/articles/"

// MockResponse defines a canned response for the articles endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockArticle is the wire shape of a single article.
type MockArticle struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	NewsSite    string `json:"news_site"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

type articlesResponse struct {
	Count   int           `json:"count"`
	Results []MockArticle `json:"results"`
}

// MockNews is a news API serving a fixed collection by limit and offset.
// Responses carry an ETag derived from the collection version and the
// requested window, and answer matching conditional requests with 304.
type MockNews struct {
	server *httptest.Server
	mu     sync.RWMutex

	articles []MockArticle
	version  int
	delay    time.Duration
	queued   []MockResponse

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	Offsets           []int
}

// NewMockNews creates a mock news server with total generated articles.
func NewMockNews(total int) *MockNews {
	mock := &MockNews{articles: GenerateArticles(1, total)}

	mux := http.NewServeMux()
	mux.HandleFunc(ArticlesPath, mock.handleArticles)
	mock.server = httptest.NewServer(mux)

	return mock
}

// GenerateArticles returns n articles with ids starting at first.
func GenerateArticles(first, n int) []MockArticle {
	out := make([]MockArticle, 0, n)
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for id := first; id < first+n; id++ {
		out = append(out, MockArticle{
			ID:          id,
			Title:       fmt.Sprintf("Launch report %d", id),
			URL:         fmt.Sprintf("https://news.example/articles/%d", id),
			ImageURL:    fmt.Sprintf("https://news.example/images/%d.jpg", id),
			NewsSite:    "Example Space",
			Summary:     fmt.Sprintf("Summary of report %d.", id),
			PublishedAt: published.Add(-time.Duration(id) * time.Hour).Format(time.RFC3339),
		})
	}
	return out
}

// URL returns the mock server URL.
func (m *MockNews) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNews) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockNews) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.Offsets = nil
}

// SetArticles replaces the collection and bumps its version so previously
// issued ETags no longer match.
func (m *MockNews) SetArticles(articles []MockArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = articles
	m.version++
}

// Prepend inserts new articles at the head of the collection, shifting every
// later offset. Used to reproduce offset drift.
func (m *MockNews) Prepend(articles ...MockArticle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = append(append([]MockArticle{}, articles...), m.articles...)
	m.version++
}

// SetDelay delays every response.
func (m *MockNews) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Enqueue makes the next requests return the given responses in order
// before falling back to the collection.
func (m *MockNews) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, responses...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNews) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockNews) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetOffsets returns the requested offsets in arrival order.
func (m *MockNews) GetOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.Offsets...)
}

func (m *MockNews) handleArticles(w http.ResponseWriter, r *http.Request) {
	limit, errLimit := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, errOffset := strconv.Atoi(r.URL.Query().Get("offset"))

	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" {
		m.ConditionalCount++
	}
	if errOffset == nil {
		m.Offsets = append(m.Offsets, offset)
	}
	delay := m.delay
	var canned *MockResponse
	if len(m.queued) > 0 {
		canned = &m.queued[0]
		m.queued = m.queued[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if canned != nil {
		writeCanned(w, *canned)
		return
	}

	if errLimit != nil || errOffset != nil || limit <= 0 || offset < 0 {
		http.Error(w, `{"detail": "invalid limit or offset"}`, http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	total := len(m.articles)
	start := min(offset, total)
	end := min(offset+limit, total)
	body := articlesResponse{Count: total, Results: append([]MockArticle{}, m.articles[start:end]...)}
	etag := fmt.Sprintf(`"v%d-%d-%d"`, m.version, offset, limit)
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func writeCanned(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
		Headers: map[string]string{
			"Retry-After":  "30",
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewMalformedResponse creates a 200 response whose body lacks the results field.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 3}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
