package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultTTL applies when a response carries no usable Expires header.
const DefaultTTL = 5 * time.Minute

// FromResponse builds an entry from resp. The body is read fully and
// replaced so the caller can still consume it.
func FromResponse(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Body:       body,
		ETag:       resp.Header.Get("ETag"),
		Expires:    expiresAt(resp.Header, now),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		StoredAt:   now,
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}

	return entry, nil
}

// ToResponse rebuilds an HTTP response from a cached entry.
func ToResponse(entry *Entry) *http.Response {
	headers := entry.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("X-Cache", "HIT")

	return &http.Response{
		Status:        strconv.Itoa(entry.StatusCode) + " " + http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
	}
}

// expiresAt reads the Expires header. Missing or unparsable values fall back
// to DefaultTTL; past values yield now.
func expiresAt(headers http.Header, now time.Time) time.Time {
	raw := headers.Get("Expires")
	if raw == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(raw)
	if err != nil {
		return now.Add(DefaultTTL)
	}

	if expires.Before(now) {
		return now
	}
	return expires
}

// CanRevalidate reports whether entry carries a validator.
func CanRevalidate(entry *Entry) bool {
	return entry != nil && (entry.ETag != "" || !entry.LastModified.IsZero())
}

// ApplyConditional sets If-None-Match, or If-Modified-Since when the entry
// has no ETag.
func ApplyConditional(req *http.Request, entry *Entry) {
	if req == nil || entry == nil {
		return
	}

	switch {
	case entry.ETag != "":
		req.Header.Set("If-None-Match", entry.ETag)
	case !entry.LastModified.IsZero():
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
