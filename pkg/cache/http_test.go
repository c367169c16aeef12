package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func newResponse(status int, headers http.Header, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     headers,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestFromResponse(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	lastMod := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	resp := newResponse(http.StatusOK, http.Header{
		"Expires":       {expires.Format(http.TimeFormat)},
		"Last-Modified": {lastMod.Format(http.TimeFormat)},
		"Etag":          {`"v1-0-9"`},
	}, `{"count": 0, "results": []}`)

	entry, err := FromResponse(resp)
	if err != nil {
		t.Fatalf("FromResponse() error = %v", err)
	}

	if entry.ETag != `"v1-0-9"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if !entry.Expires.Equal(expires) {
		t.Errorf("Expires = %v, want %v", entry.Expires, expires)
	}
	if !entry.LastModified.Equal(lastMod) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, lastMod)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", entry.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"count": 0, "results": []}` {
		t.Errorf("body not restored: %q", body)
	}
	if string(entry.Body) != string(body) {
		t.Errorf("entry body = %q", entry.Body)
	}
}

func TestFromResponse_Nil(t *testing.T) {
	if _, err := FromResponse(nil); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestExpiresAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		header string
		want   time.Time
	}{
		{"missing", "", now.Add(DefaultTTL)},
		{"unparsable", "tomorrow", now.Add(DefaultTTL)},
		{"past", now.Add(-time.Hour).Format(http.TimeFormat), now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Expires", tt.header)
			}
			if got := expiresAt(h, now); !got.Equal(tt.want) {
				t.Errorf("expiresAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToResponse(t *testing.T) {
	entry := &Entry{
		Body:       []byte(`{"count": 1}`),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/json"}},
	}

	resp := ToResponse(entry)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("missing X-Cache header")
	}
	if entry.Headers.Get("X-Cache") != "" {
		t.Error("entry headers were mutated")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"count": 1}` {
		t.Errorf("body = %q", body)
	}
}

func TestApplyConditional(t *testing.T) {
	lastMod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		entry        *Entry
		wantRevalid  bool
		wantETag     string
		wantModSince string
	}{
		{"nil entry", nil, false, "", ""},
		{"no validators", &Entry{}, false, "", ""},
		{"etag", &Entry{ETag: `"x"`, LastModified: lastMod}, true, `"x"`, ""},
		{"last modified", &Entry{LastModified: lastMod}, true, "", lastMod.Format(http.TimeFormat)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRevalidate(tt.entry); got != tt.wantRevalid {
				t.Errorf("CanRevalidate() = %v, want %v", got, tt.wantRevalid)
			}

			req, _ := http.NewRequest(http.MethodGet, "http://example.test/articles/", nil)
			ApplyConditional(req, tt.entry)

			if got := req.Header.Get("If-None-Match"); got != tt.wantETag {
				t.Errorf("If-None-Match = %q, want %q", got, tt.wantETag)
			}
			if got := req.Header.Get("If-Modified-Since"); got != tt.wantModSince {
				t.Errorf("If-Modified-Since = %q, want %q", got, tt.wantModSince)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	live := &Entry{Expires: time.Now().Add(time.Minute)}
	if live.IsExpired() || live.TTL() <= 0 {
		t.Errorf("live entry: expired=%v ttl=%v", live.IsExpired(), live.TTL())
	}

	dead := &Entry{Expires: time.Now().Add(-time.Minute)}
	if !dead.IsExpired() || dead.TTL() != 0 {
		t.Errorf("expired entry: expired=%v ttl=%v", dead.IsExpired(), dead.TTL())
	}
}
