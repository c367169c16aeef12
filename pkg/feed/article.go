package feed

import "time"

// Identifier uniquely identifies an article across the whole feed.
type Identifier string

// Article is a single news item as rendered by the feed.
type Article struct {
	ID          Identifier `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Image       string     `json:"image,omitempty"`
	Source      string     `json:"source,omitempty"`
	URL         string     `json:"url"`
	PublishedAt time.Time  `json:"published_at,omitempty"`
}

// Page is one batch of articles returned by a single fetch.
type Page struct {
	// Offset is the cursor the page was requested with.
	Offset int `json:"offset"`

	// Articles holds the page's articles in source order. Pages stored by the
	// Controller only contain articles not seen earlier in the session.
	Articles []Article `json:"articles"`

	// NextOffset is Offset plus the number of articles the source returned.
	NextOffset int `json:"next_offset"`

	// Total is the collection size the source reported for this request.
	Total int `json:"total"`

	// Received is the raw article count before duplicate filtering.
	Received int `json:"received"`

	// Duplicates lists ids the source returned that were already in the feed.
	Duplicates []Identifier `json:"duplicates,omitempty"`
}
