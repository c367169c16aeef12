package cache

import (
	"net/url"
	"slices"
	"strings"
)

// KeyPrefix namespaces every key written by the manager.
const KeyPrefix = "astronews"

// Key identifies a cached response by request path and query.
type Key struct {
	// Endpoint is the request path (e.g. "/articles/")
	Endpoint string

	// Query holds the request query (e.g. limit and offset)
	Query url.Values
}

// String generates a deterministic key.
// Format: astronews:endpoint:name=value[,value]...
//
// Example:
//
//	astronews:articles:limit=9:offset=18
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		values := slices.Clone(k.Query[name])
		slices.Sort(values)
		parts = append(parts, name+"="+strings.Join(values, ","))
	}

	return strings.Join(parts, ":")
}

// pattern matches every key written under the prefix.
func pattern() string {
	return KeyPrefix + ":*"
}
