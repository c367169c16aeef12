package feed

// Status is the controller's fetch state.
type Status int

const (
	// StatusIdle means no fetch is in flight.
	StatusIdle Status = iota

	// StatusFetching is the first fetch of a session (no pages loaded yet).
	StatusFetching

	// StatusFetchingMore is a follow-up fetch appending to loaded pages.
	StatusFetchingMore

	// StatusRefreshing is a refresh restarting the feed at offset 0.
	StatusRefreshing

	// StatusError means the last fetch failed. It is not terminal.
	StatusError
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusFetchingMore:
		return "fetching_more"
	case StatusRefreshing:
		return "refreshing"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// InFlight reports whether a fetch is running in this state.
func (s Status) InFlight() bool {
	return s == StatusFetching || s == StatusFetchingMore || s == StatusRefreshing
}

// kind is the metric label for fetches started in this state.
func (s Status) kind() string {
	switch s {
	case StatusFetching:
		return "initial"
	case StatusFetchingMore:
		return "more"
	case StatusRefreshing:
		return "refresh"
	default:
		return "none"
	}
}
