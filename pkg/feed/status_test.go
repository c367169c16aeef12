package feed

import "testing"

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		want     string
		inFlight bool
	}{
		{StatusIdle, "idle", false},
		{StatusFetching, "fetching", true},
		{StatusFetchingMore, "fetching_more", true},
		{StatusRefreshing, "refreshing", true},
		{StatusError, "error", false},
		{Status(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.status.InFlight(); got != tt.inFlight {
				t.Errorf("InFlight() = %v, want %v", got, tt.inFlight)
			}
		})
	}
}
