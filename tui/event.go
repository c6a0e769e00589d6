package tui

import "time"

// Event mirrors the JSON shape the web package's SSE endpoint emits (see
// web.eventJSON). It is the TUI's own decoded representation — kept
// separate so the TUI never needs the proxy package's internal types, only
// the wire shape it streams over HTTP.
type Event struct {
	ID            string  `json:"id"`
	Protocol      string  `json:"protocol"`
	Op            string  `json:"op"`
	Key           string  `json:"key"`
	KeyCount      int     `json:"key_count"`
	Quiet         bool    `json:"quiet"`
	BurstSize     int     `json:"burst_size"`
	RequestBytes  int     `json:"request_bytes"`
	ResponseBytes int     `json:"response_bytes"`
	StartTime     string  `json:"start_time"`
	DurationMs    float64 `json:"duration_ms"`
	NoReply       bool    `json:"no_reply"`
	HotKey        bool    `json:"hot_key"`
	Error         string  `json:"error"`
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.DurationMs * float64(time.Millisecond))
}

func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t
}
