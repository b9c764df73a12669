package metrics

import (
	"strconv"
	"time"

	"github.com/telewell/miniapp-api/internal/observability/statsd"
)

// RequestMetric captures details about one handled HTTP request for metric
// emission.
type RequestMetric struct {
	Route    string
	Status   int
	Duration time.Duration
}

// EmitHTTPRequest emits standardised per-request metrics.
func EmitHTTPRequest(sink statsd.Sink, in RequestMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"route":  in.Route,
		"status": strconv.Itoa(in.Status),
		"class":  statusClass(in.Status),
	}

	sink.Count("http.requests", 1, tags)

	if in.Duration > 0 {
		sink.Timing("http.request_duration", in.Duration, CloneTags(tags))
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
