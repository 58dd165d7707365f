package transport

import "hearaid/internal/dsp/wdrc"

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// MetricsSource provides per-band compression readings for publishing.
// Implementations must tolerate concurrent callers and must not block
// the audio path.
type MetricsSource interface {
	// BandMetrics copies the latest readings into dst and returns the
	// number of bands written.
	BandMetrics(dst []wdrc.BandMetrics) int

	// NumBands reports the number of compression bands.
	NumBands() int
}

// MetricsMessage is the JSON payload broadcast to monitoring clients.
type MetricsMessage struct {
	Timestamp int64              `json:"timestamp"`
	Bands     []wdrc.BandMetrics `json:"bands"`
}
