package tracking

import "time"

// Sample is one distance-sensor reading pushed by the telemetry source.
// The core never produces samples; it only checks their freshness.
type Sample struct {
	DistanceCm float64   `json:"distance_cm"`
	Timestamp  time.Time `json:"timestamp"`
}

// Fresh reports whether the sample is recent enough to trust for obstacle
// decisions. A zero sample is never fresh.
func (s Sample) Fresh(now time.Time, maxAge time.Duration) bool {
	if s.Timestamp.IsZero() {
		return false
	}
	return now.Sub(s.Timestamp) <= maxAge
}
