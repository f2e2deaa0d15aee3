package models

// Operations measured by the sync engine.
const (
	MetricSyncRun    = "sync_run"
	MetricCacheSweep = "cache_sweep"
)

// PerformanceMetric is one timed measurement of a background operation,
// kept locally so slow sync runs are diagnosable in the field. Details is
// an opaque JSON blob, like the other bookkeeping payloads.
type PerformanceMetric struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	DurationMs int64  `json:"duration_ms"`
	ItemCount  int    `json:"item_count"`
	Success    bool   `json:"success"`
	Details    []byte `json:"details,omitempty"`
	RecordedAt int64  `json:"recorded_at"`
}
