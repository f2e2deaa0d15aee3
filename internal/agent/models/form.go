package models

// FormSubmission is one completed verification form for a Case. The payload
// is produced by the form-mapping layer and persisted verbatim; this core
// never parses it. A submission is immutable after creation except for its
// SyncStatus.
type FormSubmission struct {
	ID       string `json:"id"`
	CaseID   string `json:"case_id"`
	FormType string `json:"form_type"`

	// Payload is canonical JSON owned by the form-mapping collaborators.
	Payload []byte `json:"payload"`

	CapturedAt int64 `json:"captured_at"`

	// Optional geo-location captured with the form. Nil when the device
	// had no fix.
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	GeoAddress string   `json:"geo_address,omitempty"`

	// Device/app metadata.
	DeviceModel string `json:"device_model"`
	AppVersion  string `json:"app_version"`

	SyncStatus SyncStatus `json:"-"`
	Version    int64      `json:"version"`
}
