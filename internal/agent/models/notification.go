package models

// NotificationType tags a notification row for the UI layer.
type NotificationType string

const (
	NotificationSyncFailed       NotificationType = "sync_failed"
	NotificationConflictDetected NotificationType = "conflict_detected"
	NotificationSyncCompleted    NotificationType = "sync_completed"
)

// Notification is a persisted user-visible event. Delivery (push, in-app
// banner) is the UI layer's concern; this core only stores the record.
type Notification struct {
	ID      string
	Title   string
	Message string
	Type    NotificationType

	// Optional structured data for the UI, opaque here.
	Data []byte

	Read      bool
	CreatedAt int64
}
