package models

// ActionType classifies a queued mutation.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// EntityType names the table a SyncAction targets.
type EntityType string

const (
	EntityCase       EntityType = "case"
	EntityForm       EntityType = "form_submission"
	EntityAttachment EntityType = "attachment"
)

// ActionStatus is the sync-queue state machine. Pending and retrying are
// drainable; conflict is non-terminal but parked until a resolution is
// recorded; completed and failed are terminal. Exactly one terminal state
// is reached per action.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusRetrying  ActionStatus = "retrying"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusConflict  ActionStatus = "conflict"
)

// DefaultMaxRetries bounds replay attempts before an action is marked
// failed and surfaced as a Notification.
const DefaultMaxRetries = 5

// Default queue priorities per entity type; higher drains first. Case
// metadata is small and unblocks the ops console, so it goes ahead of form
// payloads, which in turn go ahead of byte uploads.
const (
	PriorityCase       = 20
	PriorityForm       = 10
	PriorityAttachment = 5
)

// SyncAction is a queued outbound mutation: everything needed to replay a
// local write against the backend once connectivity allows.
type SyncAction struct {
	ID string

	ActionType ActionType
	EntityType EntityType
	EntityID   string

	// Payload carries the serialized entity state to replay. Opaque here.
	Payload []byte

	// BaseVersion is the entity version the mutation was made against; the
	// backend compares it to its current version to detect divergence.
	BaseVersion int64

	Priority   int
	RetryCount int
	MaxRetries int
	Status     ActionStatus
	LastError  string

	CreatedAt   int64
	ScheduledAt int64
}
