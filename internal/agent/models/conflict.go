package models

// ConflictType classifies a detected divergence.
type ConflictType string

const (
	ConflictVersionMismatch ConflictType = "version_mismatch"
	ConflictDeleteVsUpdate  ConflictType = "delete_vs_update"
)

// ResolutionStrategy names how a conflict was (or will be) resolved.
// Empty until an explicit external decision is recorded.
type ResolutionStrategy string

const (
	ResolveLocalWins  ResolutionStrategy = "local_wins"
	ResolveServerWins ResolutionStrategy = "server_wins"
	ResolveMerge      ResolutionStrategy = "merge"
)

// ConflictStatus is pending until a resolution strategy is recorded.
type ConflictStatus string

const (
	ConflictStatusPending  ConflictStatus = "pending"
	ConflictStatusResolved ConflictStatus = "resolved"
)

// Conflict records a divergence between the local and server copies of an
// entity. Both snapshots are preserved verbatim; a Conflict is never
// auto-discarded.
type Conflict struct {
	ID           string
	SyncActionID string

	EntityType EntityType
	EntityID   string

	ConflictType ConflictType

	// Exact byte-for-byte snapshots of both sides.
	LocalData  []byte
	ServerData []byte

	LocalVersion  int64
	ServerVersion int64

	ResolutionStrategy ResolutionStrategy
	Status             ConflictStatus

	CreatedAt  int64
	ResolvedAt int64 // zero until resolved
}
