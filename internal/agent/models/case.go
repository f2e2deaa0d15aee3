// Package models defines the device-side data model: mirrored server
// entities (Case, FormSubmission, Attachment) and sync bookkeeping rows
// (SyncAction, Conflict, CacheEntry, Notification, Session).
//
// Mirrored entities carry two distinct status dimensions: the business
// status owned by the backend, and a local-only SyncStatus describing the
// row's relationship to the server copy. Timestamps on mirrored entities
// are epoch milliseconds, matching the wire contract.
package models

// CaseStatus is the business status of a verification case. The exact set
// is owned by the backend; these are the values the agent renders.
type CaseStatus string

const (
	CaseStatusPending    CaseStatus = "PENDING"
	CaseStatusAssigned   CaseStatus = "ASSIGNED"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusCompleted  CaseStatus = "COMPLETED"
	CaseStatusFailed     CaseStatus = "FAILED"
)

// SyncStatus is the local-only flag describing how a mirrored row relates
// to the server's copy. Distinct from the business status.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusConflict SyncStatus = "conflict"
)

// Case mirrors a server verification case.
//
// Version is the server-assigned optimistic-concurrency counter; replays
// quote it as their base so the backend can detect divergence. Deleted rows
// are tombstones: excluded from listings, never physically removed, so the
// delete itself flows through the sync queue like any other mutation.
type Case struct {
	ID string `json:"id"`

	// Customer identity.
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Address       string `json:"address"`

	// Classification.
	VerificationType string `json:"verification_type"`
	Product          string `json:"product"`
	ClientName       string `json:"client_name"`
	Priority         int    `json:"priority"`

	Status     CaseStatus `json:"status"`
	AssignedTo string     `json:"assigned_to"`
	Notes      string     `json:"notes"`

	// Business timestamps (epoch millis), owned by the backend.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`

	// Local sync bookkeeping. Never sent to the backend.
	SyncStatus   SyncStatus `json:"-"`
	LastModified int64      `json:"-"`
	Version      int64      `json:"version"`
	Deleted      bool       `json:"deleted"`

	// Serialized diffs awaiting reconciliation. Opaque at this layer.
	ConflictData   []byte `json:"-"`
	OfflineChanges []byte `json:"-"`
}
