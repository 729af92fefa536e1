// Copyright 2025 Eco Protocol
//
// Firestore document types for the optional real-time dashboard mirror.

package firestore

import "time"

// Stage names a point in an intent's lifecycle, mirrored to Firestore for
// dashboards. Numbering follows the order an intent normally passes through
// them, though PartiallyFunded/Refunded/TokenRecovered are alternate branches
// rather than strict successors.
type Stage int

const (
	StagePublished Stage = iota + 1
	StageFunded
	StagePartiallyFunded
	StageFulfilled
	StageProofDispatched
	StageProofVerified
	StageWithdrawn
	StageRefunded
	StageTokenRecovered
)

// StageNames gives the human-readable label for each Stage.
var StageNames = map[Stage]string{
	StagePublished:       "published",
	StageFunded:          "funded",
	StagePartiallyFunded: "partially_funded",
	StageFulfilled:       "fulfilled",
	StageProofDispatched: "proof_dispatched",
	StageProofVerified:   "proof_verified",
	StageWithdrawn:       "withdrawn",
	StageRefunded:        "refunded",
	StageTokenRecovered:  "token_recovered",
}

// SnapshotStatus is the outcome recorded against a Stage.
type SnapshotStatus string

const (
	StatusInProgress SnapshotStatus = "in_progress"
	StatusCompleted  SnapshotStatus = "completed"
	StatusFailed     SnapshotStatus = "failed"
)

// StatusSnapshot is one point-in-time record of an intent reaching a Stage.
// Path: /intents/{intentHash}/statusSnapshots/{snapshotID}
type StatusSnapshot struct {
	SnapshotID         string                 `firestore:"-"`
	IntentHash         string                 `firestore:"intentHash"`
	Stage              Stage                  `firestore:"stage"`
	StageName          string                 `firestore:"stageName"`
	Status             SnapshotStatus         `firestore:"status"`
	Timestamp          time.Time              `firestore:"timestamp"`
	Source             string                 `firestore:"source"`
	Data               map[string]interface{} `firestore:"data,omitempty"`
	PreviousSnapshotID string                 `firestore:"previousSnapshotId,omitempty"`
	SnapshotHash       string                 `firestore:"snapshotHash,omitempty"`
	ErrorMessage       string                 `firestore:"errorMessage,omitempty"`
}

// AuditTrailEntry is one hash-chained event in an intent's audit trail.
// Path: /intents/{intentHash}/auditTrail/{entryID}
type AuditTrailEntry struct {
	EntryID      string                 `firestore:"-"`
	IntentHash   string                 `firestore:"intentHash"`
	Phase        string                 `firestore:"phase"`
	Action       string                 `firestore:"action"`
	Actor        string                 `firestore:"actor"`
	Timestamp    time.Time              `firestore:"timestamp"`
	PreviousHash string                 `firestore:"previousHash,omitempty"`
	EntryHash    string                 `firestore:"entryHash"`
	Details      map[string]interface{} `firestore:"details,omitempty"`
}

// IntentStatusUpdate carries a sparse set of field updates for an intent's
// top-level dashboard document. Only non-zero fields are written.
// Path: /intents/{intentHash}
type IntentStatusUpdate struct {
	Status       string
	CurrentStage *Stage
	LastUpdated  *time.Time
	Claimant     string
	FulfillTx    string
	ProofTx      string
	Error        string
	Metadata     map[string]interface{}
}
