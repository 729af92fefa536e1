// Copyright 2025 Eco Protocol
//
// Firestore Sync Service
// Mirrors intent lifecycle events to Firestore for real-time dashboard consumption.

package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// SyncService mirrors lifecycle.Event values onto Firestore documents. It is
// entirely additive: a disabled or nil SyncService must never block a
// lifecycle transition, so every public method swallows its own errors after
// logging them.
type SyncService struct {
	client *Client
	nodeID string
	logger *log.Logger
}

// SyncServiceConfig holds configuration for the sync service.
type SyncServiceConfig struct {
	Client *Client
	NodeID string
	Logger *log.Logger
}

// NewSyncService creates a new Firestore sync service.
func NewSyncService(cfg *SyncServiceConfig) (*SyncService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("Firestore client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[FirestoreSync] ", log.LstdFlags)
	}
	return &SyncService{
		client: cfg.Client,
		nodeID: cfg.NodeID,
		logger: cfg.Logger,
	}, nil
}

// IsEnabled returns whether the sync service is enabled.
func (s *SyncService) IsEnabled() bool {
	return s != nil && s.client != nil && s.client.IsEnabled()
}

// stageForKind maps a lifecycle event kind to its dashboard Stage;
// statusLabelForKind below gives the matching status label.
var stageForKind = map[string]Stage{
	"published":        StagePublished,
	"funded":           StageFunded,
	"partially_funded": StagePartiallyFunded,
	"withdrawn":        StageWithdrawn,
	"refunded":         StageRefunded,
	"token_recovered":  StageTokenRecovered,
}

var statusLabelForKind = map[string]string{
	"published":        "open",
	"funded":            "funded",
	"partially_funded":  "partially_funded",
	"withdrawn":         "claimed",
	"refunded":          "refunded",
	"token_recovered":   "funded",
}

// MirrorEvent is called for every lifecycle.Event the operations ledger
// records. intentHash is the hex-encoded 32-byte intent fingerprint; kind and
// detail are lifecycle.Event's Kind and Detail rendered through interface{}
// so this package does not import pkg/lifecycle and create a cycle.
func (s *SyncService) MirrorEvent(ctx context.Context, intentHash string, kind string, detail map[string]interface{}) {
	if !s.IsEnabled() {
		return
	}

	stage, ok := stageForKind[kind]
	if !ok {
		return
	}

	if err := s.writeSnapshot(ctx, intentHash, stage, detail); err != nil {
		s.logger.Printf("Warning: failed to mirror snapshot for intent=%s kind=%s: %v", intentHash, kind, err)
	}

	now := time.Now()
	if err := s.client.UpdateIntentStatus(ctx, intentHash, &IntentStatusUpdate{
		Status:       statusLabelForKind[kind],
		CurrentStage: &stage,
		LastUpdated:  &now,
	}); err != nil {
		s.logger.Printf("Warning: failed to update intent status for intent=%s: %v", intentHash, err)
	}

	if err := s.writeAuditEntry(ctx, intentHash, kind, detail); err != nil {
		s.logger.Printf("Warning: failed to write audit entry for intent=%s kind=%s: %v", intentHash, kind, err)
	}
}

// MirrorFulfillment is called by the destination-side fulfillment engine
// after a route executes, independent of the lifecycle operations ledger
// (fulfillment happens on the destination chain; the ledger tracks
// source-chain vault events).
func (s *SyncService) MirrorFulfillment(ctx context.Context, intentHash, claimant string, callCount int) {
	if !s.IsEnabled() {
		return
	}

	if err := s.writeSnapshot(ctx, intentHash, StageFulfilled, map[string]interface{}{
		"claimant":  claimant,
		"callCount": callCount,
	}); err != nil {
		s.logger.Printf("Warning: failed to mirror fulfillment for intent=%s: %v", intentHash, err)
	}

	now := time.Now()
	stage := StageFulfilled
	if err := s.client.UpdateIntentStatus(ctx, intentHash, &IntentStatusUpdate{
		Status:       "fulfilled",
		CurrentStage: &stage,
		LastUpdated:  &now,
		Claimant:     claimant,
	}); err != nil {
		s.logger.Printf("Warning: failed to update intent status for intent=%s: %v", intentHash, err)
	}
}

// MirrorProof is called by the prover when Prove dispatches a proof for an
// intent (verified false) and when Handle opens a proof record for it
// (verified true). Closing a proof record is not mirrored.
func (s *SyncService) MirrorProof(ctx context.Context, intentHash string, verified bool, proofTx string) {
	if !s.IsEnabled() {
		return
	}

	stage := StageProofDispatched
	status := StatusInProgress
	if verified {
		stage = StageProofVerified
		status = StatusCompleted
	}

	snapshot := &StatusSnapshot{
		IntentHash: intentHash,
		Stage:      stage,
		StageName:  StageNames[stage],
		Status:     status,
		Timestamp:  time.Now(),
		Source:     "prover",
		Data:       map[string]interface{}{"proofTx": proofTx},
	}
	if prev, err := s.client.GetLatestStatusSnapshot(ctx, intentHash); err == nil && prev != nil {
		snapshot.PreviousSnapshotID = prev.SnapshotID
	}
	snapshot.SnapshotHash = s.computeSnapshotHash(snapshot)

	if err := s.client.CreateStatusSnapshot(ctx, intentHash, snapshot); err != nil {
		s.logger.Printf("Warning: failed to mirror proof snapshot for intent=%s: %v", intentHash, err)
	}

	now := time.Now()
	if err := s.client.UpdateIntentStatus(ctx, intentHash, &IntentStatusUpdate{
		CurrentStage: &stage,
		LastUpdated:  &now,
		ProofTx:      proofTx,
	}); err != nil {
		s.logger.Printf("Warning: failed to update intent status for intent=%s: %v", intentHash, err)
	}
}

func (s *SyncService) writeSnapshot(ctx context.Context, intentHash string, stage Stage, detail map[string]interface{}) error {
	snapshot := &StatusSnapshot{
		IntentHash: intentHash,
		Stage:      stage,
		StageName:  StageNames[stage],
		Status:     StatusCompleted,
		Timestamp:  time.Now(),
		Source:     fmt.Sprintf("node-%s", s.nodeID),
		Data:       detail,
	}

	if prev, err := s.client.GetLatestStatusSnapshot(ctx, intentHash); err == nil && prev != nil {
		snapshot.PreviousSnapshotID = prev.SnapshotID
	}
	snapshot.SnapshotHash = s.computeSnapshotHash(snapshot)

	return s.client.CreateStatusSnapshot(ctx, intentHash, snapshot)
}

func (s *SyncService) writeAuditEntry(ctx context.Context, intentHash, kind string, detail map[string]interface{}) error {
	var previousHash string
	if prev, err := s.client.GetLatestAuditEntry(ctx, intentHash); err == nil && prev != nil {
		previousHash = prev.EntryHash
	}

	entry := &AuditTrailEntry{
		IntentHash:   intentHash,
		Phase:        kind,
		Action:       fmt.Sprintf("lifecycle event: %s", kind),
		Actor:        fmt.Sprintf("node-%s", s.nodeID),
		Timestamp:    time.Now(),
		PreviousHash: previousHash,
		Details:      detail,
	}
	entry.EntryHash = s.computeEntryHash(entry)

	return s.client.CreateAuditEntry(ctx, intentHash, entry)
}

// computeSnapshotHash hashes the fields of a StatusSnapshot that determine
// its dashboard meaning, chaining it to the previous snapshot for the intent.
func (s *SyncService) computeSnapshotHash(snapshot *StatusSnapshot) string {
	data := map[string]interface{}{
		"intentHash":         snapshot.IntentHash,
		"stage":              snapshot.Stage,
		"status":             snapshot.Status,
		"timestamp":          snapshot.Timestamp.Unix(),
		"previousSnapshotId": snapshot.PreviousSnapshotID,
		"data":               snapshot.Data,
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Warning: failed to marshal snapshot for hashing: %v", err)
		return ""
	}
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}

func (s *SyncService) computeEntryHash(entry *AuditTrailEntry) string {
	data := map[string]interface{}{
		"intentHash":   entry.IntentHash,
		"phase":        entry.Phase,
		"action":       entry.Action,
		"actor":        entry.Actor,
		"timestamp":    entry.Timestamp.Unix(),
		"previousHash": entry.PreviousHash,
		"details":      entry.Details,
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Warning: failed to marshal audit entry for hashing: %v", err)
		return ""
	}
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}
