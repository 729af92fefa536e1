// Copyright 2025 Eco Protocol
//
// Audit Trail Service
// Hash-chained audit trail for intent lifecycle events, for compliance and forensics.

package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// AuditTrailService records hash-chained audit entries per intent.
type AuditTrailService struct {
	client *Client
	nodeID string
	logger *log.Logger
}

// AuditTrailConfig holds configuration for the audit trail service.
type AuditTrailConfig struct {
	Client *Client
	NodeID string
	Logger *log.Logger
}

// NewAuditTrailService creates a new audit trail service.
func NewAuditTrailService(cfg *AuditTrailConfig) (*AuditTrailService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("Firestore client is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[AuditTrail] ", log.LstdFlags)
	}
	return &AuditTrailService{
		client: cfg.Client,
		nodeID: cfg.NodeID,
		logger: cfg.Logger,
	}, nil
}

// IsEnabled returns whether the audit trail service is enabled.
func (a *AuditTrailService) IsEnabled() bool {
	return a.client != nil && a.client.IsEnabled()
}

// RecordPublished records that an intent was published and its vault opened.
func (a *AuditTrailService) RecordPublished(ctx context.Context, intentHash, creator string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "published",
		Action: "Intent published",
		Details: map[string]interface{}{
			"creator": creator,
		},
	})
}

// RecordFunded records that an intent's reward vault reached full or partial funding.
func (a *AuditTrailService) RecordFunded(ctx context.Context, intentHash string, partial bool, funder string) error {
	action := "Reward vault fully funded"
	if partial {
		action = "Reward vault partially funded"
	}
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "funded",
		Action: action,
		Details: map[string]interface{}{
			"funder":  funder,
			"partial": partial,
		},
	})
}

// RecordFulfilled records that the destination-side route was executed.
func (a *AuditTrailService) RecordFulfilled(ctx context.Context, intentHash, claimant string, callCount int) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "fulfilled",
		Action: fmt.Sprintf("Route executed with %d calls", callCount),
		Details: map[string]interface{}{
			"claimant": claimant,
		},
	})
}

// RecordProofDispatched records that a fulfillment proof was sent toward the source chain.
func (a *AuditTrailService) RecordProofDispatched(ctx context.Context, intentHash, proverType string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "proof_dispatched",
		Action: fmt.Sprintf("Proof dispatched via %s", proverType),
	})
}

// RecordProofVerified records that a proof record was accepted as valid.
func (a *AuditTrailService) RecordProofVerified(ctx context.Context, intentHash string, success bool, details map[string]interface{}) error {
	action := "Proof verified"
	if !success {
		action = "Proof verification failed"
	}
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:   "proof_verified",
		Action:  action,
		Details: details,
	})
}

// RecordWithdrawn records that the reward vault was paid out to its claimant.
func (a *AuditTrailService) RecordWithdrawn(ctx context.Context, intentHash, claimant string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "withdrawn",
		Action: "Reward vault withdrawn",
		Details: map[string]interface{}{
			"claimant": claimant,
		},
	})
}

// RecordRefunded records that the reward vault was returned to its creator
// after the intent's deadline passed unproven.
func (a *AuditTrailService) RecordRefunded(ctx context.Context, intentHash, creator string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "refunded",
		Action: "Reward vault refunded",
		Details: map[string]interface{}{
			"creator": creator,
		},
	})
}

// RecordTokenRecovered records an individual stray-token recovery from a vault.
func (a *AuditTrailService) RecordTokenRecovered(ctx context.Context, intentHash, token, creator string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  "token_recovered",
		Action: fmt.Sprintf("Token %s recovered", token),
		Details: map[string]interface{}{
			"creator": creator,
		},
	})
}

// RecordError records an error encountered while processing an intent.
func (a *AuditTrailService) RecordError(ctx context.Context, intentHash, phase, errorMessage string) error {
	return a.createEntry(ctx, intentHash, AuditEntryParams{
		Phase:  phase,
		Action: fmt.Sprintf("Error: %s", errorMessage),
		Details: map[string]interface{}{
			"errorMessage": errorMessage,
			"isError":      true,
		},
	})
}

// AuditEntryParams holds parameters for creating an audit entry.
type AuditEntryParams struct {
	Phase   string
	Action  string
	Details map[string]interface{}
}

// createEntry creates an audit entry with chain integrity.
func (a *AuditTrailService) createEntry(ctx context.Context, intentHash string, params AuditEntryParams) error {
	if !a.IsEnabled() {
		a.logger.Printf("Audit trail disabled - skipping entry intent=%s phase=%s", intentHash, params.Phase)
		return nil
	}

	var previousHash string
	if prev, err := a.client.GetLatestAuditEntry(ctx, intentHash); err == nil && prev != nil {
		previousHash = prev.EntryHash
	}

	entry := &AuditTrailEntry{
		EntryID:      uuid.New().String(),
		IntentHash:   intentHash,
		Phase:        params.Phase,
		Action:       params.Action,
		Actor:        fmt.Sprintf("node-%s", a.nodeID),
		Timestamp:    time.Now(),
		PreviousHash: previousHash,
		Details:      params.Details,
	}
	entry.EntryHash = a.computeEntryHash(entry)

	return a.client.CreateAuditEntry(ctx, intentHash, entry)
}

// computeEntryHash computes a SHA256 hash over the entry for chain integrity.
func (a *AuditTrailService) computeEntryHash(entry *AuditTrailEntry) string {
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
		a.logger.Printf("Warning: failed to marshal audit entry for hashing: %v", err)
		return ""
	}

	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}

// VerifyAuditChain verifies the hash-chain integrity of an intent's audit trail.
func (a *AuditTrailService) VerifyAuditChain(ctx context.Context, intentHash string) (*AuditChainVerification, error) {
	if !a.IsEnabled() {
		return nil, fmt.Errorf("audit trail service is disabled")
	}

	collPath := fmt.Sprintf("intents/%s/auditTrail", intentHash)
	query := a.client.firestore.Collection(collPath).OrderBy("timestamp", gcpfirestore.Asc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}

	result := &AuditChainVerification{
		IntentHash: intentHash,
		EntryCount: len(docs),
		Verified:   true,
		CheckedAt:  time.Now(),
	}
	if len(docs) == 0 {
		return result, nil
	}

	var previousHash string
	for i, doc := range docs {
		var entry AuditTrailEntry
		if err := doc.DataTo(&entry); err != nil {
			result.Verified = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: failed to parse: %v", i, err))
			continue
		}
		entry.EntryID = doc.Ref.ID

		if entry.PreviousHash != previousHash {
			result.Verified = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d (%s): previousHash mismatch", i, entry.EntryID))
		}

		computedHash := a.computeEntryHash(&entry)
		if entry.EntryHash != computedHash {
			result.Verified = false
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d (%s): entryHash mismatch", i, entry.EntryID))
		}

		previousHash = entry.EntryHash
	}

	return result, nil
}

// AuditChainVerification holds the result of a chain-integrity check.
type AuditChainVerification struct {
	IntentHash string    `json:"intentHash"`
	EntryCount int       `json:"entryCount"`
	Verified   bool      `json:"verified"`
	Errors     []string  `json:"errors,omitempty"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// GetAuditTrailForIntent retrieves all audit entries for an intent, in order.
func (a *AuditTrailService) GetAuditTrailForIntent(ctx context.Context, intentHash string) ([]*AuditTrailEntry, error) {
	if !a.IsEnabled() {
		return nil, fmt.Errorf("audit trail service is disabled")
	}

	collPath := fmt.Sprintf("intents/%s/auditTrail", intentHash)
	query := a.client.firestore.Collection(collPath).OrderBy("timestamp", gcpfirestore.Asc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}

	entries := make([]*AuditTrailEntry, 0, len(docs))
	for _, doc := range docs {
		var entry AuditTrailEntry
		if err := doc.DataTo(&entry); err != nil {
			a.logger.Printf("Warning: failed to parse audit entry %s: %v", doc.Ref.ID, err)
			continue
		}
		entry.EntryID = doc.Ref.ID
		entries = append(entries, &entry)
	}

	return entries, nil
}
