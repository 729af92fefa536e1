// Copyright 2025 Eco Protocol
//
// Firestore Client
// Firebase Admin SDK client for mirroring intent/vault/proof state to Firestore

package firestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Client wraps the Firestore client with Portal-specific functionality.
type Client struct {
	app       *firebase.App
	firestore *gcpfirestore.Client
	projectID string
	logger    *log.Logger
	enabled   bool
	mu        sync.RWMutex
}

// ClientConfig holds configuration for the Firestore client.
type ClientConfig struct {
	// ProjectID is the Firebase/GCP project ID.
	ProjectID string

	// CredentialsFile is the path to the service account JSON file.
	// If empty, uses GOOGLE_APPLICATION_CREDENTIALS.
	CredentialsFile string

	// Enabled controls whether Firestore operations are actually performed.
	// If false, all operations are no-ops.
	Enabled bool

	Logger *log.Logger
}

// DefaultConfig returns a ClientConfig populated from environment variables.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Enabled:         getEnvBool("FIRESTORE_ENABLED", false),
		Logger:          log.New(os.Stdout, "[Firestore] ", log.LstdFlags),
	}
}

// NewClient creates a new Firestore client.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[Firestore] ", log.LstdFlags)
	}

	client := &Client{
		projectID: cfg.ProjectID,
		logger:    cfg.Logger,
		enabled:   cfg.Enabled,
	}

	if !cfg.Enabled {
		cfg.Logger.Println("Firestore sync is DISABLED - running in no-op mode")
		return client, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required when Firestore is enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	client.app = app
	client.firestore = firestoreClient

	cfg.Logger.Printf("Firestore client initialized for project: %s", cfg.ProjectID)
	return client, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firestore != nil {
		return c.firestore.Close()
	}
	return nil
}

// IsEnabled returns whether Firestore sync is enabled.
func (c *Client) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Collection returns a reference to a Firestore collection.
func (c *Client) Collection(path string) *gcpfirestore.CollectionRef {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Collection(path)
}

// Doc returns a reference to a Firestore document.
func (c *Client) Doc(path string) *gcpfirestore.DocumentRef {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Doc(path)
}

// CreateStatusSnapshot writes a new status snapshot.
// Path: /intents/{intentHash}/statusSnapshots/{snapshotID}
func (c *Client) CreateStatusSnapshot(ctx context.Context, intentHash string, snapshot *StatusSnapshot) error {
	if !c.IsEnabled() {
		c.logger.Printf("Firestore disabled - skipping status snapshot intent=%s stage=%d", intentHash, snapshot.Stage)
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}

	if snapshot.SnapshotID == "" {
		snapshot.SnapshotID = fmt.Sprintf("stage%d_%d", snapshot.Stage, time.Now().UnixNano())
	}

	docPath := fmt.Sprintf("intents/%s/statusSnapshots/%s", intentHash, snapshot.SnapshotID)
	_, err := c.firestore.Doc(docPath).Set(ctx, map[string]interface{}{
		"intentHash":         snapshot.IntentHash,
		"stage":              snapshot.Stage,
		"stageName":          snapshot.StageName,
		"status":             snapshot.Status,
		"timestamp":          snapshot.Timestamp,
		"source":             snapshot.Source,
		"data":               snapshot.Data,
		"previousSnapshotId": snapshot.PreviousSnapshotID,
		"snapshotHash":       snapshot.SnapshotHash,
		"errorMessage":       snapshot.ErrorMessage,
	})
	if err != nil {
		c.logger.Printf("Failed to create status snapshot: %v", err)
		return fmt.Errorf("failed to create status snapshot: %w", err)
	}

	c.logger.Printf("Created status snapshot: intent=%s stage=%d status=%s", intentHash, snapshot.Stage, snapshot.Status)
	return nil
}

// CreateAuditEntry writes a new audit trail entry.
// Path: /intents/{intentHash}/auditTrail/{entryID}
func (c *Client) CreateAuditEntry(ctx context.Context, intentHash string, entry *AuditTrailEntry) error {
	if !c.IsEnabled() {
		c.logger.Printf("Firestore disabled - skipping audit entry intent=%s phase=%s", intentHash, entry.Phase)
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}

	if entry.EntryID == "" {
		entry.EntryID = fmt.Sprintf("%s_%d", entry.Phase, time.Now().UnixNano())
	}

	docPath := fmt.Sprintf("intents/%s/auditTrail/%s", intentHash, entry.EntryID)
	_, err := c.firestore.Doc(docPath).Set(ctx, map[string]interface{}{
		"intentHash":   entry.IntentHash,
		"phase":        entry.Phase,
		"action":       entry.Action,
		"actor":        entry.Actor,
		"timestamp":    entry.Timestamp,
		"previousHash": entry.PreviousHash,
		"entryHash":    entry.EntryHash,
		"details":      entry.Details,
	})
	if err != nil {
		c.logger.Printf("Failed to create audit entry: %v", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	c.logger.Printf("Created audit entry: intent=%s phase=%s action=%s", intentHash, entry.Phase, entry.Action)
	return nil
}

// UpdateIntentStatus merges a sparse set of fields onto an intent's
// top-level dashboard document.
// Path: /intents/{intentHash}
func (c *Client) UpdateIntentStatus(ctx context.Context, intentHash string, update *IntentStatusUpdate) error {
	if !c.IsEnabled() {
		c.logger.Printf("Firestore disabled - skipping intent update intent=%s", intentHash)
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}

	docPath := fmt.Sprintf("intents/%s", intentHash)
	updates := make(map[string]interface{})

	if update.Status != "" {
		updates["status"] = update.Status
	}
	if update.CurrentStage != nil {
		updates["currentStage"] = *update.CurrentStage
	}
	if update.LastUpdated != nil {
		updates["lastUpdated"] = *update.LastUpdated
	}
	if update.Claimant != "" {
		updates["claimant"] = update.Claimant
	}
	if update.FulfillTx != "" {
		updates["fulfillTx"] = update.FulfillTx
	}
	if update.ProofTx != "" {
		updates["proofTx"] = update.ProofTx
	}
	if update.Error != "" {
		updates["error"] = update.Error
	}
	for k, v := range update.Metadata {
		updates["metadata."+k] = v
	}

	if len(updates) == 0 {
		return nil
	}

	_, err := c.firestore.Doc(docPath).Set(ctx, updates, gcpfirestore.MergeAll)
	if err != nil {
		c.logger.Printf("Failed to update intent status: %v", err)
		return fmt.Errorf("failed to update intent status: %w", err)
	}

	c.logger.Printf("Updated intent status: intent=%s fields=%d", intentHash, len(updates))
	return nil
}

// GetLatestAuditEntry retrieves the most recent audit entry for an intent,
// used to compute previousHash in the chain-integrity scheme.
func (c *Client) GetLatestAuditEntry(ctx context.Context, intentHash string) (*AuditTrailEntry, error) {
	if !c.IsEnabled() || c.firestore == nil {
		return nil, nil
	}

	collPath := fmt.Sprintf("intents/%s/auditTrail", intentHash)
	query := c.firestore.Collection(collPath).OrderBy("timestamp", gcpfirestore.Desc).Limit(1)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var entry AuditTrailEntry
	if err := docs[0].DataTo(&entry); err != nil {
		return nil, fmt.Errorf("failed to parse audit entry: %w", err)
	}
	entry.EntryID = docs[0].Ref.ID
	return &entry, nil
}

// GetLatestStatusSnapshot retrieves the most recent status snapshot for an
// intent, used to compute previousSnapshotId in the chain-integrity scheme.
func (c *Client) GetLatestStatusSnapshot(ctx context.Context, intentHash string) (*StatusSnapshot, error) {
	if !c.IsEnabled() || c.firestore == nil {
		return nil, nil
	}

	collPath := fmt.Sprintf("intents/%s/statusSnapshots", intentHash)
	query := c.firestore.Collection(collPath).OrderBy("timestamp", gcpfirestore.Desc).Limit(1)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query status snapshots: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var snapshot StatusSnapshot
	if err := docs[0].DataTo(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse status snapshot: %w", err)
	}
	snapshot.SnapshotID = docs[0].Ref.ID
	return &snapshot, nil
}

// Batch creates a new Firestore batch for atomic writes.
func (c *Client) Batch() *gcpfirestore.WriteBatch {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.Batch()
}

// RunTransaction runs a Firestore transaction.
func (c *Client) RunTransaction(ctx context.Context, f func(context.Context, *gcpfirestore.Transaction) error) error {
	if !c.IsEnabled() || c.firestore == nil {
		return nil
	}
	return c.firestore.RunTransaction(ctx, f)
}

// Health checks connectivity to Firestore.
func (c *Client) Health(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}
	if c.firestore == nil {
		return fmt.Errorf("Firestore client not initialized")
	}
	_, _ = c.firestore.Collection("_health_check").Doc("ping").Get(ctx)
	return nil
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1" || val == "yes"
}
