package firestore

import (
	"context"
	"testing"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), &ClientConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSyncService_DisabledClientIsNoOp(t *testing.T) {
	svc, err := NewSyncService(&SyncServiceConfig{Client: disabledClient(t), NodeID: "test"})
	if err != nil {
		t.Fatalf("NewSyncService: %v", err)
	}
	if svc.IsEnabled() {
		t.Fatalf("IsEnabled = true, want false for a disabled client")
	}

	// None of these should panic or block even though nothing is wired to
	// a live Firestore project.
	svc.MirrorEvent(context.Background(), "deadbeef", "published", map[string]interface{}{"creator": "0x01"})
	svc.MirrorFulfillment(context.Background(), "deadbeef", "0x02", 1)
	svc.MirrorProof(context.Background(), "deadbeef", true, "0xabc")
}

func TestSyncService_UnknownEventKindIgnored(t *testing.T) {
	svc, err := NewSyncService(&SyncServiceConfig{Client: disabledClient(t), NodeID: "test"})
	if err != nil {
		t.Fatalf("NewSyncService: %v", err)
	}
	// Even on an enabled client this would be a no-op for an unrecognized
	// kind; here it only exercises the early "not enabled" return.
	svc.MirrorEvent(context.Background(), "deadbeef", "not_a_real_kind", nil)
}

func TestNewSyncService_RequiresClient(t *testing.T) {
	if _, err := NewSyncService(&SyncServiceConfig{NodeID: "test"}); err == nil {
		t.Fatalf("NewSyncService with nil Client = nil error, want error")
	}
}

func TestNewAuditTrailService_RequiresClient(t *testing.T) {
	if _, err := NewAuditTrailService(&AuditTrailConfig{NodeID: "test"}); err == nil {
		t.Fatalf("NewAuditTrailService with nil Client = nil error, want error")
	}
}

func TestAuditTrailService_DisabledIsNoOp(t *testing.T) {
	svc, err := NewAuditTrailService(&AuditTrailConfig{Client: disabledClient(t), NodeID: "test"})
	if err != nil {
		t.Fatalf("NewAuditTrailService: %v", err)
	}
	if svc.IsEnabled() {
		t.Fatalf("IsEnabled = true, want false")
	}
	if err := svc.RecordPublished(context.Background(), "deadbeef", "0x01"); err != nil {
		t.Fatalf("RecordPublished on disabled service: %v", err)
	}
}
