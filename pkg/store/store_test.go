package store

import (
	"testing"

	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/kvdb"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(kvdb.NewMemAdapter())
}

func TestOpenIntentRecord_RejectsTerminalDuplicate(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x01

	rec, err := s.OpenIntentRecord(hash, id32.ID{})
	if err != nil {
		t.Fatalf("OpenIntentRecord: %v", err)
	}
	rec.Status = StatusClaimed
	if err := s.PutIntentRecord(rec); err != nil {
		t.Fatalf("PutIntentRecord: %v", err)
	}

	if _, err := s.OpenIntentRecord(hash, id32.ID{}); err != ErrAlreadyExists {
		t.Fatalf("OpenIntentRecord on terminal intent = %v, want ErrAlreadyExists", err)
	}
}

func TestOpenIntentRecord_AllowsReopenWhenNotTerminal(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x02

	if _, err := s.OpenIntentRecord(hash, id32.ID{}); err != nil {
		t.Fatalf("first OpenIntentRecord: %v", err)
	}
	if _, err := s.OpenIntentRecord(hash, id32.ID{}); err != nil {
		t.Fatalf("second OpenIntentRecord on non-terminal record should not fail: %v", err)
	}
}

func TestOpenFulfillmentMarker_SecondCallFails(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x03
	var claimant id32.ID
	claimant[31] = 0x09

	if _, err := s.OpenFulfillmentMarker(hash, claimant); err != nil {
		t.Fatalf("first OpenFulfillmentMarker: %v", err)
	}
	if _, err := s.OpenFulfillmentMarker(hash, claimant); err != ErrAlreadyFulfilled {
		t.Fatalf("second OpenFulfillmentMarker = %v, want ErrAlreadyFulfilled", err)
	}
}

func TestOpenProofRecord_DuplicateIsAlreadyProven(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x04
	var claimant id32.ID
	claimant[31] = 0x0a

	if _, err := s.OpenProofRecord(hash, claimant); err != nil {
		t.Fatalf("first OpenProofRecord: %v", err)
	}
	if _, err := s.OpenProofRecord(hash, claimant); err != ErrAlreadyProven {
		t.Fatalf("second OpenProofRecord = %v, want ErrAlreadyProven", err)
	}
}

func TestCloseProofRecord_RemovesRecord(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x05
	var claimant id32.ID
	claimant[31] = 0x0b

	if _, err := s.OpenProofRecord(hash, claimant); err != nil {
		t.Fatalf("OpenProofRecord: %v", err)
	}
	if err := s.CloseProofRecord(hash); err != nil {
		t.Fatalf("CloseProofRecord: %v", err)
	}
	if _, found, err := s.GetProofRecord(hash); err != nil || found {
		t.Fatalf("GetProofRecord after close: found=%v err=%v, want not found", found, err)
	}
}

func TestRewardVault_BalanceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	var hash [32]byte
	hash[0] = 0x06
	var tok id32.ID
	tok[31] = 0x01

	vault, err := s.OpenRewardVault(hash, tok)
	if err != nil {
		t.Fatalf("OpenRewardVault: %v", err)
	}
	vault.Balance.SetInt64(1_000_000)
	if err := s.PutRewardVault(vault); err != nil {
		t.Fatalf("PutRewardVault: %v", err)
	}

	got, found, err := s.GetRewardVault(hash, tok)
	if err != nil || !found {
		t.Fatalf("GetRewardVault: found=%v err=%v", found, err)
	}
	if got.Balance.Int64() != 1_000_000 {
		t.Fatalf("Balance = %d, want 1000000", got.Balance.Int64())
	}
}
