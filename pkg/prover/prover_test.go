package prover

import (
	"context"
	"math/big"
	"testing"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/kvdb"
	"github.com/eco-protocol/portal/pkg/mailbox"
	"github.com/eco-protocol/portal/pkg/store"
)

func newTestProver(t *testing.T, mailboxID, recipient id32.ID, whitelist []id32.ID) (*Prover, *mailbox.InMemory) {
	t.Helper()
	st := store.New(kvdb.NewMemAdapter())
	mb := mailbox.NewInMemory(big.NewInt(100))
	p := New(mailboxID, recipient, st, mb, NewWhitelist(whitelist))
	p.FeeBudget = big.NewInt(1_000_000)
	return p, mb
}

func TestProve_DispatchesAndChargesFee(t *testing.T) {
	var mailboxID, recipient, claimant id32.ID
	recipient[31] = 0x01
	claimant[31] = 0x09
	p, mb := newTestProver(t, mailboxID, recipient, nil)

	hash := [32]byte{0x01}
	err := p.Prove(context.Background(), big.NewInt(10), [][32]byte{hash}, []id32.ID{claimant}, nil)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if len(mb.Messages) != 1 {
		t.Fatalf("messages dispatched = %d, want 1", len(mb.Messages))
	}
	if p.FeeBudget.Cmp(big.NewInt(1_000_000-100)) != 0 {
		t.Fatalf("FeeBudget after dispatch = %s, want %d", p.FeeBudget, 1_000_000-100)
	}
}

func TestProve_ArrayLengthMismatch(t *testing.T) {
	var mailboxID, recipient id32.ID
	p, _ := newTestProver(t, mailboxID, recipient, nil)

	err := p.Prove(context.Background(), big.NewInt(10), [][32]byte{{0x01}, {0x02}}, []id32.ID{{}}, nil)
	if err != ErrArrayLengthMismatch {
		t.Fatalf("Prove = %v, want ErrArrayLengthMismatch", err)
	}
}

func TestProve_ChainIDTooLarge(t *testing.T) {
	var mailboxID, recipient, claimant id32.ID
	p, _ := newTestProver(t, mailboxID, recipient, nil)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 40)
	err := p.Prove(context.Background(), tooBig, [][32]byte{{0x01}}, []id32.ID{claimant}, nil)
	if err != ErrChainIDTooLarge {
		t.Fatalf("Prove = %v, want ErrChainIDTooLarge", err)
	}
}

func TestProve_InsufficientFeeBudget(t *testing.T) {
	var mailboxID, recipient, claimant id32.ID
	p, _ := newTestProver(t, mailboxID, recipient, nil)
	p.FeeBudget = big.NewInt(1)

	err := p.Prove(context.Background(), big.NewInt(10), [][32]byte{{0x01}}, []id32.ID{claimant}, nil)
	if err != ErrInsufficientFee {
		t.Fatalf("Prove = %v, want ErrInsufficientFee", err)
	}
}

func TestHandle_UnauthorizedCallerRejected(t *testing.T) {
	var mailboxID, recipient, sender id32.ID
	mailboxID[31] = 0x01
	sender[31] = 0x02
	p, _ := newTestProver(t, mailboxID, recipient, []id32.ID{sender})

	var wrongCaller id32.ID
	wrongCaller[31] = 0x99
	err := p.Handle(context.Background(), wrongCaller, 10, sender, nil)
	if err != ErrUnauthorizedHandle {
		t.Fatalf("Handle = %v, want ErrUnauthorizedHandle", err)
	}
}

func TestHandle_UnwhitelistedSenderRejected(t *testing.T) {
	var mailboxID, recipient, sender id32.ID
	mailboxID[31] = 0x01
	sender[31] = 0x02
	p, _ := newTestProver(t, mailboxID, recipient, nil) // empty whitelist

	var claimant id32.ID
	claimant[31] = 0x09
	body := encodeTestBody(t, [32]byte{0x01}, claimant)
	err := p.Handle(context.Background(), mailboxID, 10, sender, body)
	if err != ErrUnauthorizedIncomingProof {
		t.Fatalf("Handle = %v, want ErrUnauthorizedIncomingProof", err)
	}
}

func TestHandle_CreatesProofRecordAndToleratesDuplicate(t *testing.T) {
	var mailboxID, recipient, sender, claimant id32.ID
	mailboxID[31] = 0x01
	sender[31] = 0x02
	claimant[31] = 0x09
	p, _ := newTestProver(t, mailboxID, recipient, []id32.ID{sender})

	hash := [32]byte{0x01}
	body := encodeTestBody(t, hash, claimant)

	if err := p.Handle(context.Background(), mailboxID, 10, sender, body); err != nil {
		t.Fatalf("first Handle: %v", err)
	}
	rec, found, err := p.Store.GetProofRecord(hash)
	if err != nil || !found {
		t.Fatalf("GetProofRecord: found=%v err=%v", found, err)
	}
	if rec.Claimant != claimant {
		t.Fatalf("recorded claimant = %v, want %v", rec.Claimant, claimant)
	}

	// Second delivery of the same pair must not error the batch.
	if err := p.Handle(context.Background(), mailboxID, 10, sender, body); err != nil {
		t.Fatalf("duplicate Handle should be tolerated: %v", err)
	}
}

func TestCloseProof_RequiresWithdrawnOrEarlyReclaim(t *testing.T) {
	var mailboxID, recipient, creator id32.ID
	creator[31] = 0x05
	p, _ := newTestProver(t, mailboxID, recipient, nil)

	hash := [32]byte{0x07}
	if _, err := p.Store.OpenIntentRecord(hash, creator); err != nil {
		t.Fatalf("OpenIntentRecord: %v", err)
	}
	if _, err := p.Store.OpenProofRecord(hash, creator); err != nil {
		t.Fatalf("OpenProofRecord: %v", err)
	}

	if err := p.CloseProof(context.Background(), hash, creator); err != ErrNotClosable {
		t.Fatalf("CloseProof before withdraw/early-reclaim = %v, want ErrNotClosable", err)
	}

	p.AllowEarlyReclaim = true
	if err := p.CloseProof(context.Background(), hash, creator); err != nil {
		t.Fatalf("CloseProof with early reclaim enabled: %v", err)
	}
}

func encodeTestBody(t *testing.T, hash [32]byte, claimant id32.ID) []byte {
	t.Helper()
	return canon.EncodeProofBody([][32]byte{hash}, [][32]byte{[32]byte(claimant)})
}
