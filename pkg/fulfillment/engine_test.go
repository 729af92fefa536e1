package fulfillment

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/intent"
	"github.com/eco-protocol/portal/pkg/kvdb"
	"github.com/eco-protocol/portal/pkg/store"
)

type fakeAdapter struct {
	provers   map[id32.ID]bool
	withCode  map[id32.ID]bool
	transfers int
	calls     int
	failCall  bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{provers: map[id32.ID]bool{}, withCode: map[id32.ID]bool{}}
}

func (a *fakeAdapter) DeriveExecutionAuthority(salt [32]byte) id32.ID {
	var id id32.ID
	copy(id[:], salt[:])
	return id
}

func (a *fakeAdapter) TransferToken(ctx context.Context, token id32.ID, amount *big.Int, from, to id32.ID) error {
	a.transfers++
	return nil
}

func (a *fakeAdapter) InvokeCall(ctx context.Context, authority id32.ID, c intent.Call) error {
	a.calls++
	if a.failCall {
		return errBoom
	}
	return nil
}

func (a *fakeAdapter) IsProver(ctx context.Context, target id32.ID) (bool, error) {
	return a.provers[target], nil
}

func (a *fakeAdapter) HasCode(ctx context.Context, target id32.ID) (bool, error) {
	return a.withCode[target], nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errBoom = errString("boom")

type fakeProver struct {
	proved bool
}

func (p *fakeProver) Prove(ctx context.Context, sourceDomain *big.Int, hashes [][32]byte, claimants []id32.ID, opaque []byte) error {
	p.proved = true
	return nil
}

func testIDs() (token, inbox, callTarget, claimant, solver id32.ID) {
	token[31] = 0x01
	inbox[31] = 0x42
	callTarget[31] = 0x01
	claimant[31] = 0x09
	solver[31] = 0x08
	return
}

func buildRequest(t *testing.T, inbox, token, callTarget, claimant id32.ID, destDomain int64, deadline uint64) Request {
	t.Helper()
	route := intent.Route{
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(destDomain),
		Inbox:             inbox,
		Tokens:            []intent.TokenAmount{{Token: token, Amount: big.NewInt(1_000_000)}},
		Calls:             []intent.Call{{Target: callTarget, Data: []byte("transfer"), Value: big.NewInt(0)}},
	}
	reward := intent.Reward{
		Deadline:    deadline,
		NativeValue: big.NewInt(100_000),
	}
	hash := canon.IntentHash(route, reward)
	return Request{
		IntentHashExpected: hash,
		Route:              route,
		Reward:              reward,
		Claimant:           claimant,
	}
}

func newEngine(adapter Adapter, prover ProofDispatcher, inbox id32.ID) *Engine {
	st := store.New(kvdb.NewMemAdapter())
	e := NewEngine(1399811149, inbox, st, adapter, prover)
	e.Now = func() time.Time { return time.Unix(1000, 0) }
	return e
}

func TestFulfill_HappyPath(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	adapter.withCode[callTarget] = true
	prover := &fakeProver{}
	e := newEngine(adapter, prover, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 0)
	req.Solver = solver

	res, err := e.Fulfill(context.Background(), req)
	if err != nil {
		t.Fatalf("Fulfill: %v", err)
	}
	if res.IntentHash != req.IntentHashExpected {
		t.Fatalf("IntentHash mismatch")
	}
	if adapter.transfers != 1 || adapter.calls != 1 {
		t.Fatalf("transfers=%d calls=%d, want 1/1", adapter.transfers, adapter.calls)
	}
	if !prover.proved {
		t.Fatalf("expected prover to be invoked")
	}
}

func TestFulfill_DoubleFulfillRejected(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	adapter.withCode[callTarget] = true
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 0)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != nil {
		t.Fatalf("first Fulfill: %v", err)
	}
	if _, err := e.Fulfill(context.Background(), req); err != store.ErrAlreadyFulfilled {
		t.Fatalf("second Fulfill = %v, want ErrAlreadyFulfilled", err)
	}
}

func TestFulfill_WrongHashRejectedWithNoStateChange(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 0)
	req.Solver = solver
	req.IntentHashExpected[0] ^= 0xFF

	if _, err := e.Fulfill(context.Background(), req); err != ErrInvalidHash {
		t.Fatalf("Fulfill = %v, want ErrInvalidHash", err)
	}
	if adapter.transfers != 0 || adapter.calls != 0 {
		t.Fatalf("expected no execution on invalid hash, got transfers=%d calls=%d", adapter.transfers, adapter.calls)
	}
}

func TestFulfill_WrongChainRejected(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 999, 0)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != ErrWrongChain {
		t.Fatalf("Fulfill = %v, want ErrWrongChain", err)
	}
}

func TestFulfill_DeadlinePassedRejected(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 500)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != ErrDeadlinePassed {
		t.Fatalf("Fulfill = %v, want ErrDeadlinePassed", err)
	}
}

func TestFulfill_CallToProverRejectedAndMarkerUnwound(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter()
	adapter.provers[callTarget] = true
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 0)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != ErrCallToProver {
		t.Fatalf("Fulfill = %v, want ErrCallToProver", err)
	}

	if _, found, err := e.Store.GetFulfillmentMarker(req.IntentHashExpected); err != nil || found {
		t.Fatalf("marker should be unwound: found=%v err=%v", found, err)
	}
}

func TestFulfill_CallToEOARejected(t *testing.T) {
	token, inbox, callTarget, claimant, solver := testIDs()
	adapter := newFakeAdapter() // withCode defaults false
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, claimant, 1399811149, 0)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != ErrCallToEOA {
		t.Fatalf("Fulfill = %v, want ErrCallToEOA", err)
	}
}

func TestFulfill_ZeroClaimantRejected(t *testing.T) {
	token, inbox, callTarget, _, solver := testIDs()
	adapter := newFakeAdapter()
	e := newEngine(adapter, &fakeProver{}, inbox)

	req := buildRequest(t, inbox, token, callTarget, id32.ID{}, 1399811149, 0)
	req.Solver = solver

	if _, err := e.Fulfill(context.Background(), req); err != ErrZeroClaimant {
		t.Fatalf("Fulfill = %v, want ErrZeroClaimant", err)
	}
}
