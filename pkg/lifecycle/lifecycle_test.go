package lifecycle

import (
	"context"
	"math/big"
	"testing"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/intent"
	"github.com/eco-protocol/portal/pkg/kvdb"
	"github.com/eco-protocol/portal/pkg/store"
)

// fakeTransferor is an in-memory ledger of per-account token balances,
// standing in for the source chain's real token custody.
type fakeTransferor struct {
	balances map[id32.ID]map[id32.ID]*big.Int
}

func newFakeTransferor() *fakeTransferor {
	return &fakeTransferor{balances: map[id32.ID]map[id32.ID]*big.Int{}}
}

func (f *fakeTransferor) credit(account, token id32.ID, amount *big.Int) {
	accts, ok := f.balances[account]
	if !ok {
		accts = map[id32.ID]*big.Int{}
		f.balances[account] = accts
	}
	bal, ok := accts[token]
	if !ok {
		bal = big.NewInt(0)
	}
	accts[token] = new(big.Int).Add(bal, amount)
}

func (f *fakeTransferor) Pull(_ context.Context, token id32.ID, amount *big.Int, from id32.ID) error {
	accts, ok := f.balances[from]
	if !ok {
		return errInsufficient
	}
	bal, ok := accts[token]
	if !ok || bal.Cmp(amount) < 0 {
		return errInsufficient
	}
	accts[token] = new(big.Int).Sub(bal, amount)
	return nil
}

func (f *fakeTransferor) Pay(_ context.Context, token id32.ID, amount *big.Int, to id32.ID) error {
	f.credit(to, token, amount)
	return nil
}

var errInsufficient = ErrInsufficientTokenAllowance

func testIntent(deadline uint64, nativeValue int64, tokens ...canon.TokenAmount) intent.Intent {
	var creator, prover id32.ID
	creator[31] = 0x01
	prover[31] = 0x02
	return intent.New(
		canon.Route{Salt: [32]byte{0x11}, SourceDomain: big.NewInt(1), DestinationDomain: big.NewInt(2)},
		canon.Reward{
			Creator:     creator,
			Prover:      prover,
			Deadline:    deadline,
			NativeValue: big.NewInt(nativeValue),
			Tokens:      tokens,
		},
	)
}

func TestPublishAndFund_FullyFundedBecomesFunded(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var funder, tokenA id32.ID
	funder[31] = 0x07
	tokenA[31] = 0x09
	it := testIntent(9999999999, 100, canon.TokenAmount{Token: tokenA, Amount: big.NewInt(50)})
	ft.credit(funder, id32.ID{}, big.NewInt(100))
	ft.credit(funder, tokenA, big.NewInt(50))

	rec, err := l.PublishAndFund(context.Background(), it, funder, false)
	if err != nil {
		t.Fatalf("PublishAndFund: %v", err)
	}
	if rec.Status != store.StatusFunded {
		t.Fatalf("status = %v, want Funded", rec.Status)
	}
}

func TestFund_InsufficientWithoutPartialRollsBack(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var funder, tokenA, tokenB id32.ID
	funder[31] = 0x07
	tokenA[31] = 0x09
	tokenB[31] = 0x0a
	it := testIntent(9999999999, 0,
		canon.TokenAmount{Token: tokenA, Amount: big.NewInt(50)},
		canon.TokenAmount{Token: tokenB, Amount: big.NewInt(30)},
	)
	// Funder can cover tokenA but not tokenB.
	ft.credit(funder, tokenA, big.NewInt(50))

	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := l.Fund(context.Background(), it, funder, false); err == nil {
		t.Fatalf("Fund: want error on shortfall")
	}

	// tokenA's pull must have been rolled back to the funder.
	if got := ft.balances[funder][tokenA]; got == nil || got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("funder tokenA balance after rollback = %v, want 50", got)
	}
	hash := it.Hash()
	rec, found, err := st.GetIntentRecord(hash)
	if err != nil || !found {
		t.Fatalf("GetIntentRecord: %v found=%v", err, found)
	}
	if rec.Status != store.StatusInitial {
		t.Fatalf("status after failed fund = %v, want Initial", rec.Status)
	}
}

func TestFund_PartialAllowedLeavesPartiallyFunded(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var funder, tokenA, tokenB id32.ID
	funder[31] = 0x07
	tokenA[31] = 0x09
	tokenB[31] = 0x0a
	it := testIntent(9999999999, 0,
		canon.TokenAmount{Token: tokenA, Amount: big.NewInt(50)},
		canon.TokenAmount{Token: tokenB, Amount: big.NewInt(30)},
	)
	ft.credit(funder, tokenA, big.NewInt(50))

	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec, err := l.Fund(context.Background(), it, funder, true)
	if err != nil {
		t.Fatalf("Fund with allowPartial: %v", err)
	}
	if rec.Status != store.StatusPartiallyFunded {
		t.Fatalf("status = %v, want PartiallyFunded", rec.Status)
	}
}

func TestWithdraw_PaysClaimantAndClosesOutVault(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var funder, tokenA, claimant id32.ID
	funder[31] = 0x07
	tokenA[31] = 0x09
	claimant[31] = 0x0b
	it := testIntent(9999999999, 0, canon.TokenAmount{Token: tokenA, Amount: big.NewInt(50)})
	ft.credit(funder, tokenA, big.NewInt(50))

	if _, err := l.PublishAndFund(context.Background(), it, funder, false); err != nil {
		t.Fatalf("PublishAndFund: %v", err)
	}
	hash := it.Hash()
	if _, err := st.OpenProofRecord(hash, claimant); err != nil {
		t.Fatalf("OpenProofRecord: %v", err)
	}

	if err := l.Withdraw(context.Background(), it); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got := ft.balances[claimant][tokenA]; got == nil || got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("claimant balance = %v, want 50", got)
	}
	rec, _, err := st.GetIntentRecord(hash)
	if err != nil {
		t.Fatalf("GetIntentRecord: %v", err)
	}
	if rec.Status != store.StatusClaimed {
		t.Fatalf("status = %v, want Claimed", rec.Status)
	}
}

func TestWithdraw_WithoutProofRecordRejected(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	it := testIntent(9999999999, 0)
	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := l.Withdraw(context.Background(), it); err != ErrUnauthorizedWithdrawal {
		t.Fatalf("Withdraw = %v, want ErrUnauthorizedWithdrawal", err)
	}
}

func TestRefund_BeforeDeadlineRejected(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	it := testIntent(9999999999, 0)
	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := l.Refund(context.Background(), it); err != ErrIntentNotExpired {
		t.Fatalf("Refund = %v, want ErrIntentNotExpired", err)
	}
}

func TestRefund_AfterDeadlineReturnsFundsToCreator(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var funder, tokenA, creator id32.ID
	funder[31] = 0x07
	tokenA[31] = 0x09
	creator[31] = 0x01
	it := testIntent(1, 0, canon.TokenAmount{Token: tokenA, Amount: big.NewInt(50)})
	ft.credit(funder, tokenA, big.NewInt(50))

	if _, err := l.PublishAndFund(context.Background(), it, funder, false); err != nil {
		t.Fatalf("PublishAndFund: %v", err)
	}
	if err := l.Refund(context.Background(), it); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if got := ft.balances[creator][tokenA]; got == nil || got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("creator balance = %v, want 50", got)
	}
	hash := it.Hash()
	rec, _, err := st.GetIntentRecord(hash)
	if err != nil {
		t.Fatalf("GetIntentRecord: %v", err)
	}
	if rec.Status != store.StatusRefunded {
		t.Fatalf("status = %v, want Refunded", rec.Status)
	}
}

func TestRefund_RejectedOnceProven(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var claimant id32.ID
	claimant[31] = 0x0b
	it := testIntent(1, 0)
	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	hash := it.Hash()
	if _, err := st.OpenProofRecord(hash, claimant); err != nil {
		t.Fatalf("OpenProofRecord: %v", err)
	}
	if err := l.Refund(context.Background(), it); err != ErrIntentAlreadyProven {
		t.Fatalf("Refund = %v, want ErrIntentAlreadyProven", err)
	}
}

func TestRecoverToken_ZeroBalanceRejected(t *testing.T) {
	st := store.New(kvdb.NewMemAdapter())
	ft := newFakeTransferor()
	l := New(st, ft, nil)

	var tokenA id32.ID
	tokenA[31] = 0x09
	it := testIntent(1, 0)
	if _, err := l.Publish(context.Background(), it); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := l.RecoverToken(context.Background(), it, tokenA); err != ErrZeroRefundTokenBalance {
		t.Fatalf("RecoverToken = %v, want ErrZeroRefundTokenBalance", err)
	}
}
