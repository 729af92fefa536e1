// Copyright 2025 Eco Protocol

// Package lifecycle implements the source-side reward lifecycle (C6):
// publish, fund, withdraw, refund and recover-token, over the shared
// store.Store for intent/vault state and an append-only Postgres ledger
// for auditing.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/intent"
	"github.com/eco-protocol/portal/pkg/store"
)

// TokenTransferor abstracts the source chain's token custody, the way
// pkg/fulfillment.Adapter abstracts the destination chain's. The zero id32.ID
// names the native-value account; every other value names an ERC20-style
// token.
type TokenTransferor interface {
	// Pull moves amount of token from the funder into the intent's vault.
	// Implementations return ErrInsufficientTokenAllowance (or a wrapped
	// equivalent) when the funder lacks balance or allowance.
	Pull(ctx context.Context, token id32.ID, amount *big.Int, from id32.ID) error

	// Pay moves amount of token out of the intent's vault to recipient.
	Pay(ctx context.Context, token id32.ID, amount *big.Int, to id32.ID) error
}

// Mirror is an optional real-time sink for lifecycle events, implemented by
// pkg/sync's Firestore-backed SyncService. A nil Mirror disables mirroring
// entirely with no behavioral effect on the lifecycle operations themselves.
type Mirror interface {
	MirrorEvent(ctx context.Context, intentHash string, kind string, detail map[string]interface{})
}

// Lifecycle implements the C6 operations over a TokenTransferor.
type Lifecycle struct {
	Store      *store.Store
	Transferor TokenTransferor
	Events     *EventRepository
	Sync       Mirror
	Now        func() time.Time
	log        *log.Logger
}

// New builds a Lifecycle. events may be nil, in which case operations still
// succeed but nothing is appended to the audit ledger — useful for tests
// that don't stand up Postgres.
func New(st *store.Store, transferor TokenTransferor, events *EventRepository) *Lifecycle {
	return &Lifecycle{
		Store:      st,
		Transferor: transferor,
		Events:     events,
		Now:        time.Now,
		log:        log.New(os.Stderr, "[Lifecycle] ", log.LstdFlags),
	}
}

func (l *Lifecycle) record(ctx context.Context, hash [32]byte, kind EventKind, detail map[string]interface{}) {
	if l.Sync != nil {
		l.Sync.MirrorEvent(ctx, fmt.Sprintf("%x", hash), string(kind), detail)
	}
	if l.Events == nil {
		return
	}
	if err := l.Events.Record(ctx, Event{IntentHash: hash, Kind: kind, Detail: detail}); err != nil {
		l.log.Printf("failed to append %s event for %x: %v", kind, hash, err)
	}
}

// Publish creates the source-side intent record in the Initial state.
func (l *Lifecycle) Publish(ctx context.Context, it intent.Intent) (*store.IntentRecord, error) {
	hash := it.Hash()
	rec, err := l.Store.OpenIntentRecord(hash, it.Reward.Creator)
	if err != nil {
		return nil, err
	}
	l.record(ctx, hash, EventPublished, map[string]interface{}{"creator": it.Reward.Creator.String()})
	return rec, nil
}

// PublishAndFund publishes the intent and immediately funds it from funder.
func (l *Lifecycle) PublishAndFund(ctx context.Context, it intent.Intent, funder id32.ID, allowPartial bool) (*store.IntentRecord, error) {
	if _, err := l.Publish(ctx, it); err != nil {
		return nil, err
	}
	return l.Fund(ctx, it, funder, allowPartial)
}

// requirement is one (token, amount) owed into the vault: the native-value
// leg plus one entry per distinct Reward.Tokens token, with the amounts of
// duplicate entries for the same token summed.
type requirement struct {
	token  id32.ID
	amount *big.Int
}

func requirements(it intent.Intent) []requirement {
	out := make([]requirement, 0, len(it.Reward.Tokens)+1)
	if it.Reward.NativeValue != nil && it.Reward.NativeValue.Sign() > 0 {
		out = append(out, requirement{token: id32.ID{}, amount: it.Reward.NativeValue})
	}
	index := make(map[id32.ID]int, len(it.Reward.Tokens))
	for _, ta := range it.Reward.Tokens {
		if i, ok := index[ta.Token]; ok {
			out[i].amount = new(big.Int).Add(out[i].amount, ta.Amount)
			continue
		}
		index[ta.Token] = len(out)
		out = append(out, requirement{token: ta.Token, amount: ta.Amount})
	}
	return out
}

// Fund pulls the reward's native value and tokens from funder into the
// intent's vault. With allowPartial false, a shortfall on any leg unwinds
// every pull already applied in this call and returns
// ErrInsufficientTokenAllowance — emulating the host chain's whole-
// transaction revert, since the backing KV store has no native multi-key
// transaction of its own.
func (l *Lifecycle) Fund(ctx context.Context, it intent.Intent, funder id32.ID, allowPartial bool) (*store.IntentRecord, error) {
	hash := it.Hash()
	rec, found, err := l.Store.GetIntentRecord(hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrNotFound
	}
	if rec.Status.IsTerminal() {
		return nil, ErrAlreadyExists
	}

	type applied struct {
		token  id32.ID
		amount *big.Int
	}
	var done []applied
	rollback := func() {
		for _, a := range done {
			if err := l.Transferor.Pay(ctx, a.token, a.amount, funder); err != nil {
				l.log.Printf("rollback pay of %s back to funder failed for %x: %v", a.amount, hash, err)
				continue
			}
			if vault, found, err := l.Store.GetRewardVault(hash, a.token); err == nil && found {
				vault.Balance = new(big.Int).Sub(vault.Balance, a.amount)
				if err := l.Store.PutRewardVault(vault); err != nil {
					l.log.Printf("rollback of vault balance failed for %x: %v", hash, err)
				}
			}
		}
	}

	complete := true
	for _, req := range requirements(it) {
		vault, err := l.Store.OpenRewardVault(hash, req.token)
		if err != nil {
			rollback()
			return nil, err
		}
		shortfall := new(big.Int).Sub(req.amount, vault.Balance)
		if shortfall.Sign() <= 0 {
			continue
		}
		if err := l.Transferor.Pull(ctx, req.token, shortfall, funder); err != nil {
			if !allowPartial {
				rollback()
				return nil, fmt.Errorf("%w: %v", ErrInsufficientTokenAllowance, err)
			}
			complete = false
			continue
		}
		vault.Balance = new(big.Int).Add(vault.Balance, shortfall)
		if err := l.Store.PutRewardVault(vault); err != nil {
			rollback()
			return nil, err
		}
		done = append(done, applied{token: req.token, amount: shortfall})
	}

	rec.AllowPartial = allowPartial
	if complete {
		rec.Status = store.StatusFunded
		l.record(ctx, hash, EventFunded, nil)
	} else if !allowPartial {
		rollback()
		return nil, ErrInsufficientTokenAllowance
	} else {
		rec.Status = store.StatusPartiallyFunded
		l.record(ctx, hash, EventPartiallyFunded, nil)
	}
	if err := l.Store.PutIntentRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// FundFor funds on behalf of funder. The pulls go through the Transferor
// exactly as in Fund; permitContract is not called, only stored on the
// intent record together with UsePermit. It is forbidden once any native
// value has landed in the vault.
func (l *Lifecycle) FundFor(ctx context.Context, it intent.Intent, funder, permitContract id32.ID, allowPartial bool) (*store.IntentRecord, error) {
	hash := it.Hash()
	if it.Reward.NativeValue != nil && it.Reward.NativeValue.Sign() > 0 {
		vault, found, err := l.Store.GetRewardVault(hash, id32.ID{})
		if err != nil {
			return nil, err
		}
		if found && vault.Balance.Sign() > 0 {
			return nil, ErrForbiddenFundFor
		}
	}
	rec, err := l.Fund(ctx, it, funder, allowPartial)
	if err != nil {
		return nil, err
	}
	rec.PermitContract = permitContract
	rec.UsePermit = true
	if err := l.Store.PutIntentRecord(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Withdraw pays the reward out to the claimant named by the intent's proof
// record. The native-value leg is paid best-effort after every token leg
// succeeds: a native payout failure is logged but does not fail the
// withdrawal, since the tokens have already irreversibly left the vault.
func (l *Lifecycle) Withdraw(ctx context.Context, it intent.Intent) error {
	hash := it.Hash()
	proof, found, err := l.Store.GetProofRecord(hash)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnauthorizedWithdrawal
	}
	rec, found, err := l.Store.GetIntentRecord(hash)
	if err != nil {
		return err
	}
	if !found || rec.Status.IsTerminal() {
		return ErrUnauthorizedWithdrawal
	}

	for _, ta := range it.Reward.Tokens {
		vault, found, err := l.Store.GetRewardVault(hash, ta.Token)
		if err != nil {
			return err
		}
		if !found || vault.Balance.Sign() <= 0 {
			continue
		}
		if err := l.Transferor.Pay(ctx, ta.Token, vault.Balance, proof.Claimant); err != nil {
			return fmt.Errorf("lifecycle: paying out token reward: %w", err)
		}
		if err := l.Store.DeleteRewardVault(hash, ta.Token); err != nil {
			return err
		}
	}

	if it.Reward.NativeValue != nil && it.Reward.NativeValue.Sign() > 0 {
		vault, found, err := l.Store.GetRewardVault(hash, id32.ID{})
		if err == nil && found && vault.Balance.Sign() > 0 {
			if payErr := l.Transferor.Pay(ctx, id32.ID{}, vault.Balance, proof.Claimant); payErr != nil {
				l.log.Printf("best-effort native payout failed for %x: %v", hash, payErr)
			} else {
				l.Store.DeleteRewardVault(hash, id32.ID{})
			}
		}
	}

	rec.Status = store.StatusClaimed
	rec.Mode = store.ModeClaim
	if err := l.Store.PutIntentRecord(rec); err != nil {
		return err
	}
	l.record(ctx, hash, EventWithdrawn, map[string]interface{}{"claimant": proof.Claimant.String()})
	return nil
}

// BatchWithdraw withdraws every intent independently, collecting one error
// per position rather than aborting the batch on the first failure —
// mirroring the duplicate-ok batch handling pkg/prover.Handle uses for
// inbound proofs.
func (l *Lifecycle) BatchWithdraw(ctx context.Context, its []intent.Intent) []error {
	errs := make([]error, len(its))
	for i, it := range its {
		errs[i] = l.Withdraw(ctx, it)
	}
	return errs
}

// Refund returns the full vault balance to the creator once the reward's
// deadline has passed, provided no proof record has been created.
func (l *Lifecycle) Refund(ctx context.Context, it intent.Intent) error {
	hash := it.Hash()
	rec, found, err := l.Store.GetIntentRecord(hash)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	if rec.Status.IsTerminal() {
		return ErrAlreadyExists
	}
	if now := l.now().Unix(); now < 0 || uint64(now) <= it.Reward.Deadline {
		return ErrIntentNotExpired
	}
	if _, found, err := l.Store.GetProofRecord(hash); err != nil {
		return err
	} else if found {
		return ErrIntentAlreadyProven
	}

	for _, ta := range it.Reward.Tokens {
		vault, found, err := l.Store.GetRewardVault(hash, ta.Token)
		if err != nil {
			return err
		}
		if !found || vault.Balance.Sign() <= 0 {
			continue
		}
		if err := l.Transferor.Pay(ctx, ta.Token, vault.Balance, rec.Creator); err != nil {
			return fmt.Errorf("lifecycle: refunding token: %w", err)
		}
		if err := l.Store.DeleteRewardVault(hash, ta.Token); err != nil {
			return err
		}
	}
	if vault, found, err := l.Store.GetRewardVault(hash, id32.ID{}); err == nil && found && vault.Balance.Sign() > 0 {
		if payErr := l.Transferor.Pay(ctx, id32.ID{}, vault.Balance, rec.Creator); payErr != nil {
			l.log.Printf("best-effort native refund failed for %x: %v", hash, payErr)
		} else {
			l.Store.DeleteRewardVault(hash, id32.ID{})
		}
	}

	rec.Status = store.StatusRefunded
	rec.Mode = store.ModeRefund
	if err := l.Store.PutIntentRecord(rec); err != nil {
		return err
	}
	l.record(ctx, hash, EventRefunded, nil)
	return nil
}

// RecoverToken returns a stray token balance to the creator. It is
// permitted once the reward is terminal, or at any time once the
// native-value leg is already empty — native settlement must not be left
// stranded by an early token sweep.
func (l *Lifecycle) RecoverToken(ctx context.Context, it intent.Intent, token id32.ID) error {
	hash := it.Hash()
	rec, found, err := l.Store.GetIntentRecord(hash)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	if !rec.Status.IsTerminal() {
		if nativeVault, found, err := l.Store.GetRewardVault(hash, id32.ID{}); err != nil {
			return err
		} else if found && nativeVault.Balance.Sign() > 0 {
			return ErrForbiddenRecoverToken
		}
	}

	vault, found, err := l.Store.GetRewardVault(hash, token)
	if err != nil {
		return err
	}
	if !found || vault.Balance.Sign() <= 0 {
		return ErrZeroRefundTokenBalance
	}
	if err := l.Transferor.Pay(ctx, token, vault.Balance, rec.Creator); err != nil {
		return fmt.Errorf("lifecycle: recovering token: %w", err)
	}
	if err := l.Store.DeleteRewardVault(hash, token); err != nil {
		return err
	}
	l.record(ctx, hash, EventTokenRecovered, map[string]interface{}{"token": token.String()})
	return nil
}

func (l *Lifecycle) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
