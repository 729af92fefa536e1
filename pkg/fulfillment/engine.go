// Copyright 2025 Eco Protocol

// Package fulfillment implements the Fulfillment Engine (C4): validating
// an incoming fulfill_intent request, executing the route's calls under
// the execution authority, transferring route tokens, recording the
// claimant, and handing off to the Prover for proof dispatch.
package fulfillment

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/intent"
	"github.com/eco-protocol/portal/pkg/store"
)

// Adapter is the destination-chain collaborator the engine needs to move
// route tokens and invoke route calls. The concrete chain binding lives
// under pkg/chainadapter/evm.
type Adapter interface {
	// DeriveExecutionAuthority returns the program-derived, salt-keyed
	// identity that signs transfers and calls during fulfillment.
	DeriveExecutionAuthority(salt [32]byte) id32.ID

	// TransferToken moves amount of token from the solver's account to the
	// execution authority's account. amount == 0 is a legal no-op.
	TransferToken(ctx context.Context, token id32.ID, amount *big.Int, from, to id32.ID) error

	// InvokeCall executes call.Data against call.Target, signed by
	// authority, carrying call.Value where the destination chain supports
	// native value in arbitrary calls.
	InvokeCall(ctx context.Context, authority id32.ID, call intent.Call) error

	// IsProver reports whether target publicly identifies as a prover
	// contract, so the engine can reject self-proving forgery.
	IsProver(ctx context.Context, target id32.ID) (bool, error)

	// HasCode reports whether target is a contract (as opposed to an
	// externally-owned/code-less account).
	HasCode(ctx context.Context, target id32.ID) (bool, error)
}

// ProofDispatcher is the C5 collaborator the engine hands a fulfilled
// intent to once execution succeeds. sourceDomain is passed through
// unconverted; the Prover itself enforces the u32 domain bound (§4.5).
type ProofDispatcher interface {
	Prove(ctx context.Context, sourceDomain *big.Int, hashes [][32]byte, claimants []id32.ID, opaqueData []byte) error
}

// Request is a single fulfill_intent call.
type Request struct {
	IntentHashExpected [32]byte
	Route              intent.Route
	Reward             intent.Reward
	Claimant           id32.ID
	Solver             id32.ID
	OpaqueData         []byte
}

// Result reports the outcome of a successful fulfillment.
type Result struct {
	IntentHash        [32]byte
	ExecutionAuthority id32.ID
}

// Mirror is an optional real-time sink for fulfillment outcomes,
// implemented by pkg/sync's Firestore-backed SyncService.
type Mirror interface {
	MirrorFulfillment(ctx context.Context, intentHash, claimant string, callCount int)
}

// Engine is the destination-side fulfillment engine for one chain.
type Engine struct {
	LocalDomainID uint32
	InboxAddress  id32.ID

	Store   *store.Store
	Adapter Adapter
	Prover  ProofDispatcher
	Sync    Mirror

	Now func() time.Time

	log *log.Logger
}

// NewEngine builds an Engine for a single destination chain domain.
func NewEngine(localDomainID uint32, inbox id32.ID, st *store.Store, adapter Adapter, prover ProofDispatcher) *Engine {
	return &Engine{
		LocalDomainID: localDomainID,
		InboxAddress:  inbox,
		Store:         st,
		Adapter:       adapter,
		Prover:        prover,
		Now:           time.Now,
		log:           log.New(os.Stderr, "[Fulfillment] ", log.LstdFlags),
	}
}

// Fulfill validates req against the six preconditions in §4.4, then
// executes the marker-create → transfer → call → dispatch sequence. A
// failure at any step after marker creation unwinds the marker, emulating
// the host chain's whole-transaction abort.
func (e *Engine) Fulfill(ctx context.Context, req Request) (*Result, error) {
	route, reward := req.Route, req.Reward

	if route.DestinationDomain == nil || route.DestinationDomain.Cmp(big.NewInt(int64(e.LocalDomainID))) != 0 {
		return nil, ErrWrongChain
	}

	got := canon.IntentHash(route, reward)
	if got != req.IntentHashExpected {
		return nil, ErrInvalidHash
	}
	intentHash := got

	if route.Inbox != e.InboxAddress {
		return nil, ErrInvalidInbox
	}

	if req.Claimant.IsZero() {
		return nil, ErrZeroClaimant
	}

	if _, found, err := e.Store.GetFulfillmentMarker(intentHash); err != nil {
		return nil, fmt.Errorf("fulfillment: checking existing marker: %w", err)
	} else if found {
		return nil, store.ErrAlreadyFulfilled
	}

	if reward.Deadline != 0 && uint64(e.Now().Unix()) > reward.Deadline {
		return nil, ErrDeadlinePassed
	}

	if _, err := e.Store.OpenFulfillmentMarker(intentHash, req.Claimant); err != nil {
		return nil, fmt.Errorf("fulfillment: creating marker: %w", err)
	}

	authority := e.Adapter.DeriveExecutionAuthority(route.Salt)

	if err := e.transferRouteTokens(ctx, route, req.Solver, authority); err != nil {
		e.abort(intentHash)
		return nil, err
	}

	if err := e.runCalls(ctx, route, authority); err != nil {
		e.abort(intentHash)
		return nil, err
	}

	e.log.Printf("Fulfillment intent_hash=%x source_domain=%s prover=%s claimant=%s",
		intentHash, route.SourceDomain, reward.Prover, req.Claimant)

	if e.Prover != nil {
		if err := e.Prover.Prove(ctx, route.SourceDomain, [][32]byte{intentHash}, []id32.ID{req.Claimant}, req.OpaqueData); err != nil {
			e.abort(intentHash)
			return nil, fmt.Errorf("fulfillment: proof dispatch: %w", err)
		}
	}

	if e.Sync != nil {
		e.Sync.MirrorFulfillment(ctx, fmt.Sprintf("%x", intentHash), req.Claimant.String(), len(route.Calls))
	}

	return &Result{IntentHash: intentHash, ExecutionAuthority: authority}, nil
}

func (e *Engine) abort(intentHash [32]byte) {
	if err := e.Store.AbortFulfillmentMarker(intentHash); err != nil {
		e.log.Printf("abort: failed to unwind marker for %x: %v", intentHash, err)
	}
}

func (e *Engine) transferRouteTokens(ctx context.Context, route intent.Route, solver, authority id32.ID) error {
	for _, t := range route.Tokens {
		if t.Amount == nil || t.Amount.Sign() == 0 {
			continue
		}
		if err := e.Adapter.TransferToken(ctx, t.Token, t.Amount, solver, authority); err != nil {
			return fmt.Errorf("fulfillment: token transfer failed: %w", err)
		}
	}
	return nil
}

func (e *Engine) runCalls(ctx context.Context, route intent.Route, authority id32.ID) error {
	for _, c := range route.Calls {
		isProver, err := e.Adapter.IsProver(ctx, c.Target)
		if err != nil {
			return fmt.Errorf("fulfillment: checking prover status: %w", err)
		}
		if isProver {
			return ErrCallToProver
		}

		if len(c.Data) > 0 {
			hasCode, err := e.Adapter.HasCode(ctx, c.Target)
			if err != nil {
				return fmt.Errorf("fulfillment: checking target code: %w", err)
			}
			if !hasCode {
				return ErrCallToEOA
			}
		}

		if err := e.Adapter.InvokeCall(ctx, authority, c); err != nil {
			return fmt.Errorf("%w: %v", ErrIntentCallFailed, err)
		}
	}
	return nil
}
