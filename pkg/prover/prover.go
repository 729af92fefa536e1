// Copyright 2025 Eco Protocol

// Package prover implements the Prover (C5): outbound proof dispatch from
// the destination chain's Fulfillment Engine, inbound proof ingestion from
// the external Mailbox, and proof-record cleanup.
package prover

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/eco-protocol/portal/pkg/attestation"
	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/mailbox"
	"github.com/eco-protocol/portal/pkg/store"
)

const maxU32 = 1<<32 - 1

// Mirror is an optional real-time sink for proof dispatch/ingestion
// outcomes, implemented by pkg/sync's Firestore-backed SyncService.
type Mirror interface {
	MirrorProof(ctx context.Context, intentHash string, verified bool, proofTx string)
}

// Prover dispatches and ingests proof messages for one deployment.
type Prover struct {
	// MailboxIdentity is the identity Handle requires as direct caller.
	MailboxIdentity id32.ID
	// ProverRecipient is this deployment's source-chain prover contract
	// identity, addressed by outbound dispatch.
	ProverRecipient id32.ID
	// FeeBudget is the native balance available to pay mailbox dispatch
	// fees; Prove rejects dispatch when it can't cover the quote.
	FeeBudget *big.Int
	// AllowEarlyReclaim gates whether a creator may close a proof record
	// before the companion reward is withdrawn (§4.3).
	AllowEarlyReclaim bool

	Store     *store.Store
	Mailbox   mailbox.Mailbox
	Whitelist Whitelist
	Sync      Mirror

	// Quorum, Signer and Peers are all nil unless multi-validator
	// attestation is enabled; Prove then requires Quorum.RequiredCount
	// validators (this node plus Peers) to sign the proof batch's digest
	// before dispatch.
	Quorum *attestation.Quorum
	Signer *attestation.Signer
	Peers  []attestation.Peer

	log *log.Logger
}

// New builds a Prover.
func New(mailboxIdentity, proverRecipient id32.ID, st *store.Store, mb mailbox.Mailbox, whitelist Whitelist) *Prover {
	return &Prover{
		MailboxIdentity: mailboxIdentity,
		ProverRecipient: proverRecipient,
		FeeBudget:       big.NewInt(0),
		Store:           st,
		Mailbox:         mb,
		Whitelist:       whitelist,
		log:             log.New(os.Stderr, "[Prover] ", log.LstdFlags),
	}
}

// Prove dispatches an outbound proof message for the given hashes and
// claimants, called only by the Fulfillment Engine on this process
// (identity-checked structurally: there is no public entry point to this
// method beyond the engine's in-process call).
func (p *Prover) Prove(ctx context.Context, sourceDomain *big.Int, hashes [][32]byte, claimants []id32.ID, opaqueData []byte) error {
	if len(hashes) != len(claimants) {
		return ErrArrayLengthMismatch
	}
	if sourceDomain == nil || sourceDomain.Sign() < 0 || !sourceDomain.IsUint64() || sourceDomain.Uint64() > maxU32 {
		return ErrChainIDTooLarge
	}
	domain := uint32(sourceDomain.Uint64())

	claimantBytes := make([][32]byte, len(claimants))
	for i, c := range claimants {
		claimantBytes[i] = [32]byte(c)
	}
	body := canon.EncodeProofBody(hashes, claimantBytes)

	hook := id32.ID{}
	if len(opaqueData) == 32 {
		copy(hook[:], opaqueData)
	}

	msg := mailbox.Message{
		DestinationDomain: domain,
		Recipient:         p.ProverRecipient,
		Body:              body,
		Hook:              hook,
	}

	if p.Quorum != nil {
		digest := sha256.Sum256(body)
		var self *attestation.Vote
		if p.Signer != nil {
			v, err := p.Signer.Sign(digest)
			if err != nil {
				return fmt.Errorf("prover: self-attestation: %w", err)
			}
			self = &v
		}
		if _, err := p.Quorum.Gather(ctx, digest, self, p.Peers); err != nil {
			return fmt.Errorf("prover: %w", err)
		}
	}

	fee, err := p.Mailbox.Quote(ctx, msg)
	if err != nil {
		return fmt.Errorf("prover: quote: %w", err)
	}
	if p.FeeBudget.Cmp(fee) < 0 {
		return ErrInsufficientFee
	}

	if _, err := p.Mailbox.Dispatch(ctx, msg, fee); err != nil {
		return fmt.Errorf("prover: dispatch: %w", err)
	}
	p.FeeBudget = new(big.Int).Sub(p.FeeBudget, fee)

	if p.Sync != nil {
		for _, h := range hashes {
			p.Sync.MirrorProof(ctx, fmt.Sprintf("%x", h), false, "")
		}
	}

	p.log.Printf("prove domain=%d count=%d", domain, len(hashes))
	return nil
}

// Handle ingests an inbound proof message. caller must be the configured
// Mailbox; sender must be whitelisted. Structural faults (length mismatch,
// malformed body) reject the whole batch; per-item duplicates are
// duplicate-ok and the batch continues (§4.5, §7).
func (p *Prover) Handle(ctx context.Context, caller id32.ID, originDomain uint32, sender id32.ID, body []byte) error {
	if caller != p.MailboxIdentity {
		return ErrUnauthorizedHandle
	}
	if originDomain == 0 {
		return ErrInvalidOriginChainID
	}
	if !p.Whitelist.Contains(sender) {
		return ErrUnauthorizedIncomingProof
	}

	hashes, claimants, err := canon.DecodeProofBody(body)
	if err != nil {
		return fmt.Errorf("prover: %w", err)
	}

	for i, h := range hashes {
		var claimant id32.ID
		copy(claimant[:], claimants[i][:])

		if _, err := p.Store.OpenProofRecord(h, claimant); err != nil {
			if err == store.ErrAlreadyProven {
				p.log.Printf("AlreadyProven intent_hash=%x", h)
				continue
			}
			return fmt.Errorf("prover: opening proof record: %w", err)
		}

		if p.Sync != nil {
			p.Sync.MirrorProof(ctx, fmt.Sprintf("%x", h), true, "")
		}
	}
	return nil
}

// CloseProof deletes a proof record iff the companion reward has been
// withdrawn, or caller is the intent's creator and early reclaim is
// configured on (§4.3).
func (p *Prover) CloseProof(ctx context.Context, intentHash [32]byte, caller id32.ID) error {
	rec, found, err := p.Store.GetIntentRecord(intentHash)
	if err != nil {
		return fmt.Errorf("prover: loading intent record: %w", err)
	}

	withdrawn := found && rec.Status.IsTerminal()
	earlyReclaim := p.AllowEarlyReclaim && found && caller == rec.Creator

	if !withdrawn && !earlyReclaim {
		return ErrNotClosable
	}

	return p.Store.CloseProofRecord(intentHash)
}
