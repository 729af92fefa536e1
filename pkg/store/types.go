// Copyright 2025 Eco Protocol

// Package store implements the Vault & Marker Store (C3): per-intent
// persistent records backing the source-side lifecycle and the
// destination-side fulfillment/proof state, over a deterministic
// byte-keyed KV interface.
package store

import (
	"math/big"

	"github.com/eco-protocol/portal/pkg/id32"
)

// Status is the source-side lifecycle state of an intent's reward vault.
type Status int

const (
	StatusInitial Status = iota
	StatusPartiallyFunded
	StatusFunded
	StatusClaimed
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusInitial:
		return "Initial"
	case StatusPartiallyFunded:
		return "PartiallyFunded"
	case StatusFunded:
		return "Funded"
	case StatusClaimed:
		return "Claimed"
	case StatusRefunded:
		return "Refunded"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further state transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusClaimed || s == StatusRefunded
}

// Mode names the operation transiently materialising a vault.
type Mode int

const (
	ModeFund Mode = iota
	ModeClaim
	ModeRefund
	ModeRecoverToken
)

// IntentRecord is the source-side record created by publish and carried
// through fund/withdraw/refund/recover-token.
type IntentRecord struct {
	IntentHash     [32]byte
	Creator        id32.ID
	Status         Status
	Mode           Mode
	PermitContract id32.ID // zero value means "no permit contract configured"
	Target         id32.ID
	AllowPartial   bool
	UsePermit      bool
}

// RewardVault is a per-(intent, token) reward balance. TokenID's zero value
// denotes the sibling native-value account.
type RewardVault struct {
	IntentHash [32]byte
	TokenID    id32.ID
	Balance    *big.Int
}

// FulfillmentMarker is the destination-side record whose mere existence
// means the intent has been fulfilled on this chain. Created exactly once.
type FulfillmentMarker struct {
	IntentHash [32]byte
	Claimant   id32.ID
}

// ProofRecord is the source-side record asserting the trusted prover has
// attested a claimant fulfilled the intent.
type ProofRecord struct {
	IntentHash [32]byte
	Claimant   id32.ID
}
