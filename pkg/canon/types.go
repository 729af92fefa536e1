// Copyright 2025 Eco Protocol

// Package canon implements the bit-exact canonical encoding of Route and
// Reward values and the derivation of the intent fingerprint from them. The
// layout mirrors the source-chain contract's ABI-style head/tail encoding,
// including its on-wire quirks, so that keccak256 of the encoded bytes is
// identical on both chains.
package canon

import (
	"math/big"

	"github.com/eco-protocol/portal/pkg/id32"
)

// TokenAmount pairs a token identifier with an amount in the token's
// smallest unit. An Amount of zero is legal and means no movement required.
type TokenAmount struct {
	Token  id32.ID
	Amount *big.Int
}

// Call is a single opaque invocation the solver must perform on the
// destination chain as part of a Route.
type Call struct {
	Target id32.ID
	Data   []byte
	Value  *big.Int
}

// Route is the solver's destination-chain work order.
type Route struct {
	Salt              [32]byte
	SourceDomain      *big.Int
	DestinationDomain *big.Int
	Inbox             id32.ID
	Tokens            []TokenAmount
	Calls             []Call
}

// Reward is the source-chain payout a solver earns by proving fulfillment.
type Reward struct {
	Creator     id32.ID
	Prover      id32.ID
	Deadline    uint64
	NativeValue *big.Int
	Tokens      []TokenAmount
}
