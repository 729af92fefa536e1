// Copyright 2025 Eco Protocol

// Package mailbox models the external cross-chain messaging bus the
// protocol treats as an opaque collaborator: something that can quote a
// dispatch fee and accept an outbound message addressed to a 32-bit domain
// and a recipient identity. The only implementation in this module is the
// in-memory double in memory.go; no on-chain Mailbox binding exists.
package mailbox

import (
	"context"
	"math/big"

	"github.com/eco-protocol/portal/pkg/id32"
)

// Message is a single outbound cross-chain message, as handed to Dispatch.
type Message struct {
	DestinationDomain uint32
	Recipient         id32.ID
	Body              []byte
	// Hook optionally names a post-dispatch hook; zero value selects the
	// Mailbox's configured default.
	Hook id32.ID
}

// DispatchResult carries what the Mailbox observed about a submitted
// message, for logging and idempotency checks upstream.
type DispatchResult struct {
	MessageID id32.ID
	FeePaid   *big.Int
}

// Mailbox is the external cross-chain messaging bus. Implementations must
// not retain Message.Body beyond the call.
type Mailbox interface {
	// Quote returns the native-currency fee required to dispatch msg.
	Quote(ctx context.Context, msg Message) (*big.Int, error)

	// Dispatch submits msg, paying up to maxFee. Implementations reject the
	// call if maxFee is less than the current quote; any excess supplied by
	// the caller above the quote is the caller's responsibility to refund,
	// matching the Prover's own overpayment-refund duty (§4.5).
	Dispatch(ctx context.Context, msg Message, maxFee *big.Int) (*DispatchResult, error)
}
