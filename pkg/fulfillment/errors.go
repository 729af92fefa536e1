package fulfillment

import "errors"

var (
	ErrWrongChain      = errors.New("fulfillment: route destination domain does not match this chain")
	ErrInvalidHash     = errors.New("fulfillment: recomputed intent hash does not match expected hash")
	ErrInvalidInbox    = errors.New("fulfillment: route inbox does not match this program's canonical address")
	ErrZeroClaimant    = errors.New("fulfillment: claimant must be non-zero")
	ErrDeadlinePassed  = errors.New("fulfillment: deadline has passed")
	ErrCallToProver    = errors.New("fulfillment: call target publicly identifies as a prover")
	ErrCallToEOA       = errors.New("fulfillment: non-empty call data targets a code-less account")
	ErrIntentCallFailed = errors.New("fulfillment: call execution failed")
)
