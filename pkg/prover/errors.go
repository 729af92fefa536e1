package prover

import "errors"

var (
	ErrArrayLengthMismatch      = errors.New("prover: hashes and claimants arrays differ in length")
	ErrChainIDTooLarge          = errors.New("prover: source domain exceeds u32")
	ErrInsufficientFee          = errors.New("prover: configured fee budget is below the mailbox's quoted fee")
	ErrUnauthorizedHandle       = errors.New("prover: direct caller is not the configured mailbox")
	ErrInvalidOriginChainID     = errors.New("prover: origin domain must be non-zero")
	ErrUnauthorizedIncomingProof = errors.New("prover: sender is not in the prover whitelist")
	ErrNotClosable              = errors.New("prover: proof record is not eligible for close")
)
