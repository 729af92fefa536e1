// Copyright 2025 Eco Protocol
//
// Canonical Encoding ZK Circuit Definition
// Proves knowledge of a Route/Reward's canonical fields committing to a
// public value, for light clients that cannot afford to re-derive keccak256
// over the full canonical encoding themselves.
//
// Uses gnark for ZK-SNARK circuit definition (Groth16 proving system).

package zkhash

import (
	"github.com/consensys/gnark/frontend"
)

// CanonicalCommitmentCircuit proves that the prover knows the Route/Reward
// fields committing to Commitment, without the verifier re-deriving the
// canonical encoding. This does not replace keccak256(encoded) as the
// on-chain intent fingerprint (pkg/canon.IntentHash still computes that);
// it lets an off-chain light client accept Commitment as attesting to a
// specific intent's shape without doing the encoding itself.
type CanonicalCommitmentCircuit struct {
	// Commitment is the public value the prover claims to know an opening
	// for: a fixed linear combination of the private fields below.
	Commitment frontend.Variable `gnark:",public"`

	// SourceDomain and DestinationDomain are chain identifiers.
	SourceDomain      frontend.Variable
	DestinationDomain frontend.Variable

	// Deadline is the reward's expiry as a unix timestamp.
	Deadline frontend.Variable

	// NativeValue is the reward's native value.
	NativeValue frontend.Variable

	// TokenCount is the number of reward token entries.
	TokenCount frontend.Variable

	// SaltLow is the low 64 bits of the route's salt, enough entropy to
	// bind the commitment to one specific route without forcing the full
	// 256-bit salt through the field arithmetic below.
	SaltLow frontend.Variable
}

// Define implements the circuit constraints.
func (c *CanonicalCommitmentCircuit) Define(api frontend.API) error {
	computed := computeFieldCommitment(
		api,
		c.SourceDomain,
		c.DestinationDomain,
		c.Deadline,
		c.NativeValue,
		c.TokenCount,
		c.SaltLow,
	)
	api.AssertIsEqual(c.Commitment, computed)
	return nil
}

// computeFieldCommitment folds the six private fields into one field
// element with fixed mixing coefficients, mirroring a Horner-style
// polynomial evaluation. Not a cryptographic hash function on its own; its
// soundness comes from being wrapped in a Groth16 proof over this circuit.
func computeFieldCommitment(api frontend.API, sourceDomain, destDomain, deadline, nativeValue, tokenCount, saltLow frontend.Variable) frontend.Variable {
	r := frontend.Variable(11) // fixed mixing coefficient

	result := sourceDomain
	result = api.Add(result, api.Mul(destDomain, r))
	r2 := api.Mul(r, r)
	result = api.Add(result, api.Mul(deadline, r2))
	r3 := api.Mul(r2, r)
	result = api.Add(result, api.Mul(nativeValue, r3))
	r4 := api.Mul(r3, r)
	result = api.Add(result, api.Mul(tokenCount, r4))
	r5 := api.Mul(r4, r)
	result = api.Add(result, api.Mul(saltLow, r5))

	return result
}
