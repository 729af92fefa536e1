// Copyright 2025 Eco Protocol

// Package attestation implements an optional multi-validator signature
// quorum over outbound proof batches, gated behind
// config.EnableBFTAttestation. It is a narrower stand-in for a full
// block-producing consensus engine: there is no chain of our own to
// propose blocks on, only a fixed peer set that each independently signs
// the same proof-batch digest before pkg/prover.Prove dispatches it.
package attestation

import (
	"context"
	"fmt"
	"sync"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Vote is one validator's signature over a proof-batch digest.
type Vote struct {
	ValidatorAddress crypto.Address
	Signature        []byte
}

// Peer is a remote validator this node can ask to attest to a digest.
// Concrete bindings (HTTP, gRPC) live alongside the deployment that needs
// them; tests use an in-process stub.
type Peer interface {
	Attest(ctx context.Context, digest [32]byte) (Vote, error)
}

// Signer produces this node's own vote over a digest. ed25519 keeps key
// management uniform with the Peer verification below; it is not used
// anywhere near the route/reward canonical encoding, which stays
// keccak256/ECDSA per pkg/canon and pkg/chainadapter/evm.
type Signer struct {
	key ed25519.PrivKey
}

// NewSigner builds a Signer from a raw 64-byte ed25519 private key.
func NewSigner(key ed25519.PrivKey) *Signer {
	return &Signer{key: key}
}

// GenerateSigner returns a Signer over a freshly generated key, for
// development and tests.
func GenerateSigner() *Signer {
	return &Signer{key: ed25519.GenPrivKey()}
}

// Address returns this signer's validator address.
func (s *Signer) Address() crypto.Address {
	return s.key.PubKey().Address()
}

// PubKey returns this signer's public key, for inclusion in a Quorum's
// trusted validator set (by this node itself, or by a peer that learned it
// out of band).
func (s *Signer) PubKey() ed25519.PubKey {
	return s.key.PubKey().(ed25519.PubKey)
}

// Sign produces this node's own Vote over digest.
func (s *Signer) Sign(digest [32]byte) (Vote, error) {
	sig, err := s.key.Sign(digest[:])
	if err != nil {
		return Vote{}, fmt.Errorf("attestation: signing: %w", err)
	}
	return Vote{ValidatorAddress: s.Address(), Signature: sig}, nil
}

// Quorum collects votes from a fixed validator set and reports whether
// RequiredCount of them (including, optionally, this node's own vote)
// agree on the same digest.
type Quorum struct {
	Validators    map[string]ed25519.PubKey // keyed by crypto.Address.String()
	RequiredCount int
}

// NewQuorum builds a Quorum trusting exactly the given public keys.
func NewQuorum(validators []ed25519.PubKey, requiredCount int) *Quorum {
	m := make(map[string]ed25519.PubKey, len(validators))
	for _, v := range validators {
		m[v.Address().String()] = v
	}
	return &Quorum{Validators: m, RequiredCount: requiredCount}
}

// Gather asks every peer to attest to digest, verifies each returned vote
// against the trusted validator set, and returns the accepted votes once
// RequiredCount distinct validators agree (including self, if self is
// non-nil) or ErrQuorumNotMet if peers are exhausted first. A peer that
// errors or returns a vote from an untrusted/mismatched address is
// skipped, not fatal to the batch.
func (q *Quorum) Gather(ctx context.Context, digest [32]byte, self *Vote, peers []Peer) ([]Vote, error) {
	accepted := make([]Vote, 0, q.RequiredCount)
	seen := make(map[string]bool, q.RequiredCount)

	if self != nil && q.accept(digest, *self, seen) {
		accepted = append(accepted, *self)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	votes := make([]Vote, len(peers))
	errs := make([]error, len(peers))

	for i, p := range peers {
		if len(accepted) >= q.RequiredCount {
			break
		}
		wg.Add(1)
		go func(i int, p Peer) {
			defer wg.Done()
			v, err := p.Attest(ctx, digest)
			mu.Lock()
			defer mu.Unlock()
			votes[i], errs[i] = v, err
		}(i, p)
	}
	wg.Wait()

	for i := range peers {
		if errs[i] != nil {
			continue
		}
		if q.accept(digest, votes[i], seen) {
			accepted = append(accepted, votes[i])
		}
	}

	if len(accepted) < q.RequiredCount {
		return accepted, ErrQuorumNotMet
	}
	return accepted, nil
}

func (q *Quorum) accept(digest [32]byte, v Vote, seen map[string]bool) bool {
	key := v.ValidatorAddress.String()
	if seen[key] {
		return false
	}
	pub, ok := q.Validators[key]
	if !ok {
		return false
	}
	if !pub.VerifySignature(digest[:], v.Signature) {
		return false
	}
	seen[key] = true
	return true
}
