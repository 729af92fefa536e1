// Copyright 2025 Eco Protocol

package zkhash

import (
	"encoding/binary"
	"math/big"

	"github.com/eco-protocol/portal/pkg/canon"
)

// WitnessFor builds the Witness for a Route/Reward pair with commitment as
// its public value. GenerateProof only succeeds when commitment, read as a
// big-endian integer, equals the circuit's linear field commitment over these
// fields (see computeFieldCommitment); any other value, canon.IntentHash
// included, makes proof generation fail.
func WitnessFor(route canon.Route, reward canon.Reward, commitment [32]byte) *Witness {
	nativeValue := reward.NativeValue
	if nativeValue == nil {
		nativeValue = big.NewInt(0)
	}

	return &Witness{
		Commitment:        commitment,
		SourceDomain:      domainUint32(route.SourceDomain),
		DestinationDomain: domainUint32(route.DestinationDomain),
		Deadline:          reward.Deadline,
		NativeValue:       nativeValue,
		TokenCount:        uint32(len(reward.Tokens)),
		SaltLow:           binary.BigEndian.Uint64(route.Salt[24:]),
	}
}

func domainUint32(domain *big.Int) uint32 {
	if domain == nil {
		return 0
	}
	return uint32(domain.Uint64())
}
