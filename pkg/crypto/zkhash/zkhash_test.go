package zkhash

import (
	"math/big"
	"testing"

	"github.com/eco-protocol/portal/pkg/canon"
)

func testWitness() *Witness {
	// 1 + 2*11 + 123456*11^2 + 1000*11^3 + 1*11^4 + 7*11^5 = 17411197 = 0x0109AC7D,
	// the circuit's field commitment over the fields below.
	commitment := [32]byte{28: 0x01, 29: 0x09, 30: 0xAC, 31: 0x7D}
	route := canon.Route{
		Salt:              [32]byte{31: 0x07},
		SourceDomain:      big.NewInt(1),
		DestinationDomain: big.NewInt(2),
	}
	reward := canon.Reward{
		Deadline:    123456,
		NativeValue: big.NewInt(1000),
		Tokens:      []canon.TokenAmount{{Amount: big.NewInt(1)}},
	}
	return WitnessFor(route, reward, commitment)
}

func TestProver_GenerateAndVerifyProof(t *testing.T) {
	p := NewProver()
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	w := testWitness()
	proof, err := p.GenerateProof(w)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}

	ok, err := p.VerifyProofLocally(proof)
	if err != nil {
		t.Fatalf("VerifyProofLocally: %v", err)
	}
	if !ok {
		t.Fatalf("VerifyProofLocally = false, want true for a proof over its own witness")
	}
}

func TestProver_VerifyRejectsWrongCommitment(t *testing.T) {
	p := NewProver()
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	w := testWitness()
	proof, err := p.GenerateProof(w)
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}

	proof.Commitment = [32]byte{0xFF}
	ok, err := p.VerifyProofLocally(proof)
	if err != nil {
		t.Fatalf("VerifyProofLocally: %v", err)
	}
	if ok {
		t.Fatalf("VerifyProofLocally = true, want false once the public commitment is tampered with")
	}
}

func TestProver_GenerateProofBeforeInitializeFails(t *testing.T) {
	p := NewProver()
	if _, err := p.GenerateProof(testWitness()); err == nil {
		t.Fatalf("GenerateProof before Initialize = nil error, want error")
	}
}

func TestProof_ProofHashIsDeterministic(t *testing.T) {
	p := NewProver()
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	proof, err := p.GenerateProof(testWitness())
	if err != nil {
		t.Fatalf("GenerateProof: %v", err)
	}
	if proof.ProofHash() != proof.ProofHash() {
		t.Fatalf("ProofHash is not deterministic across calls")
	}
}
