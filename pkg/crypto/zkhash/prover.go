// Copyright 2025 Eco Protocol
//
// Canonical Encoding ZK Prover - Generates Groth16 proofs that a prover
// knows the Route/Reward fields committing to a public value.
//
// This package provides:
//   - Circuit compilation and setup (one-time)
//   - Proof generation for a Route/Reward commitment
//   - Verification key export for distribution to light clients
//   - Proof serialization for transport

package zkhash

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Prover handles ZK proof generation for canonical-encoding commitments.
type Prover struct {
	mu sync.RWMutex

	cs constraint.ConstraintSystem

	pk groth16.ProvingKey
	vk groth16.VerifyingKey

	initialized bool
}

// Proof is a generated proof ready for transport to a light client.
type Proof struct {
	ProofA [2]*big.Int    `json:"proofA"`
	ProofB [2][2]*big.Int `json:"proofB"`
	ProofC [2]*big.Int    `json:"proofC"`

	Commitment [32]byte `json:"commitment"`
}

// VerificationKeyExport contains the verification key in a transport-ready
// format, for distribution to light clients that verify proofs off-chain.
type VerificationKeyExport struct {
	Alpha1 [2]*big.Int    `json:"alpha1"`
	Beta2  [2][2]*big.Int `json:"beta2"`
	Gamma2 [2][2]*big.Int `json:"gamma2"`
	Delta2 [2][2]*big.Int `json:"delta2"`
	IC     [][2]*big.Int  `json:"ic"`
}

// Witness contains the private and public inputs for proof generation.
type Witness struct {
	Commitment [32]byte

	SourceDomain      uint32
	DestinationDomain uint32
	Deadline          uint64
	NativeValue       *big.Int
	TokenCount        uint32
	SaltLow           uint64
}

// NewProver creates a new canonical-encoding ZK prover instance.
func NewProver() *Prover {
	return &Prover{}
}

// Initialize compiles the circuit and generates proving/verification keys.
// This is a one-time setup operation that can take several seconds.
func (p *Prover) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	var circuit CanonicalCommitmentCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return fmt.Errorf("compile circuit: %w", err)
	}
	p.cs = cs

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}
	p.pk = pk
	p.vk = vk

	p.initialized = true
	return nil
}

// InitializeFromKeys loads pre-generated keys from files, for a node that
// ran zkhash-setup once and doesn't want to pay the trusted-setup cost
// again on every restart.
func (p *Prover) InitializeFromKeys(pkPath, vkPath, csPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	csFile, err := os.Open(csPath)
	if err != nil {
		return fmt.Errorf("open constraint system: %w", err)
	}
	defer csFile.Close()

	p.cs = groth16.NewCS(ecc.BN254)
	if _, err := p.cs.ReadFrom(csFile); err != nil {
		return fmt.Errorf("read constraint system: %w", err)
	}

	pkFile, err := os.Open(pkPath)
	if err != nil {
		return fmt.Errorf("open proving key: %w", err)
	}
	defer pkFile.Close()

	p.pk = groth16.NewProvingKey(ecc.BN254)
	if _, err := p.pk.ReadFrom(pkFile); err != nil {
		return fmt.Errorf("read proving key: %w", err)
	}

	vkFile, err := os.Open(vkPath)
	if err != nil {
		return fmt.Errorf("open verification key: %w", err)
	}
	defer vkFile.Close()

	p.vk = groth16.NewVerifyingKey(ecc.BN254)
	if _, err := p.vk.ReadFrom(vkFile); err != nil {
		return fmt.Errorf("read verification key: %w", err)
	}

	p.initialized = true
	return nil
}

// SaveKeys saves the generated keys to files (cmd/zkhash-setup calls it) so
// that InitializeFromKeys can load them later.
func (p *Prover) SaveKeys(pkPath, vkPath, csPath string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return errors.New("prover not initialized")
	}

	csFile, err := os.Create(csPath)
	if err != nil {
		return fmt.Errorf("create constraint system file: %w", err)
	}
	defer csFile.Close()
	if _, err := p.cs.WriteTo(csFile); err != nil {
		return fmt.Errorf("write constraint system: %w", err)
	}

	pkFile, err := os.Create(pkPath)
	if err != nil {
		return fmt.Errorf("create proving key file: %w", err)
	}
	defer pkFile.Close()
	if _, err := p.pk.WriteTo(pkFile); err != nil {
		return fmt.Errorf("write proving key: %w", err)
	}

	vkFile, err := os.Create(vkPath)
	if err != nil {
		return fmt.Errorf("create verification key file: %w", err)
	}
	defer vkFile.Close()
	if _, err := p.vk.WriteTo(vkFile); err != nil {
		return fmt.Errorf("write verification key: %w", err)
	}

	return nil
}

// GenerateProof generates a ZK proof that the witness's private fields
// commit to witness.Commitment.
func (p *Prover) GenerateProof(witness *Witness) (*Proof, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return nil, errors.New("prover not initialized")
	}

	nativeValue := witness.NativeValue
	if nativeValue == nil {
		nativeValue = big.NewInt(0)
	}

	assignment := &CanonicalCommitmentCircuit{
		Commitment:        new(big.Int).SetBytes(witness.Commitment[:]),
		SourceDomain:      witness.SourceDomain,
		DestinationDomain: witness.DestinationDomain,
		Deadline:          witness.Deadline,
		NativeValue:       nativeValue,
		TokenCount:        witness.TokenCount,
		SaltLow:           witness.SaltLow,
	}

	witnessData, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}

	proof, err := groth16.Prove(p.cs, p.pk, witnessData)
	if err != nil {
		return nil, fmt.Errorf("generate proof: %w", err)
	}

	zkProof, err := extractProofComponents(proof)
	if err != nil {
		return nil, fmt.Errorf("extract proof components: %w", err)
	}
	zkProof.Commitment = witness.Commitment

	return zkProof, nil
}

// VerifyProofLocally verifies a proof, for use by the light client consuming it.
func (p *Prover) VerifyProofLocally(proof *Proof) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return false, errors.New("prover not initialized")
	}

	assignment := &CanonicalCommitmentCircuit{
		Commitment: new(big.Int).SetBytes(proof.Commitment[:]),
	}

	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("create public witness: %w", err)
	}

	groth16Proof, err := reconstructProof(proof)
	if err != nil {
		return false, fmt.Errorf("reconstruct proof: %w", err)
	}

	if err := groth16.Verify(groth16Proof, p.vk, publicWitness); err != nil {
		return false, nil
	}

	return true, nil
}

// ExportVerificationKey exports the verification key for distribution.
func (p *Prover) ExportVerificationKey() (*VerificationKeyExport, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return nil, errors.New("prover not initialized")
	}

	vkBN254, ok := p.vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, errors.New("verification key is not BN254 type")
	}

	alpha1X, alpha1Y := new(big.Int), new(big.Int)
	vkBN254.G1.Alpha.X.BigInt(alpha1X)
	vkBN254.G1.Alpha.Y.BigInt(alpha1Y)

	beta2X0, beta2X1, beta2Y0, beta2Y1 := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	vkBN254.G2.Beta.X.A0.BigInt(beta2X0)
	vkBN254.G2.Beta.X.A1.BigInt(beta2X1)
	vkBN254.G2.Beta.Y.A0.BigInt(beta2Y0)
	vkBN254.G2.Beta.Y.A1.BigInt(beta2Y1)

	gamma2X0, gamma2X1, gamma2Y0, gamma2Y1 := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	vkBN254.G2.Gamma.X.A0.BigInt(gamma2X0)
	vkBN254.G2.Gamma.X.A1.BigInt(gamma2X1)
	vkBN254.G2.Gamma.Y.A0.BigInt(gamma2Y0)
	vkBN254.G2.Gamma.Y.A1.BigInt(gamma2Y1)

	delta2X0, delta2X1, delta2Y0, delta2Y1 := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	vkBN254.G2.Delta.X.A0.BigInt(delta2X0)
	vkBN254.G2.Delta.X.A1.BigInt(delta2X1)
	vkBN254.G2.Delta.Y.A0.BigInt(delta2Y0)
	vkBN254.G2.Delta.Y.A1.BigInt(delta2Y1)

	icPoints := make([][2]*big.Int, len(vkBN254.G1.K))
	for i, icPoint := range vkBN254.G1.K {
		icX, icY := new(big.Int), new(big.Int)
		icPoint.X.BigInt(icX)
		icPoint.Y.BigInt(icY)
		icPoints[i] = [2]*big.Int{icX, icY}
	}

	return &VerificationKeyExport{
		Alpha1: [2]*big.Int{alpha1X, alpha1Y},
		Beta2:  [2][2]*big.Int{{beta2X0, beta2X1}, {beta2Y0, beta2Y1}},
		Gamma2: [2][2]*big.Int{{gamma2X0, gamma2X1}, {gamma2Y0, gamma2Y1}},
		Delta2: [2][2]*big.Int{{delta2X0, delta2X1}, {delta2Y0, delta2Y1}},
		IC:     icPoints,
	}, nil
}

// ExportVerificationKeyJSON exports the verification key as JSON, the
// format cmd/zkhash-setup writes to disk for light clients to fetch.
func (p *Prover) ExportVerificationKeyJSON() ([]byte, error) {
	export, err := p.ExportVerificationKey()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(export, "", "  ")
}

// ProofHash returns a hash of the proof for caching/deduplication.
func (proof *Proof) ProofHash() [32]byte {
	h := sha256.New()
	h.Write(padBigInt(proof.ProofA[0]))
	h.Write(padBigInt(proof.ProofA[1]))
	h.Write(padBigInt(proof.ProofC[0]))
	h.Write(padBigInt(proof.ProofC[1]))
	h.Write(proof.Commitment[:])

	var result [32]byte
	copy(result[:], h.Sum(nil))
	return result
}

// extractProofComponents extracts A, B, C points from a gnark proof.
func extractProofComponents(proof groth16.Proof) (*Proof, error) {
	proofBN254, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, errors.New("proof is not BN254 type")
	}

	proofAX, proofAY := new(big.Int), new(big.Int)
	proofBN254.Ar.X.BigInt(proofAX)
	proofBN254.Ar.Y.BigInt(proofAY)

	proofBX0, proofBX1, proofBY0, proofBY1 := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	proofBN254.Bs.X.A0.BigInt(proofBX0)
	proofBN254.Bs.X.A1.BigInt(proofBX1)
	proofBN254.Bs.Y.A0.BigInt(proofBY0)
	proofBN254.Bs.Y.A1.BigInt(proofBY1)

	proofCX, proofCY := new(big.Int), new(big.Int)
	proofBN254.Krs.X.BigInt(proofCX)
	proofBN254.Krs.Y.BigInt(proofCY)

	return &Proof{
		ProofA: [2]*big.Int{proofAX, proofAY},
		ProofB: [2][2]*big.Int{
			{proofBX0, proofBX1},
			{proofBY0, proofBY1},
		},
		ProofC: [2]*big.Int{proofCX, proofCY},
	}, nil
}

// reconstructProof reconstructs a gnark proof from its serialized components.
func reconstructProof(zkProof *Proof) (groth16.Proof, error) {
	proof := &groth16_bn254.Proof{}

	proof.Ar.X.SetBigInt(zkProof.ProofA[0])
	proof.Ar.Y.SetBigInt(zkProof.ProofA[1])

	proof.Bs.X.A0.SetBigInt(zkProof.ProofB[0][0])
	proof.Bs.X.A1.SetBigInt(zkProof.ProofB[0][1])
	proof.Bs.Y.A0.SetBigInt(zkProof.ProofB[1][0])
	proof.Bs.Y.A1.SetBigInt(zkProof.ProofB[1][1])

	proof.Krs.X.SetBigInt(zkProof.ProofC[0])
	proof.Krs.Y.SetBigInt(zkProof.ProofC[1])

	return proof, nil
}

// padBigInt pads a big.Int to 32 bytes, big-endian.
func padBigInt(n *big.Int) []byte {
	out := make([]byte, 32)
	if n == nil {
		return out
	}
	b := n.Bytes()
	copy(out[32-len(b):], b)
	return out
}
