package canon

import (
	"fmt"
	"math/big"
)

// EncodeProofBody produces the canonical byte string for an outbound proof
// message body: the ABI-style encoding of (hashes: bytes32[], claimants:
// bytes32[]), as two dynamic arrays addressed by head offsets.
func EncodeProofBody(hashes [][32]byte, claimants [][32]byte) []byte {
	hashesOffset := big.NewInt(2 * wordLen)
	claimantsOffset := big.NewInt(int64(2*wordLen + wordLen + len(hashes)*wordLen))

	out := make([]byte, 0, 2*wordLen+wordLen+len(hashes)*wordLen+wordLen+len(claimants)*wordLen)
	out = writeWord(out, hashesOffset)
	out = writeWord(out, claimantsOffset)

	out = writeUint(out, uint64(len(hashes)))
	for _, h := range hashes {
		out = writeBytes32(out, h)
	}

	out = writeUint(out, uint64(len(claimants)))
	for _, c := range claimants {
		out = writeBytes32(out, c)
	}

	return out
}

// DecodeProofBody reverses EncodeProofBody, returning ArrayLengthMismatch-shaped
// errors on any structural fault so callers can reject the whole batch.
func DecodeProofBody(body []byte) (hashes [][32]byte, claimants [][32]byte, err error) {
	if len(body) < 2*wordLen {
		return nil, nil, fmt.Errorf("canon: proof body too short: %d bytes", len(body))
	}
	hashesOffset := new(big.Int).SetBytes(body[0:wordLen]).Int64()
	claimantsOffset := new(big.Int).SetBytes(body[wordLen:2*wordLen]).Int64()

	hashes, next, err := decodeBytes32Array(body, hashesOffset)
	if err != nil {
		return nil, nil, fmt.Errorf("canon: decoding hashes: %w", err)
	}
	_ = next
	claimants, _, err = decodeBytes32Array(body, claimantsOffset)
	if err != nil {
		return nil, nil, fmt.Errorf("canon: decoding claimants: %w", err)
	}
	if len(hashes) != len(claimants) {
		return nil, nil, fmt.Errorf("canon: array length mismatch: %d hashes, %d claimants", len(hashes), len(claimants))
	}
	return hashes, claimants, nil
}

func decodeBytes32Array(body []byte, offset int64) ([][32]byte, int64, error) {
	if offset < 0 || offset+int64(wordLen) > int64(len(body)) {
		return nil, 0, fmt.Errorf("offset %d out of range", offset)
	}
	length := new(big.Int).SetBytes(body[offset : offset+wordLen]).Int64()
	start := offset + wordLen
	end := start + length*int64(wordLen)
	if length < 0 || end > int64(len(body)) {
		return nil, 0, fmt.Errorf("array of length %d at offset %d exceeds body", length, offset)
	}
	out := make([][32]byte, length)
	for i := int64(0); i < length; i++ {
		copy(out[i][:], body[start+i*int64(wordLen):start+(i+1)*int64(wordLen)])
	}
	return out, end, nil
}
