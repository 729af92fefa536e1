// Copyright 2025 Eco Protocol
//
// Package id32 implements the fixed-width identifier used across the
// destination-side Portal/Prover core: contract, token, and account
// addresses are all represented as a single 32-byte value regardless of
// which chain they are local to.

package id32

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNonZeroUpperBytes is returned when narrowing an Id32 to a 20-byte
// native address would silently drop non-zero high bytes.
var ErrNonZeroUpperBytes = errors.New("id32: upper 12 bytes are non-zero, cannot narrow to 20-byte address")

// ID is a fixed 32-byte opaque identifier, chain-local or foreign.
type ID [32]byte

// Zero is the zero-valued identifier.
var Zero ID

// IsZero reports whether id is the all-zero identifier.
func (id ID) IsZero() bool {
	return id == Zero
}

// Bytes returns a copy of the identifier's 32 bytes.
func (id ID) Bytes() []byte {
	out := make([]byte, 32)
	copy(out, id[:])
	return out
}

// String renders the identifier as a 0x-prefixed hex string.
func (id ID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// FromBytes builds an ID from an arbitrary byte slice, left-zero-padding
// short input and rejecting input longer than 32 bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) > 32 {
		return id, fmt.Errorf("id32: input has %d bytes, want at most 32", len(b))
	}
	copy(id[32-len(b):], b)
	return id, nil
}

// FromEVMAddress maps a 20-byte EVM address into an ID by left-zero-padding
// the missing 12 bytes, per the protocol's native-address-to-Id32 rule.
func FromEVMAddress(addr common.Address) ID {
	var id ID
	copy(id[12:], addr.Bytes())
	return id
}

// ToEVMAddress narrows an ID back to a 20-byte EVM address. It is only
// defined when the top 12 bytes are zero; otherwise ErrNonZeroUpperBytes is
// returned so callers never silently truncate a foreign identifier.
func ToEVMAddress(id ID) (common.Address, error) {
	for _, b := range id[:12] {
		if b != 0 {
			return common.Address{}, ErrNonZeroUpperBytes
		}
	}
	var addr common.Address
	copy(addr[:], id[12:])
	return addr, nil
}

// MarshalJSON renders the identifier as a 0x-prefixed hex string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON parses a 0x-prefixed hex string into the identifier.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseHex(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseHex parses a 0x-prefixed (or bare) hex string into an ID.
func ParseHex(s string) (ID, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("id32: invalid hex: %w", err)
	}
	return FromBytes(b)
}
