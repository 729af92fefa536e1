package canon

import (
	"encoding/binary"
	"math/big"
)

const wordLen = 32

// writeWord appends v, left-padded to a 32-byte word, to buf.
func writeWord(buf []byte, v *big.Int) []byte {
	var word [wordLen]byte
	if v != nil {
		b := v.Bytes()
		if len(b) > wordLen {
			b = b[len(b)-wordLen:]
		}
		copy(word[wordLen-len(b):], b)
	}
	return append(buf, word[:]...)
}

func writeUint(buf []byte, v uint64) []byte {
	var word [wordLen]byte
	binary.BigEndian.PutUint64(word[wordLen-8:], v)
	return append(buf, word[:]...)
}

func writeBytes32(buf []byte, b [32]byte) []byte {
	return append(buf, b[:]...)
}

func writeID(buf []byte, id [32]byte) []byte {
	return append(buf, id[:]...)
}

// padTo32 right-pads b with zero bytes to the next multiple of 32.
func padTo32(b []byte) []byte {
	rem := len(b) % wordLen
	if rem == 0 {
		return b
	}
	return append(b, make([]byte, wordLen-rem)...)
}

// EncodeRoute produces the canonical byte string for a Route, matching the
// source chain's ABI layout bit-for-bit:
//
//	head:  salt, source_domain, destination_domain, inbox,
//	       token_array_offset, call_array_offset   (6 words)
//	body:  tokens: length, (token, amount)*
//	       calls:  length, offset*, then per-call (target, data_offset,
//	               value, data_len, data_len, data_padded)
//
// The duplicated call data-length word is a deliberate reproduction of the
// source contract's on-wire quirk.
func EncodeRoute(r Route) []byte {
	tokenSectionLen := wordLen + len(r.Tokens)*2*wordLen

	tokenArrayOffset := big.NewInt(int64(6 * wordLen))
	callArrayOffset := big.NewInt(int64(6*wordLen + tokenSectionLen))

	out := make([]byte, 0, 6*wordLen+tokenSectionLen+4096)
	out = writeBytes32(out, r.Salt)
	out = writeWord(out, r.SourceDomain)
	out = writeWord(out, r.DestinationDomain)
	out = writeID(out, r.Inbox)
	out = writeWord(out, tokenArrayOffset)
	out = writeWord(out, callArrayOffset)

	out = writeUint(out, uint64(len(r.Tokens)))
	for _, t := range r.Tokens {
		out = writeID(out, t.Token)
		out = writeWord(out, t.Amount)
	}

	out = writeUint(out, uint64(len(r.Calls)))

	// Lay out call bodies first so each offset (relative to the start of
	// the calls array's data, i.e. right after the length word) is known
	// before the offset head is written.
	bodies := make([][]byte, len(r.Calls))
	for i, c := range r.Calls {
		dataLen := big.NewInt(int64(len(c.Data)))
		var body []byte
		body = writeID(body, c.Target)
		body = writeWord(body, big.NewInt(3*wordLen)) // data_offset: fixed, past target/data_offset/value
		body = writeWord(body, c.Value)
		body = writeWord(body, dataLen)
		body = writeWord(body, dataLen)
		body = append(body, padTo32(append([]byte{}, c.Data...))...)
		bodies[i] = body
	}

	offsetsLen := len(r.Calls) * wordLen
	cursor := offsetsLen
	for _, body := range bodies {
		out = writeWord(out, big.NewInt(int64(cursor)))
		cursor += len(body)
	}
	for _, body := range bodies {
		out = append(out, body...)
	}

	return out
}

// EncodeReward produces the canonical byte string for a Reward:
//
//	head: creator, prover, deadline, native_value, token_array_offset (5 words)
//	body: length, (token, amount)*
func EncodeReward(r Reward) []byte {
	tokenArrayOffset := big.NewInt(5 * wordLen)

	out := make([]byte, 0, 5*wordLen+wordLen+len(r.Tokens)*2*wordLen)
	out = writeID(out, r.Creator)
	out = writeID(out, r.Prover)
	out = writeUint(out, r.Deadline)
	out = writeWord(out, r.NativeValue)
	out = writeWord(out, tokenArrayOffset)

	out = writeUint(out, uint64(len(r.Tokens)))
	for _, t := range r.Tokens {
		out = writeID(out, t.Token)
		out = writeWord(out, t.Amount)
	}
	return out
}
