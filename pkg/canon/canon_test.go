package canon

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eco-protocol/portal/pkg/id32"
)

func mustID(t *testing.T, b byte) id32.ID {
	t.Helper()
	var id id32.ID
	id[31] = b
	return id
}

func TestEncodeRoute_EmptyArrays(t *testing.T) {
	r := Route{
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(1399811149),
		Inbox:             mustID(t, 0x42),
	}
	got := EncodeRoute(r)
	want := 6*wordLen + wordLen + wordLen // head + empty token length + empty call length
	if len(got) != want {
		t.Fatalf("len(EncodeRoute) = %d, want %d", len(got), want)
	}
}

func TestEncodeRoute_Deterministic(t *testing.T) {
	r := Route{
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(1399811149),
		Inbox:             mustID(t, 0x42),
		Tokens: []TokenAmount{
			{Token: mustID(t, 0x01), Amount: big.NewInt(1_000_000)},
		},
		Calls: []Call{
			{Target: mustID(t, 0x01), Data: []byte("transfer"), Value: big.NewInt(0)},
		},
	}
	a := EncodeRoute(r)
	b := EncodeRoute(r)
	if !bytes.Equal(a, b) {
		t.Fatalf("EncodeRoute is not deterministic")
	}
}

func TestEncodeRoute_CallDataLenDuplicated(t *testing.T) {
	data := []byte("abcdefghij") // 10 bytes, pads to 32
	r := Route{
		SourceDomain:      big.NewInt(1),
		DestinationDomain: big.NewInt(2),
		Inbox:             mustID(t, 0x01),
		Calls: []Call{
			{Target: mustID(t, 0x09), Data: data, Value: big.NewInt(0)},
		},
	}
	enc := EncodeRoute(r)

	// head(6) + tokens length(1) + calls length(1) + one offset word = 9 words in.
	bodyStart := 9 * wordLen
	// body: target(32) + data_offset(32) + value(32) + len(32) + len(32) = 160 bytes in before data.
	lenWordA := enc[bodyStart+96 : bodyStart+128]
	lenWordB := enc[bodyStart+128 : bodyStart+160]
	if !bytes.Equal(lenWordA, lenWordB) {
		t.Fatalf("duplicated call data-length word mismatch: %x != %x", lenWordA, lenWordB)
	}
	want := big.NewInt(int64(len(data))).Bytes()
	got := bytes.TrimLeft(lenWordA, "\x00")
	if !bytes.Equal(got, want) {
		t.Fatalf("call data length = %x, want %x", got, want)
	}
}

func TestEncodeReward_EmptyTokens(t *testing.T) {
	r := Reward{
		Creator:     mustID(t, 0x01),
		Prover:      mustID(t, 0x02),
		Deadline:    211160000,
		NativeValue: big.NewInt(100_000),
	}
	got := EncodeReward(r)
	want := 5*wordLen + wordLen
	if len(got) != want {
		t.Fatalf("len(EncodeReward) = %d, want %d", len(got), want)
	}
}

func TestIntentHash_Deterministic(t *testing.T) {
	route := Route{
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(1399811149),
		Inbox:             mustID(t, 0x42),
		Tokens: []TokenAmount{
			{Token: mustID(t, 0x01), Amount: big.NewInt(1_000_000)},
		},
	}
	reward := Reward{
		Creator:     mustID(t, 0x01),
		Prover:      mustID(t, 0x02),
		Deadline:    211160000,
		NativeValue: big.NewInt(100_000),
	}

	h1 := IntentHash(route, reward)
	h2 := IntentHash(route, reward)
	if h1 != h2 {
		t.Fatalf("IntentHash not deterministic: %x != %x", h1, h2)
	}

	reward2 := reward
	reward2.NativeValue = big.NewInt(100_001)
	h3 := IntentHash(route, reward2)
	if h1 == h3 {
		t.Fatalf("IntentHash did not change when reward changed")
	}
}

func TestIntentHash_MatchesSeparateRouteRewardHashes(t *testing.T) {
	route := Route{SourceDomain: big.NewInt(1), DestinationDomain: big.NewInt(2), Inbox: mustID(t, 0x01)}
	reward := Reward{Creator: mustID(t, 0x01), Prover: mustID(t, 0x02), Deadline: 1}

	got := IntentHash(route, reward)
	rh := RouteHash(route)
	wh := RewardHash(reward)
	want := [32]byte(crypto.Keccak256Hash(append(append([]byte{}, rh[:]...), wh[:]...)))
	if got != want {
		t.Fatalf("IntentHash = %x, want %x", got, want)
	}
}

// TestIntentHash_PinnedVector guards the ABI layout itself, not just its
// self-consistency: route_hash, reward_hash and intent_hash are pinned to
// values derived independently from the documented EncodeRoute/EncodeReward
// layout (head words, array offsets, the duplicated call data_len) for one
// concrete single-token/single-call route and a token-less reward. A change
// to word ordering, offset arithmetic, or the data_len duplication will flip
// these constants.
func TestIntentHash_PinnedVector(t *testing.T) {
	route := Route{
		Salt:              [32]byte(mustID(t, 0x01)),
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(1399811149),
		Inbox:             mustID(t, 0x42),
		Tokens: []TokenAmount{
			{Token: mustID(t, 0x01), Amount: big.NewInt(1_000_000)},
		},
		Calls: []Call{
			{Target: mustID(t, 0x01), Data: []byte("transfer"), Value: big.NewInt(0)},
		},
	}
	reward := Reward{
		Creator:     mustID(t, 0x01),
		Prover:      mustID(t, 0x02),
		Deadline:    211160000,
		NativeValue: big.NewInt(100_000),
	}

	wantRouteHash := mustHash(t, "59a97cb5da60cb1779d5a3a42a43b047c658b4a5e3abb442b4ebad5c04041561")
	wantRewardHash := mustHash(t, "1860e595a58e8a5566919cbf83da1465044d7749fd22cb71a036c21f48132563")
	wantIntentHash := mustHash(t, "89e192079667a202c37534dda92f3664a9812b31f66c9f8bc06cf163718f67b4")

	if rh := RouteHash(route); rh != wantRouteHash {
		t.Fatalf("RouteHash = %x, want %x", rh, wantRouteHash)
	}
	if wh := RewardHash(reward); wh != wantRewardHash {
		t.Fatalf("RewardHash = %x, want %x", wh, wantRewardHash)
	}
	if ih := IntentHash(route, reward); ih != wantIntentHash {
		t.Fatalf("IntentHash = %x, want %x", ih, wantIntentHash)
	}
}

func mustHash(t *testing.T, hexStr string) [32]byte {
	t.Helper()
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		t.Fatalf("bad test fixture hash %q: %v", hexStr, err)
	}
	return [32]byte(b)
}

func TestEncodeRoute_ZeroAmountTokenStillListed(t *testing.T) {
	r := Route{
		SourceDomain:      big.NewInt(1),
		DestinationDomain: big.NewInt(2),
		Inbox:             mustID(t, 0x01),
		Tokens: []TokenAmount{
			{Token: mustID(t, 0x05), Amount: big.NewInt(0)},
		},
	}
	enc := EncodeRoute(r)
	want := 6*wordLen + wordLen + 2*wordLen + wordLen
	if len(enc) != want {
		t.Fatalf("len(EncodeRoute) with zero-amount token = %d, want %d", len(enc), want)
	}
}
