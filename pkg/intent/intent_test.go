package intent

import (
	"math/big"
	"testing"

	"github.com/eco-protocol/portal/pkg/id32"
)

func TestIntent_HashMatchesCanon(t *testing.T) {
	var tok id32.ID
	tok[31] = 0x01
	var inbox id32.ID
	inbox[31] = 0x42
	var creator, prover id32.ID
	creator[31] = 0x01
	prover[31] = 0x02

	route := Route{
		SourceDomain:      big.NewInt(10),
		DestinationDomain: big.NewInt(1399811149),
		Inbox:             inbox,
		Tokens:            []TokenAmount{{Token: tok, Amount: big.NewInt(1_000_000)}},
	}
	reward := Reward{
		Creator:     creator,
		Prover:      prover,
		Deadline:    211160000,
		NativeValue: big.NewInt(100_000),
	}

	i := New(route, reward)
	if i.Hash() != i.Hash() {
		t.Fatalf("Intent.Hash is not stable across calls")
	}
	if i.RouteHash() == [32]byte{} {
		t.Fatalf("RouteHash returned zero value")
	}
	if i.RewardHash() == [32]byte{} {
		t.Fatalf("RewardHash returned zero value")
	}
}
