package ethereum

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCreate2_Deterministic(t *testing.T) {
	deployer := common.HexToAddress("0x00000000000000000000000000000000000001")
	salt := [32]byte{0x01, 0x02}
	initCodeHash := [32]byte{0x03}

	a := create2(deployer, salt, initCodeHash)
	b := create2(deployer, salt, initCodeHash)
	if a != b {
		t.Fatalf("create2 not deterministic: %s != %s", a.Hex(), b.Hex())
	}

	otherSalt := [32]byte{0x09}
	c := create2(deployer, otherSalt, initCodeHash)
	if a == c {
		t.Fatalf("create2 collided across distinct salts")
	}
}

func TestDeriveExecutionAuthority_VariesBySalt(t *testing.T) {
	adapter := &Adapter{
		factory:       common.HexToAddress("0x00000000000000000000000000000000000002"),
		authorityHash: [32]byte{0x0a},
	}
	id1 := adapter.DeriveExecutionAuthority([32]byte{0x01})
	id2 := adapter.DeriveExecutionAuthority([32]byte{0x02})
	if id1 == id2 {
		t.Fatalf("DeriveExecutionAuthority collided across distinct salts")
	}
	if id1.IsZero() {
		t.Fatalf("DeriveExecutionAuthority returned zero ID")
	}
}
