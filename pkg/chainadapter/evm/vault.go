package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eco-protocol/portal/pkg/id32"
)

// VaultAdapter implements pkg/lifecycle.TokenTransferor over the same
// Ethereum chain the destination-side Adapter drives. It uses one configured
// vault address for every intent; no per-intent vault address is derived.
type VaultAdapter struct {
	client  *Client
	vault   common.Address
	adapter *Adapter
}

// NewVaultAdapter builds a VaultAdapter that pulls into vault, reusing
// adapter's signing key and gas handling.
func NewVaultAdapter(client *Client, vault common.Address, adapter *Adapter) *VaultAdapter {
	return &VaultAdapter{client: client, vault: vault, adapter: adapter}
}

// Pull moves amount of token from funder into the vault. Native value
// cannot be pulled by a contract call; a native Pull only reconciles an
// already-received deposit and is a no-op here, following the same
// funding-by-direct-deposit convention the EVM reference vault uses for
// its native leg.
func (v *VaultAdapter) Pull(ctx context.Context, token id32.ID, amount *big.Int, from id32.ID) error {
	if token.IsZero() {
		return nil
	}
	tokenAddr, err := id32.ToEVMAddress(token)
	if err != nil {
		return fmt.Errorf("ethereum: token: %w", err)
	}
	fromAddr, err := id32.ToEVMAddress(from)
	if err != nil {
		return fmt.Errorf("ethereum: funder: %w", err)
	}
	data, err := erc20ABI.Pack("transferFrom", fromAddr, v.vault, amount)
	if err != nil {
		return fmt.Errorf("ethereum: packing transferFrom: %w", err)
	}
	return v.adapter.send(ctx, tokenAddr, big.NewInt(0), data)
}

// Pay sends amount of token to recipient from the operator key's own
// account: the transfer is signed by adapter's key, and the vault address's
// balance is not drawn on.
func (v *VaultAdapter) Pay(ctx context.Context, token id32.ID, amount *big.Int, to id32.ID) error {
	toAddr, err := id32.ToEVMAddress(to)
	if err != nil {
		return fmt.Errorf("ethereum: recipient: %w", err)
	}
	if token.IsZero() {
		return v.adapter.sendValue(ctx, toAddr, amount)
	}
	tokenAddr, err := id32.ToEVMAddress(token)
	if err != nil {
		return fmt.Errorf("ethereum: token: %w", err)
	}
	data, err := erc20ABI.Pack("transfer", toAddr, amount)
	if err != nil {
		return fmt.Errorf("ethereum: packing transfer: %w", err)
	}
	return v.adapter.send(ctx, tokenAddr, big.NewInt(0), data)
}
