package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
)

// erc20ABIJSON is the minimal ERC20 surface the fulfillment/lifecycle
// adapters need: balance-checked transfer and allowance-checked pull.
const erc20ABIJSON = `[
	{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferFrom","type":"function","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// proverABIJSON exposes the one view call the fulfillment engine uses to
// keep a solver from routing a call at the trusted prover contract.
const proverABIJSON = `[
	{"name":"isProver","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]}
]`

var erc20ABI abi.ABI
var proverABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("ethereum: parsing embedded erc20 ABI: %v", err))
	}
	proverABI, err = abi.JSON(strings.NewReader(proverABIJSON))
	if err != nil {
		panic(fmt.Sprintf("ethereum: parsing embedded prover ABI: %v", err))
	}
}

// Adapter implements pkg/fulfillment.Adapter over a live Ethereum chain.
// Execution authorities are CREATE2 addresses computed deterministically
// from a configured factory and the salt the caller supplies, following the
// program-derived-address idiom the wire protocol assumes.
type Adapter struct {
	client        *Client
	factory       common.Address
	authorityHash [32]byte // init code hash of the execution-authority proxy
	privateKey    *ecdsa.PrivateKey
	log           *log.Logger
}

// NewAdapter builds an Adapter over client, deriving execution authorities
// under factory with the given proxy init code hash, signing outbound
// transactions with privateKeyHex.
func NewAdapter(client *Client, factory common.Address, authorityInitCodeHash [32]byte, privateKeyHex string) (*Adapter, error) {
	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("ethereum: parsing operator key: %w", err)
	}
	return &Adapter{
		client:        client,
		factory:       factory,
		authorityHash: authorityInitCodeHash,
		privateKey:    key,
		log:           log.New(os.Stderr, "[EVMAdapter] ", log.LstdFlags),
	}, nil
}

// create2 computes keccak256(0xff ++ deployer ++ salt ++ initCodeHash)[12:],
// the standard deterministic counterfactual contract address.
func create2(deployer common.Address, salt [32]byte, initCodeHash [32]byte) common.Address {
	payload := make([]byte, 0, 1+20+32+32)
	payload = append(payload, 0xff)
	payload = append(payload, deployer.Bytes()...)
	payload = append(payload, salt[:]...)
	payload = append(payload, initCodeHash[:]...)
	return common.BytesToAddress(gethcrypto.Keccak256(payload)[12:])
}

// DeriveExecutionAuthority returns the CREATE2 address of the per-salt
// authority that signs for this fulfillment.
func (a *Adapter) DeriveExecutionAuthority(salt [32]byte) id32.ID {
	return id32.FromEVMAddress(create2(a.factory, salt, a.authorityHash))
}

// TransferToken moves amount of token to recipient. The zero id32.ID token
// names native value. from is unused: every outbound transaction is signed
// by this adapter's single operator key, so the on-chain sender is fixed
// regardless of which logical account the engine thinks it's moving funds
// from; from is accepted only to satisfy fulfillment.Adapter.
func (a *Adapter) TransferToken(ctx context.Context, token id32.ID, amount *big.Int, from, recipient id32.ID) error {
	to, err := id32.ToEVMAddress(recipient)
	if err != nil {
		return fmt.Errorf("ethereum: recipient: %w", err)
	}
	if token.IsZero() {
		return a.sendValue(ctx, to, amount)
	}
	tokenAddr, err := id32.ToEVMAddress(token)
	if err != nil {
		return fmt.Errorf("ethereum: token: %w", err)
	}
	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("ethereum: packing transfer: %w", err)
	}
	return a.send(ctx, tokenAddr, big.NewInt(0), data)
}

// InvokeCall executes an arbitrary route call. authority is unused: the
// transaction is signed and sent by this adapter's operator key, so the
// call's on-chain sender is the operator account, not the execution
// authority's address.
func (a *Adapter) InvokeCall(ctx context.Context, authority id32.ID, call canon.Call) error {
	target, err := id32.ToEVMAddress(call.Target)
	if err != nil {
		return fmt.Errorf("ethereum: call target: %w", err)
	}
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return a.send(ctx, target, value, call.Data)
}

// IsProver reports whether target answers the prover view call.
func (a *Adapter) IsProver(ctx context.Context, target id32.ID) (bool, error) {
	addr, err := id32.ToEVMAddress(target)
	if err != nil {
		return false, fmt.Errorf("ethereum: target: %w", err)
	}
	out, err := a.client.CallContract(ctx, addr, proverABIJSON, "isProver")
	if err != nil {
		// A revert (no such method, or a plain EOA/unrelated contract)
		// means "not a prover", not a transport failure.
		return false, nil
	}
	if len(out) != 1 {
		return false, nil
	}
	is, _ := out[0].(bool)
	return is, nil
}

// HasCode reports whether target has deployed bytecode.
func (a *Adapter) HasCode(ctx context.Context, target id32.ID) (bool, error) {
	addr, err := id32.ToEVMAddress(target)
	if err != nil {
		return false, fmt.Errorf("ethereum: target: %w", err)
	}
	code, err := a.client.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("ethereum: fetching code: %w", err)
	}
	return len(code) > 0, nil
}

func (a *Adapter) send(ctx context.Context, to common.Address, value *big.Int, data []byte) error {
	publicKeyECDSA, ok := a.privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("ethereum: casting operator public key")
	}
	from := gethcrypto.PubkeyToAddress(*publicKeyECDSA)

	nonce, err := a.client.client.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("ethereum: nonce: %w", err)
	}
	gasPrice, err := a.client.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("ethereum: gas price: %w", err)
	}
	dest := to
	gasLimit, err := a.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &dest, Value: value, Data: data})
	if err != nil {
		return fmt.Errorf("ethereum: estimating gas: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(a.client.chainID), a.privateKey)
	if err != nil {
		return fmt.Errorf("ethereum: signing: %w", err)
	}
	if err := a.client.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("ethereum: sending: %w", err)
	}
	if _, err := a.client.WaitForTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("ethereum: awaiting receipt: %w", err)
	}
	return nil
}

func (a *Adapter) sendValue(ctx context.Context, to common.Address, value *big.Int) error {
	return a.send(ctx, to, value, nil)
}
