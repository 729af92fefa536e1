package mailbox

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"github.com/eco-protocol/portal/pkg/id32"
)

// ErrInsufficientFee is returned by Dispatch when maxFee is below the
// configured flat fee.
var ErrInsufficientFee = errors.New("mailbox: supplied fee below quote")

// InMemory is a test double implementing Mailbox with a fixed flat fee. It
// records every dispatched message for assertions in tests that exercise
// pkg/fulfillment and pkg/prover without a real chain.
type InMemory struct {
	mu       sync.Mutex
	FlatFee  *big.Int
	Messages []Message
}

// NewInMemory returns an InMemory mailbox charging flatFee per dispatch.
func NewInMemory(flatFee *big.Int) *InMemory {
	if flatFee == nil {
		flatFee = big.NewInt(0)
	}
	return &InMemory{FlatFee: flatFee}
}

func (m *InMemory) Quote(ctx context.Context, msg Message) (*big.Int, error) {
	return new(big.Int).Set(m.FlatFee), nil
}

func (m *InMemory) Dispatch(ctx context.Context, msg Message, maxFee *big.Int) (*DispatchResult, error) {
	if maxFee.Cmp(m.FlatFee) < 0 {
		return nil, ErrInsufficientFee
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)

	var idBytes [32]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return nil, err
	}
	return &DispatchResult{
		MessageID: id32.ID(idBytes),
		FeePaid:   new(big.Int).Set(m.FlatFee),
	}, nil
}

// Reset clears recorded messages, for reuse across subtests.
func (m *InMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
