package attestation

import (
	"context"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

type stubPeer struct {
	signer *Signer
	fail   bool
}

func (p *stubPeer) Attest(ctx context.Context, digest [32]byte) (Vote, error) {
	if p.fail {
		return Vote{}, context.DeadlineExceeded
	}
	return p.signer.Sign(digest)
}

func TestQuorum_GatherMeetsRequiredCount(t *testing.T) {
	self := GenerateSigner()
	peerA := GenerateSigner()
	peerB := GenerateSigner()

	q := NewQuorum([]ed25519.PubKey{
		self.key.PubKey().(ed25519.PubKey),
		peerA.key.PubKey().(ed25519.PubKey),
		peerB.key.PubKey().(ed25519.PubKey),
	}, 2)

	digest := [32]byte{1, 2, 3}
	selfVote, err := self.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	votes, err := q.Gather(context.Background(), digest, &selfVote, []Peer{&stubPeer{signer: peerA}})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("len(votes) = %d, want 2", len(votes))
	}
}

func TestQuorum_GatherFailsWhenPeersExhausted(t *testing.T) {
	self := GenerateSigner()
	peerA := GenerateSigner()

	q := NewQuorum([]ed25519.PubKey{
		self.key.PubKey().(ed25519.PubKey),
		peerA.key.PubKey().(ed25519.PubKey),
	}, 2)

	digest := [32]byte{4, 5, 6}
	_, err := q.Gather(context.Background(), digest, nil, []Peer{&stubPeer{signer: peerA, fail: true}})
	if err != ErrQuorumNotMet {
		t.Fatalf("err = %v, want ErrQuorumNotMet", err)
	}
}

func TestQuorum_RejectsUntrustedVote(t *testing.T) {
	self := GenerateSigner()
	outsider := GenerateSigner()

	q := NewQuorum([]ed25519.PubKey{self.key.PubKey().(ed25519.PubKey)}, 1)

	digest := [32]byte{7}
	votes, err := q.Gather(context.Background(), digest, nil, []Peer{&stubPeer{signer: outsider}})
	if err != ErrQuorumNotMet {
		t.Fatalf("err = %v, want ErrQuorumNotMet", err)
	}
	if len(votes) != 0 {
		t.Fatalf("len(votes) = %d, want 0 for an untrusted voter", len(votes))
	}
}
