package canon

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// RouteHash returns keccak256 of the route's canonical encoding.
func RouteHash(r Route) [32]byte {
	return [32]byte(crypto.Keccak256Hash(EncodeRoute(r)))
}

// RewardHash returns keccak256 of the reward's canonical encoding.
func RewardHash(r Reward) [32]byte {
	return [32]byte(crypto.Keccak256Hash(EncodeReward(r)))
}

// IntentHash derives the chain-independent intent fingerprint:
// keccak256(keccak256(route_bytes) ‖ keccak256(reward_bytes)).
func IntentHash(route Route, reward Reward) [32]byte {
	rh := RouteHash(route)
	wh := RewardHash(reward)
	joined := make([]byte, 0, 64)
	joined = append(joined, rh[:]...)
	joined = append(joined, wh[:]...)
	return [32]byte(crypto.Keccak256Hash(joined))
}
