// Copyright 2025 Eco Protocol

// Package intent assembles the composite Intent value — a Route paired
// with its Reward — from the canonical types, and provides the derived
// hashes both sides of the protocol agree on.
package intent

import (
	"github.com/eco-protocol/portal/pkg/canon"
)

// TokenAmount, Call, Route and Reward are the exact wire types C1 (pkg/canon)
// encodes; Intent composes them into the value both the source and
// destination chain reason about.
type (
	TokenAmount = canon.TokenAmount
	Call        = canon.Call
	Route       = canon.Route
	Reward      = canon.Reward
)

// Intent is the pair (Route, Reward) that a user publishes on the source
// chain and a solver fulfils on the destination chain.
type Intent struct {
	Route  Route
	Reward Reward
}

// RouteHash returns the canonical hash of the intent's route.
func (i Intent) RouteHash() [32]byte {
	return canon.RouteHash(i.Route)
}

// RewardHash returns the canonical hash of the intent's reward.
func (i Intent) RewardHash() [32]byte {
	return canon.RewardHash(i.Reward)
}

// Hash returns the intent fingerprint, keccak256(route_hash ‖ reward_hash).
func (i Intent) Hash() [32]byte {
	return canon.IntentHash(i.Route, i.Reward)
}

// New builds an Intent from a Route and Reward.
func New(route Route, reward Reward) Intent {
	return Intent{Route: route, Reward: reward}
}
