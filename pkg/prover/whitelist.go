package prover

import "github.com/eco-protocol/portal/pkg/id32"

// Whitelist is the fixed, small set of source-chain prover identities
// trusted to deliver inbound proof messages. Fixed at deployment; consulted
// on every inbound message (§4.5).
type Whitelist struct {
	entries map[id32.ID]bool
}

// NewWhitelist builds a Whitelist from a bounded list of entries.
func NewWhitelist(entries []id32.ID) Whitelist {
	m := make(map[id32.ID]bool, len(entries))
	for _, e := range entries {
		m[e] = true
	}
	return Whitelist{entries: m}
}

// Contains reports whether id is whitelisted.
func (w Whitelist) Contains(id id32.ID) bool {
	return w.entries[id]
}

// Len returns the number of whitelisted entries.
func (w Whitelist) Len() int {
	return len(w.entries)
}
