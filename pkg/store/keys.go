package store

import "github.com/eco-protocol/portal/pkg/id32"

// Deterministic key seeds, per §6.6: every record is stored under a stable
// byte sequence derived from its seed prefix and the identifiers that scope
// it, so the same record can be located without an index lookup.

func intentKey(intentHash [32]byte) []byte {
	return append([]byte("intent"), intentHash[:]...)
}

func rewardVaultKey(intentHash [32]byte, tokenID id32.ID) []byte {
	k := append([]byte("reward"), intentHash[:]...)
	return append(k, tokenID.Bytes()...)
}

func fulfillmentMarkerKey(intentHash [32]byte) []byte {
	return append([]byte("intent_fulfillment_marker"), intentHash[:]...)
}

func proofRecordKey(intentHash [32]byte) []byte {
	return append([]byte("proof"), intentHash[:]...)
}

// ExecutionAuthoritySeed derives the seed for the salt-keyed,
// program-derived execution authority that signs during fulfillment.
func ExecutionAuthoritySeed(salt [32]byte) []byte {
	return append([]byte("execution_authority"), salt[:]...)
}

// DispatchAuthoritySeed derives the seed for the single, global
// program-derived dispatch authority that submits outbound proof messages.
func DispatchAuthoritySeed() []byte {
	return []byte("dispatch_authority")
}
