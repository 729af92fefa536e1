package store

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/eco-protocol/portal/pkg/id32"
)

// KV is the minimal persistent key-value interface the store is built on.
// github.com/eco-protocol/portal/pkg/kvdb.Adapter implements it over
// CometBFT's embedded database; tests may substitute any in-memory map.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Has(key []byte) (bool, error)
	Delete(key []byte) error
}

// Store exposes the scoped C3 operations over a KV backend.
type Store struct {
	kv KV
}

// New wraps kv in a Store.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := s.kv.Get(key)
	if err != nil {
		return false, fmt.Errorf("store: get: %w", err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("store: unmarshal: %w", err)
	}
	return true, nil
}

func (s *Store) setJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	if err := s.kv.Set(key, raw); err != nil {
		return fmt.Errorf("store: set: %w", err)
	}
	return nil
}

// OpenIntentRecord creates the source-side intent record in the Initial
// state. Fails with ErrAlreadyExists if a terminal record already exists
// for this intent hash.
func (s *Store) OpenIntentRecord(intentHash [32]byte, creator id32.ID) (*IntentRecord, error) {
	key := intentKey(intentHash)
	var existing IntentRecord
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return nil, err
	}
	if found && existing.Status.IsTerminal() {
		return nil, ErrAlreadyExists
	}
	if found {
		return &existing, nil
	}
	rec := &IntentRecord{IntentHash: intentHash, Creator: creator, Status: StatusInitial}
	if err := s.setJSON(key, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetIntentRecord loads the intent record, if any.
func (s *Store) GetIntentRecord(intentHash [32]byte) (*IntentRecord, bool, error) {
	var rec IntentRecord
	found, err := s.getJSON(intentKey(intentHash), &rec)
	if err != nil || !found {
		return nil, found, err
	}
	return &rec, true, nil
}

// PutIntentRecord persists an updated intent record (status/mode
// transitions). Callers own read-modify-write sequencing.
func (s *Store) PutIntentRecord(rec *IntentRecord) error {
	return s.setJSON(intentKey(rec.IntentHash), rec)
}

// OpenRewardVault creates (or returns the existing) per-(intent, token)
// vault. tokenID's zero value is the sibling native-value account.
func (s *Store) OpenRewardVault(intentHash [32]byte, tokenID id32.ID) (*RewardVault, error) {
	key := rewardVaultKey(intentHash, tokenID)
	var existing RewardVault
	found, err := s.getJSON(key, &existing)
	if err != nil {
		return nil, err
	}
	if found {
		if existing.Balance == nil {
			existing.Balance = big.NewInt(0)
		}
		return &existing, nil
	}
	vault := &RewardVault{IntentHash: intentHash, TokenID: tokenID, Balance: big.NewInt(0)}
	if err := s.setJSON(key, vault); err != nil {
		return nil, err
	}
	return vault, nil
}

// GetRewardVault loads a reward vault, if any.
func (s *Store) GetRewardVault(intentHash [32]byte, tokenID id32.ID) (*RewardVault, bool, error) {
	var vault RewardVault
	found, err := s.getJSON(rewardVaultKey(intentHash, tokenID), &vault)
	if err != nil || !found {
		return nil, found, err
	}
	if vault.Balance == nil {
		vault.Balance = big.NewInt(0)
	}
	return &vault, true, nil
}

// PutRewardVault persists an updated vault balance.
func (s *Store) PutRewardVault(vault *RewardVault) error {
	return s.setJSON(rewardVaultKey(vault.IntentHash, vault.TokenID), vault)
}

// DeleteRewardVault reclaims a vault's storage once its reward is terminal,
// mirroring the source chain's self-destructing vault pattern (§9).
func (s *Store) DeleteRewardVault(intentHash [32]byte, tokenID id32.ID) error {
	if err := s.kv.Delete(rewardVaultKey(intentHash, tokenID)); err != nil {
		return fmt.Errorf("store: delete reward vault: %w", err)
	}
	return nil
}

// OpenFulfillmentMarker creates the destination-side marker. A second
// creation for the same intent hash is a failure, not a no-op: I2 bounds
// the number of markers per intent hash to one.
func (s *Store) OpenFulfillmentMarker(intentHash [32]byte, claimant id32.ID) (*FulfillmentMarker, error) {
	key := fulfillmentMarkerKey(intentHash)
	exists, err := s.kv.Has(key)
	if err != nil {
		return nil, fmt.Errorf("store: has: %w", err)
	}
	if exists {
		return nil, ErrAlreadyFulfilled
	}
	marker := &FulfillmentMarker{IntentHash: intentHash, Claimant: claimant}
	if err := s.setJSON(key, marker); err != nil {
		return nil, err
	}
	return marker, nil
}

// AbortFulfillmentMarker removes a marker created earlier in the same
// logical fulfillment attempt. It exists solely so pkg/fulfillment can
// emulate the host chain's whole-transaction rollback when a later step
// (token transfer or call) fails after the marker was provisionally
// created; it is not a general-purpose deletion path; a committed marker
// is otherwise permanent (§3.1).
func (s *Store) AbortFulfillmentMarker(intentHash [32]byte) error {
	if err := s.kv.Delete(fulfillmentMarkerKey(intentHash)); err != nil {
		return fmt.Errorf("store: abort fulfillment marker: %w", err)
	}
	return nil
}

// GetFulfillmentMarker loads the destination-side marker, if any.
func (s *Store) GetFulfillmentMarker(intentHash [32]byte) (*FulfillmentMarker, bool, error) {
	var marker FulfillmentMarker
	found, err := s.getJSON(fulfillmentMarkerKey(intentHash), &marker)
	if err != nil || !found {
		return nil, found, err
	}
	return &marker, true, nil
}

// OpenProofRecord creates the source-side proof record from C5's validated
// inbound path. If one already exists, ErrAlreadyProven is returned so the
// caller can treat the pair as duplicate-ok and continue the batch (§4.5).
func (s *Store) OpenProofRecord(intentHash [32]byte, claimant id32.ID) (*ProofRecord, error) {
	key := proofRecordKey(intentHash)
	exists, err := s.kv.Has(key)
	if err != nil {
		return nil, fmt.Errorf("store: has: %w", err)
	}
	if exists {
		return nil, ErrAlreadyProven
	}
	rec := &ProofRecord{IntentHash: intentHash, Claimant: claimant}
	if err := s.setJSON(key, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetProofRecord loads the source-side proof record, if any.
func (s *Store) GetProofRecord(intentHash [32]byte) (*ProofRecord, bool, error) {
	var rec ProofRecord
	found, err := s.getJSON(proofRecordKey(intentHash), &rec)
	if err != nil || !found {
		return nil, found, err
	}
	return &rec, true, nil
}

// CloseProofRecord deletes a proof record. Callers must have already
// established one of the two permitted preconditions (§4.3): the
// companion reward has been withdrawn, or the caller is the creator and
// policy permits early reclamation. The store itself does not adjudicate
// authorization — pkg/prover does, before calling this.
func (s *Store) CloseProofRecord(intentHash [32]byte) error {
	if err := s.kv.Delete(proofRecordKey(intentHash)); err != nil {
		return fmt.Errorf("store: close proof record: %w", err)
	}
	return nil
}
