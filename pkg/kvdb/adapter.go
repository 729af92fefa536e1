// Copyright 2025 Eco Protocol
//
// Package kvdb adapts CometBFT's embedded key-value database to the
// store.KV interface pkg/store persists intent, vault, marker and proof
// records against.
package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"
)

// Adapter wraps a CometBFT dbm.DB and exposes store.KV.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps an existing dbm.DB.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// NewMemAdapter returns an Adapter backed by an in-memory dbm.DB, for tests
// and single-process deployments that don't need durability.
func NewMemAdapter() *Adapter {
	return &Adapter{db: dbm.NewMemDB()}
}

// Get returns the value for key, or nil if it is not present.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set writes key/value durably.
func (a *Adapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.SetSync(key, value)
}

// Has reports whether key is present.
func (a *Adapter) Has(key []byte) (bool, error) {
	if a.db == nil {
		return false, nil
	}
	return a.db.Has(key)
}

// Delete removes key, if present.
func (a *Adapter) Delete(key []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.DeleteSync(key)
}
