// Copyright 2025 Eco Protocol

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/fulfillment"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/metrics"
	"github.com/eco-protocol/portal/pkg/prover"
)

// registerPortalHandlers mounts the destination-side JSON API on mux.
func registerPortalHandlers(mux *http.ServeMux, engine *fulfillment.Engine, pv *prover.Prover, mtr *metrics.Metrics) {
	mux.HandleFunc("/api/v1/fulfill", handleFulfill(engine, mtr))
	mux.HandleFunc("/api/v1/proofs/close", handleCloseProof(pv, mtr))
}

// wireCall/wireTokenAmount/wireRoute/wireReward are the JSON wire shapes for
// intent.Route/intent.Reward: id32.ID already marshals as 0x-hex and
// *big.Int as a decimal number, but [32]byte has no custom marshaling, so
// Salt travels as hex here instead of a 32-element JSON array.
type wireTokenAmount struct {
	Token  id32.ID  `json:"token"`
	Amount *big.Int `json:"amount"`
}

type wireCall struct {
	Target id32.ID  `json:"target"`
	Data   string   `json:"data"` // hex-encoded
	Value  *big.Int `json:"value"`
}

type wireRoute struct {
	Salt              string            `json:"salt"` // hex-encoded, 32 bytes
	SourceDomain      *big.Int          `json:"source_domain"`
	DestinationDomain *big.Int          `json:"destination_domain"`
	Inbox             id32.ID           `json:"inbox"`
	Tokens            []wireTokenAmount `json:"tokens"`
	Calls             []wireCall        `json:"calls"`
}

type wireReward struct {
	Creator     id32.ID           `json:"creator"`
	Prover      id32.ID           `json:"prover"`
	Deadline    uint64            `json:"deadline"`
	NativeValue *big.Int          `json:"native_value"`
	Tokens      []wireTokenAmount `json:"tokens"`
}

func (r wireRoute) toCanon() (canon.Route, error) {
	saltBytes, err := hex.DecodeString(r.Salt)
	if err != nil || len(saltBytes) != 32 {
		return canon.Route{}, fmt.Errorf("salt: expected 32 hex-encoded bytes")
	}
	var salt [32]byte
	copy(salt[:], saltBytes)

	tokens := make([]canon.TokenAmount, len(r.Tokens))
	for i, t := range r.Tokens {
		tokens[i] = canon.TokenAmount{Token: t.Token, Amount: t.Amount}
	}
	calls := make([]canon.Call, len(r.Calls))
	for i, c := range r.Calls {
		data, err := hex.DecodeString(c.Data)
		if err != nil {
			return canon.Route{}, fmt.Errorf("calls[%d].data: %w", i, err)
		}
		calls[i] = canon.Call{Target: c.Target, Data: data, Value: c.Value}
	}
	return canon.Route{
		Salt:              salt,
		SourceDomain:      r.SourceDomain,
		DestinationDomain: r.DestinationDomain,
		Inbox:             r.Inbox,
		Tokens:            tokens,
		Calls:             calls,
	}, nil
}

func (r wireReward) toCanon() canon.Reward {
	tokens := make([]canon.TokenAmount, len(r.Tokens))
	for i, t := range r.Tokens {
		tokens[i] = canon.TokenAmount{Token: t.Token, Amount: t.Amount}
	}
	return canon.Reward{
		Creator:     r.Creator,
		Prover:      r.Prover,
		Deadline:    r.Deadline,
		NativeValue: r.NativeValue,
		Tokens:      tokens,
	}
}

type fulfillRequest struct {
	IntentHashExpected string     `json:"intent_hash_expected"` // hex-encoded
	Route              wireRoute  `json:"route"`
	Reward             wireReward `json:"reward"`
	Claimant           id32.ID    `json:"claimant"`
	Solver             id32.ID    `json:"solver"`
	OpaqueData         string     `json:"opaque_data"` // hex-encoded
}

type fulfillResponse struct {
	IntentHash         string  `json:"intent_hash"`
	ExecutionAuthority id32.ID `json:"execution_authority"`
}

func handleFulfill(engine *fulfillment.Engine, mtr *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req fulfillRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		route, err := req.Route.toCanon()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		expectedBytes, err := hex.DecodeString(req.IntentHashExpected)
		if err != nil || len(expectedBytes) != 32 {
			writeError(w, http.StatusBadRequest, errors.New("intent_hash_expected: expected 32 hex-encoded bytes"))
			return
		}
		var expected [32]byte
		copy(expected[:], expectedBytes)

		opaque, err := hex.DecodeString(req.OpaqueData)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("opaque_data: %w", err))
			return
		}

		result, err := engine.Fulfill(r.Context(), fulfillment.Request{
			IntentHashExpected: expected,
			Route:              route,
			Reward:             req.Reward.toCanon(),
			Claimant:           req.Claimant,
			Solver:             req.Solver,
			OpaqueData:         opaque,
		})
		if err != nil {
			mtr.FulfillmentsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		mtr.FulfillmentsTotal.WithLabelValues("success").Inc()

		writeJSON(w, http.StatusOK, fulfillResponse{
			IntentHash:         hex.EncodeToString(result.IntentHash[:]),
			ExecutionAuthority: result.ExecutionAuthority,
		})
	}
}

type closeProofRequest struct {
	IntentHash string  `json:"intent_hash"` // hex-encoded
	Caller     id32.ID `json:"caller"`
}

func handleCloseProof(pv *prover.Prover, mtr *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req closeProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		hashBytes, err := hex.DecodeString(req.IntentHash)
		if err != nil || len(hashBytes) != 32 {
			writeError(w, http.StatusBadRequest, errors.New("intent_hash: expected 32 hex-encoded bytes"))
			return
		}
		var hash [32]byte
		copy(hash[:], hashBytes)

		if err := pv.CloseProof(r.Context(), hash, req.Caller); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
