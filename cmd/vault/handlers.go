// Copyright 2025 Eco Protocol

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/eco-protocol/portal/pkg/canon"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/intent"
	"github.com/eco-protocol/portal/pkg/lifecycle"
	"github.com/eco-protocol/portal/pkg/metrics"
)

// registerVaultHandlers mounts the source-side JSON API on mux.
func registerVaultHandlers(mux *http.ServeMux, lc *lifecycle.Lifecycle, mtr *metrics.Metrics) {
	mux.HandleFunc("/api/v1/publish", handlePublish(lc))
	mux.HandleFunc("/api/v1/fund", handleFund(lc))
	mux.HandleFunc("/api/v1/fund-for", handleFundFor(lc))
	mux.HandleFunc("/api/v1/withdraw", handleWithdraw(lc, mtr))
	mux.HandleFunc("/api/v1/refund", handleRefund(lc, mtr))
	mux.HandleFunc("/api/v1/recover-token", handleRecoverToken(lc))
}

// wireTokenAmount/wireCall/wireRoute/wireReward mirror cmd/portal's wire
// shapes for canon.Route/canon.Reward: Salt and Call.Data travel as hex
// strings since neither has a custom JSON marshaler.
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

type wireIntent struct {
	Route  wireRoute  `json:"route"`
	Reward wireReward `json:"reward"`
}

func (r wireRoute) toCanon() (canon.Route, error) {
	saltBytes, err := hex.DecodeString(r.Salt)
	if err != nil || len(saltBytes) != 32 {
		return canon.Route{}, fmt.Errorf("route.salt: expected 32 hex-encoded bytes")
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
			return canon.Route{}, fmt.Errorf("route.calls[%d].data: %w", i, err)
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

func (w wireIntent) toIntent() (intent.Intent, error) {
	route, err := w.Route.toCanon()
	if err != nil {
		return intent.Intent{}, err
	}
	return intent.New(route, w.Reward.toCanon()), nil
}

type intentHashResponse struct {
	IntentHash string `json:"intent_hash"`
	Status     string `json:"status"`
}

func recordResponse(hash [32]byte, status fmt.Stringer) intentHashResponse {
	return intentHashResponse{IntentHash: hex.EncodeToString(hash[:]), Status: status.String()}
}

func handlePublish(lc *lifecycle.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req wireIntent
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := lc.Publish(r.Context(), it)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse(rec.IntentHash, rec.Status))
	}
}

type fundRequest struct {
	Intent       wireIntent `json:"intent"`
	Funder       id32.ID    `json:"funder"`
	AllowPartial bool       `json:"allow_partial"`
}

func handleFund(lc *lifecycle.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req fundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.Intent.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := lc.Fund(r.Context(), it, req.Funder, req.AllowPartial)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse(rec.IntentHash, rec.Status))
	}
}

type fundForRequest struct {
	Intent         wireIntent `json:"intent"`
	Funder         id32.ID    `json:"funder"`
	PermitContract id32.ID    `json:"permit_contract"`
	AllowPartial   bool       `json:"allow_partial"`
}

func handleFundFor(lc *lifecycle.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req fundForRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.Intent.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rec, err := lc.FundFor(r.Context(), it, req.Funder, req.PermitContract, req.AllowPartial)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse(rec.IntentHash, rec.Status))
	}
}

func handleWithdraw(lc *lifecycle.Lifecycle, mtr *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req wireIntent
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := lc.Withdraw(r.Context(), it); err != nil {
			mtr.WithdrawalsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		mtr.WithdrawalsTotal.WithLabelValues("success").Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleRefund(lc *lifecycle.Lifecycle, mtr *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req wireIntent
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := lc.Refund(r.Context(), it); err != nil {
			mtr.RefundsTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		mtr.RefundsTotal.WithLabelValues("success").Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

type recoverTokenRequest struct {
	Intent wireIntent `json:"intent"`
	Token  id32.ID    `json:"token"`
}

func handleRecoverToken(lc *lifecycle.Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req recoverTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		it, err := req.Intent.toIntent()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := lc.RecoverToken(r.Context(), it, req.Token); err != nil {
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
