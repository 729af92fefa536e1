// Copyright 2025 Eco Protocol

// cmd/portal runs the destination-side daemon: the Fulfillment Engine (C4)
// and the Prover's outbound dispatch/inbound handle surface (C5), wired to
// an EVM chain and exposed over a small JSON HTTP API.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/cometbft/cometbft/crypto/ed25519"

	"github.com/eco-protocol/portal/pkg/attestation"
	ethereum "github.com/eco-protocol/portal/pkg/chainadapter/evm"
	"github.com/eco-protocol/portal/pkg/config"
	"github.com/eco-protocol/portal/pkg/fulfillment"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/kvdb"
	"github.com/eco-protocol/portal/pkg/mailbox"
	"github.com/eco-protocol/portal/pkg/metrics"
	"github.com/eco-protocol/portal/pkg/prover"
	"github.com/eco-protocol/portal/pkg/store"
	sync "github.com/eco-protocol/portal/pkg/sync"
)

type healthStatus struct {
	Status        string `json:"status"`
	Ethereum      string `json:"ethereum"`
	Firestore     string `json:"firestore"`
	Attestation   string `json:"attestation"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	startedAt     time.Time
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting portal daemon")

	var showHelp = flag.Bool("help", false, "show help message")
	flag.Parse()
	if *showHelp {
		fmt.Println("portal: destination-side fulfillment + prover daemon. Configuration is read entirely from the environment; see pkg/config.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	health := &healthStatus{Status: "starting", Ethereum: "unknown", Firestore: "disabled", Attestation: "disabled", startedAt: time.Now()}

	var kv store.KV
	if cfg.KVStoreDir != "" {
		db, err := dbm.NewGoLevelDB("portal", cfg.KVStoreDir)
		if err != nil {
			log.Fatalf("opening durable kv store under %s: %v", cfg.KVStoreDir, err)
		}
		kv = kvdb.NewAdapter(db)
		log.Printf("kv store: durable, dir=%s", cfg.KVStoreDir)
	} else {
		kv = kvdb.NewMemAdapter()
		log.Printf("kv store: in-memory (set KV_STORE_DIR for durability)")
	}
	st := store.New(kv)

	client, err := ethereum.NewClient(cfg.EthereumURL, cfg.EthChainID)
	if err != nil {
		log.Fatalf("connecting to ethereum: %v", err)
	}
	factoryID, err := id32.ParseHex(cfg.ExecutionAuthorityFactory)
	if err != nil {
		log.Fatalf("EXECUTION_AUTHORITY_FACTORY: %v", err)
	}
	factory, err := id32.ToEVMAddress(factoryID)
	if err != nil {
		log.Fatalf("EXECUTION_AUTHORITY_FACTORY: %v", err)
	}
	initHash, err := parseHash32(cfg.ExecutionAuthorityInitHash)
	if err != nil {
		log.Fatalf("EXECUTION_AUTHORITY_INIT_HASH: %v", err)
	}
	adapter, err := ethereum.NewAdapter(client, factory, initHash, cfg.EthPrivateKey)
	if err != nil {
		log.Fatalf("building ethereum adapter: %v", err)
	}
	health.Ethereum = "connected"

	// No on-chain Mailbox contract binding exists yet (see DESIGN.md); the
	// in-memory double stands in until one is wired, the same way the
	// teacher's own validator ran against an in-process queue before its
	// real Ethereum transport landed.
	mb := mailbox.NewInMemory(big.NewInt(0))

	whitelistEntries := cfg.ProverWhitelist
	if cfg.ProverWhitelistFile != "" {
		fileEntries, err := config.LoadProverWhitelistFile(cfg.ProverWhitelistFile)
		if err != nil {
			log.Fatalf("loading prover whitelist file: %v", err)
		}
		whitelistEntries = append(whitelistEntries, fileEntries...)
	}
	whitelist := prover.NewWhitelist(whitelistEntries)

	pv := prover.New(cfg.MailboxProgramID, cfg.ProverRecipient, st, mb, whitelist)
	pv.FeeBudget = big.NewInt(cfg.FeeBudget)
	pv.AllowEarlyReclaim = cfg.AllowEarlyReclaim

	if cfg.EnableBFTAttestation {
		if cfg.AttestationSigningKey == "" {
			log.Fatalf("ATTESTATION_SIGNING_KEY is required when ENABLE_BFT_ATTESTATION is set")
		}
		keyBytes, err := hex.DecodeString(cfg.AttestationSigningKey)
		if err != nil {
			log.Fatalf("parsing ATTESTATION_SIGNING_KEY: %v", err)
		}
		signer := attestation.NewSigner(ed25519.PrivKey(keyBytes))
		// This daemon does not implement a remote attestation transport
		// (pkg/attestation.Peer), so the quorum here trusts exactly this
		// validator's own vote. ATTESTATION_PEERS/ATTESTATION_REQUIRED_COUNT
		// are honored fully once a Peer implementation is wired in.
		pv.Signer = signer
		pv.Quorum = attestation.NewQuorum([]ed25519.PubKey{signer.PubKey()}, 1)
		health.Attestation = "enabled (local validator only)"
		if cfg.AttestationRequiredCount > 1 || len(cfg.AttestationPeers) > 0 {
			log.Printf("ATTESTATION_REQUIRED_COUNT=%d and %d peers configured, but no peer transport is wired in this daemon; attesting with the local validator alone", cfg.AttestationRequiredCount, len(cfg.AttestationPeers))
		}
	}

	var syncClient *sync.Client
	if cfg.FirestoreEnabled {
		syncClient, err = sync.NewClient(context.Background(), &sync.ClientConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			Enabled:         true,
			Logger:          log.New(log.Writer(), "[Firestore] ", log.LstdFlags),
		})
		if err != nil {
			log.Printf("firestore client: %v (dashboard mirror disabled)", err)
		} else {
			health.Firestore = "connected"
			log.Printf("firestore dashboard mirror enabled")
		}
	}
	var syncService *sync.SyncService
	if syncClient != nil {
		syncService, err = sync.NewSyncService(&sync.SyncServiceConfig{Client: syncClient, NodeID: "portal"})
		if err != nil {
			log.Printf("firestore sync service: %v (dashboard mirror disabled)", err)
		} else {
			pv.Sync = syncService
		}
	}

	engine := fulfillment.NewEngine(cfg.LocalDomainID, cfg.MailboxProgramID, st, adapter, pv)
	if syncService != nil {
		engine.Sync = syncService
	}

	mtr := metrics.NewForGlobalRegistry()

	mux := http.NewServeMux()
	registerPortalHandlers(mux, engine, pv, mtr)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health.UptimeSeconds = int64(time.Since(health.startedAt).Seconds())
		health.Status = "ok"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}

	go func() {
		log.Printf("portal API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down portal daemon")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	if syncClient != nil {
		if err := syncClient.Close(); err != nil {
			log.Printf("closing firestore client: %v", err)
		}
	}
}

func parseHash32(s string) ([32]byte, error) {
	id, err := id32.ParseHex(s)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(id), nil
}
