// Copyright 2025 Eco Protocol

// cmd/vault runs the source-side daemon: the reward lifecycle (C6) over a
// shared intent/vault store and an append-only Postgres operations
// ledger, wired to an EVM chain and exposed over a small JSON HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common"

	ethereum "github.com/eco-protocol/portal/pkg/chainadapter/evm"
	"github.com/eco-protocol/portal/pkg/config"
	"github.com/eco-protocol/portal/pkg/id32"
	"github.com/eco-protocol/portal/pkg/kvdb"
	"github.com/eco-protocol/portal/pkg/lifecycle"
	"github.com/eco-protocol/portal/pkg/metrics"
	"github.com/eco-protocol/portal/pkg/store"
	sync "github.com/eco-protocol/portal/pkg/sync"
)

type healthStatus struct {
	Status        string `json:"status"`
	Ethereum      string `json:"ethereum"`
	Database      string `json:"database"`
	Firestore     string `json:"firestore"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	startedAt     time.Time
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting vault daemon")

	var showHelp = flag.Bool("help", false, "show help message")
	flag.Parse()
	if *showHelp {
		fmt.Println("vault: source-side reward lifecycle daemon. Configuration is read entirely from the environment; see pkg/config.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.VaultAddress == "" {
		log.Fatalf("VAULT_ADDRESS is required")
	}

	health := &healthStatus{Status: "starting", Ethereum: "unknown", Database: "unknown", Firestore: "disabled", startedAt: time.Now()}

	var kv store.KV
	if cfg.KVStoreDir != "" {
		db, err := dbm.NewGoLevelDB("vault", cfg.KVStoreDir)
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
	// The vault's own operator key signs Pull/Pay transactions the same
	// way the destination-side Adapter signs fulfillment transactions;
	// ExecutionAuthorityFactory/InitHash are unused on this side of the
	// protocol but NewAdapter still requires them, so a vault-only
	// factory/init-hash pair is accepted even though nothing ever
	// derives a CREATE2 address from it here.
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
	if !common.IsHexAddress(cfg.VaultAddress) {
		log.Fatalf("VAULT_ADDRESS: not a valid address: %s", cfg.VaultAddress)
	}
	vaultAdapter := ethereum.NewVaultAdapter(client, common.HexToAddress(cfg.VaultAddress), adapter)
	health.Ethereum = "connected"

	dbClient, err := lifecycle.NewClient(lifecycle.DBConfig{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("connecting to lifecycle database: %v", err)
	}
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.MigrateUp(migrateCtx); err != nil {
		cancel()
		log.Fatalf("running lifecycle migrations: %v", err)
	}
	cancel()
	health.Database = "connected"
	events := lifecycle.NewEventRepository(dbClient)

	lc := lifecycle.New(st, vaultAdapter, events)

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
	if syncClient != nil {
		syncService, err := sync.NewSyncService(&sync.SyncServiceConfig{Client: syncClient, NodeID: "vault"})
		if err != nil {
			log.Printf("firestore sync service: %v (dashboard mirror disabled)", err)
		} else {
			lc.Sync = syncService
		}
	}

	mtr := metrics.NewForGlobalRegistry()

	mux := http.NewServeMux()
	registerVaultHandlers(mux, lc, mtr)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health.UptimeSeconds = int64(time.Since(health.startedAt).Seconds())
		health.Status = "ok"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}

	go func() {
		log.Printf("vault API listening on %s", cfg.ListenAddr)
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

	log.Printf("shutting down vault daemon")
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
	if err := dbClient.Close(); err != nil {
		log.Printf("closing lifecycle database: %v", err)
	}
}

func parseHash32(s string) ([32]byte, error) {
	id, err := id32.ParseHex(s)
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(id), nil
}
