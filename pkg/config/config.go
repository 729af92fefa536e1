package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eco-protocol/portal/pkg/id32"
)

// Config holds all configuration for the Portal/Prover service.
type Config struct {
	// Protocol identity
	MailboxProgramID id32.ID   // this chain's Mailbox identity, as seen by inbound Handle calls
	ProverRecipient  id32.ID   // the recipient ID this prover dispatches proof messages to
	ProverWhitelist  []id32.ID // senders whose inbound proofs pkg/prover.Handle accepts
	LocalDomainID     uint32    // this chain's destination_domain, checked by C4's WrongChain precondition
	DefaultGasLimit   uint64
	AllowEarlyReclaim bool  // whether a proof creator may close a proof record before withdrawal (§4.3)
	FeeBudget         int64 // the prover's own operational balance for dispatch fees, in the mailbox's fee unit

	// Network Configuration
	EthereumURL string
	EthChainID  int64

	// Server Configuration
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// Database Configuration, for pkg/lifecycle's operations ledger
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime time.Duration
	DBConnMaxLifetime time.Duration

	// Blockchain Configuration
	EthPrivateKey              string
	ExecutionAuthorityFactory  string // CREATE2 deployer address for per-salt execution authorities
	ExecutionAuthorityInitHash string // init code hash of the execution-authority proxy
	VaultAddress               string // source-chain vault contract cmd/vault pulls/pays reward legs through

	// Service Configuration
	LogLevel string

	// Optional multi-validator attestation quorum over outbound proof batches
	EnableBFTAttestation     bool
	AttestationPeers         []string
	AttestationRequiredCount int

	// Optional succinct canonical-encoding-correctness proof
	EnableZKAttestation bool

	// Optional real-time Firestore mirror of intent/vault/proof state
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Static bootstrap file for initialize_prover's whitelist, an addition
	// beyond the teacher's env-only configuration.
	ProverWhitelistFile string

	// KVStoreDir, if set, backs pkg/store with a durable CometBFT embedded
	// database under this directory instead of an in-memory one. Empty
	// means in-memory, for development and single-process testing.
	KVStoreDir string

	// AttestationSigningKey is this node's hex-encoded ed25519 private key
	// for EnableBFTAttestation's quorum votes.
	AttestationSigningKey string
}

// Load reads configuration from environment variables.
//
// SECURITY: Required variables have no defaults and must be explicitly set.
// Call Validate() after Load() to ensure all required configuration is present.
func Load() (*Config, error) {
	mailboxID, err := parseID32(getEnv("MAILBOX_PROGRAM_ID", ""))
	if err != nil {
		return nil, fmt.Errorf("config: MAILBOX_PROGRAM_ID: %w", err)
	}
	proverRecipient, err := parseID32(getEnv("PROVER_RECIPIENT", ""))
	if err != nil {
		return nil, fmt.Errorf("config: PROVER_RECIPIENT: %w", err)
	}
	whitelist, err := parseID32List(getEnv("PROVER_WHITELIST", ""))
	if err != nil {
		return nil, fmt.Errorf("config: PROVER_WHITELIST: %w", err)
	}

	cfg := &Config{
		MailboxProgramID:  mailboxID,
		ProverRecipient:   proverRecipient,
		ProverWhitelist:   whitelist,
		LocalDomainID:     uint32(getEnvInt64("LOCAL_DOMAIN_ID", 0)),
		DefaultGasLimit:   uint64(getEnvInt64("DEFAULT_GAS_LIMIT", 200000)),
		AllowEarlyReclaim: getEnvBool("ALLOW_EARLY_RECLAIM", false),
		FeeBudget:         getEnvInt64("FEE_BUDGET", 0),

		EthereumURL: getEnv("ETHEREUM_URL", ""),
		EthChainID:  getEnvInt64("ETH_CHAIN_ID", 1),

		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),
		HealthAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_CHECK_PORT", "8081"),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		EthPrivateKey:              getEnv("ETH_PRIVATE_KEY", ""),
		ExecutionAuthorityFactory:  getEnv("EXECUTION_AUTHORITY_FACTORY", ""),
		ExecutionAuthorityInitHash: getEnv("EXECUTION_AUTHORITY_INIT_HASH", ""),
		VaultAddress:               getEnv("VAULT_ADDRESS", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		EnableBFTAttestation:     getEnvBool("ENABLE_BFT_ATTESTATION", false),
		AttestationPeers:         parseList(getEnv("ATTESTATION_PEERS", "")),
		AttestationRequiredCount: getEnvInt("ATTESTATION_REQUIRED_COUNT", 3),

		EnableZKAttestation: getEnvBool("ENABLE_ZK_ATTESTATION", false),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		ProverWhitelistFile: getEnv("PROVER_WHITELIST_FILE", ""),

		KVStoreDir:            getEnv("KV_STORE_DIR", ""),
		AttestationSigningKey: getEnv("ATTESTATION_SIGNING_KEY", ""),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.MailboxProgramID.IsZero() {
		errs = append(errs, "MAILBOX_PROGRAM_ID is required but not set")
	}
	if c.EthereumURL == "" {
		errs = append(errs, "ETHEREUM_URL is required but not set")
	}
	if c.EthPrivateKey == "" {
		errs = append(errs, "ETH_PRIVATE_KEY is required but not set")
	}
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required but not set")
	}
	if c.EnableBFTAttestation && c.AttestationRequiredCount < 1 {
		errs = append(errs, "ATTESTATION_REQUIRED_COUNT must be at least 1 when ENABLE_BFT_ATTESTATION is set")
	}
	if c.FirestoreEnabled && c.FirebaseProjectID == "" {
		errs = append(errs, "FIREBASE_PROJECT_ID is required when FIRESTORE_ENABLED is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func parseID32(s string) (id32.ID, error) {
	if s == "" {
		return id32.ID{}, nil
	}
	return id32.ParseHex(s)
}

func parseID32List(s string) ([]id32.ID, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]id32.ID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := id32.ParseHex(p)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", p, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
