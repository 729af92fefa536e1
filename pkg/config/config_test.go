package config

import (
	"os"
	"testing"
)

func clearPortalEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MAILBOX_PROGRAM_ID", "PROVER_RECIPIENT", "PROVER_WHITELIST",
		"ETHEREUM_URL", "ETH_PRIVATE_KEY", "DATABASE_URL",
		"ENABLE_BFT_ATTESTATION", "ATTESTATION_REQUIRED_COUNT",
		"FIRESTORE_ENABLED", "FIREBASE_PROJECT_ID",
	} {
		os.Unsetenv(k)
	}
}

func TestValidate_RequiresCoreFields(t *testing.T) {
	clearPortalEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate = nil, want error for missing required fields")
	}
}

func TestValidate_PassesWithRequiredFieldsSet(t *testing.T) {
	clearPortalEnv(t)
	os.Setenv("MAILBOX_PROGRAM_ID", "0x0000000000000000000000000000000000000000000000000000000000000001")
	os.Setenv("ETHEREUM_URL", "https://example.invalid")
	os.Setenv("ETH_PRIVATE_KEY", "deadbeef")
	os.Setenv("DATABASE_URL", "postgres://example.invalid/portal")
	defer clearPortalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseID32List_SkipsBlankEntries(t *testing.T) {
	ids, err := parseID32List("0x01, , 0x02")
	if err != nil {
		t.Fatalf("parseID32List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
}
