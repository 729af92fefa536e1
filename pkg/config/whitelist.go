package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eco-protocol/portal/pkg/id32"
)

// whitelistFile is the on-disk shape of a prover whitelist bootstrap file,
// an addition beyond the teacher's env-only configuration: initialize_prover
// needs a static list too long to comfortably pass as one environment
// variable.
type whitelistFile struct {
	Senders []string `yaml:"senders"`
}

// LoadProverWhitelistFile reads a YAML file of hex-encoded sender IDs, the
// same shape `PROVER_WHITELIST` accepts inline but for a static bootstrap
// file handed to `initialize_prover`.
func LoadProverWhitelistFile(path string) ([]id32.ID, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading whitelist file: %w", err)
	}
	var wl whitelistFile
	if err := yaml.Unmarshal(raw, &wl); err != nil {
		return nil, fmt.Errorf("config: parsing whitelist file: %w", err)
	}
	out := make([]id32.ID, 0, len(wl.Senders))
	for _, s := range wl.Senders {
		id, err := id32.ParseHex(s)
		if err != nil {
			return nil, fmt.Errorf("config: whitelist entry %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}
