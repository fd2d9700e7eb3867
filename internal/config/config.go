// Package config loads the coordinator's runtime configuration from
// environment variables (optionally backed by a .env file), mirroring
// the enumerated configuration keys of the coordination contract.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config mirrors the configuration keys enumerated in §6 of the
// coordination contract.
type Config struct {
	Network           string `envconfig:"MSIG_NETWORK" default:"preprod"`
	IndexerBaseURL    string `envconfig:"MSIG_INDEXER_BASE_URL"`
	IndexerProjectID  string `envconfig:"MSIG_INDEXER_PROJECT_ID" required:"true"`
	IndexerTimeoutSec int    `envconfig:"MSIG_INDEXER_TIMEOUT_SECONDS" default:"30"`

	MinAdaLovelace uint64 `envconfig:"MSIG_MIN_ADA_LOVELACE" default:"2000000"`
	AllowedOrigin  string `envconfig:"MSIG_ALLOWED_ORIGIN" default:"*"`

	MultisigAddress      string `envconfig:"MSIG_MULTISIG_ADDRESS"`
	PaymentScriptCborHex string `envconfig:"MSIG_PAYMENT_SCRIPT_CBOR_HEX"`
	RequiredKeyHashesCSV string `envconfig:"MSIG_REQUIRED_KEY_HASHES"`
	MRequired            int    `envconfig:"MSIG_M_REQUIRED"`
	DestAddress          string `envconfig:"MSIG_DEST_ADDRESS"`

	LogDebug bool `envconfig:"MSIG_LOG_DEBUG" default:"false"`
}

// Load reads a .env file if present (environment variables always win)
// then processes MSIG_* environment variables into a Config.
func Load(logger *zap.Logger) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.Warn("failed to load .env file", zap.Error(err))
		} else {
			logger.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NetworkID returns the chain's numeric network id used in address
// derivation: 1 for mainnet, 0 for every other (test) network.
func (c *Config) NetworkID() byte {
	if c.Network == "mainnet" {
		return 1
	}
	return 0
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Network != "mainnet" && c.Network != "preprod" {
		return fmt.Errorf("%w: network must be \"mainnet\" or \"preprod\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.IndexerTimeoutSec <= 0 {
		return fmt.Errorf("%w: indexer timeout must be positive, got %d", ErrInvalidConfig, c.IndexerTimeoutSec)
	}
	if c.MinAdaLovelace == 0 {
		return fmt.Errorf("%w: min ada lovelace must be positive", ErrInvalidConfig)
	}
	return nil
}
