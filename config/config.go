// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package config loads the engine's settings file (§9 "Configuration is
// loaded from a YAML file... the shape spec.md's §6 'Environment' calls
// for"): settlement-chain endpoints, this validator's identity keypair path,
// the key database path, stage timeout, and heartbeat interval. A handful of
// secrets (RPC credentials) are read from the environment instead, following
// up2itnow-ReadyTrader-Crypto/mpc_signer's envDefault pattern, so they never
// sit in a checked-in file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the engine's full bootstrap configuration.
type Config struct {
	// ValidatorIndex is this node's 1-based committee index, agreed on the
	// state chain ahead of time (§3's ceremony participant indices).
	ValidatorIndex int `yaml:"validator_index"`

	// IdentityKeyPath is the path to this validator's signed-extrinsic
	// keypair.
	IdentityKeyPath string `yaml:"identity_key_path"`

	// KeyDatabasePath is where completed DKG key shares persist (§5 "the key
	// database is shared read-only by signing ceremonies").
	KeyDatabasePath string `yaml:"key_database_path"`

	// StageTimeout bounds every ceremony stage (§5 "Stage timeout... default
	// 30s").
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// HeartbeatBlockInterval is the chain's configured heartbeat period in
	// blocks (§4.5 step 6); the observer sends at half of it.
	HeartbeatBlockInterval uint64 `yaml:"heartbeat_block_interval"`

	StateChain StateChainConfig `yaml:"state_chain"`
	Ethereum   EthereumConfig   `yaml:"ethereum"`

	LogLevel string `yaml:"log_level"`
}

// StateChainConfig is how the engine reaches the state chain.
type StateChainConfig struct {
	RPCEndpoint string `yaml:"rpc_endpoint"`
	// RPCCredentials is never read from YAML; Load sets it from the environment.
	RPCCredentials string `yaml:"-"`
}

// EthereumConfig is the settlement-chain (C7) dual-transport configuration.
type EthereumConfig struct {
	HTTPEndpoint   string        `yaml:"http_endpoint"`
	WSEndpoint     string        `yaml:"ws_endpoint"`
	DualTimeout    time.Duration `yaml:"dual_timeout"`
	SyncPollPeriod time.Duration `yaml:"sync_poll_period"`
}

// Default returns the engine's documented defaults (§5's stage-timeout
// default among them), to be overridden by whatever the YAML file sets.
func Default() Config {
	return Config{
		StageTimeout:           30 * time.Second,
		HeartbeatBlockInterval: 150,
		KeyDatabasePath:        "data/keys.db",
		Ethereum: EthereumConfig{
			DualTimeout:    5 * time.Second,
			SyncPollPeriod: 15 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads path as YAML over Default(), then layers environment-variable
// secrets on top (mustEnv/envDefault, grounded on
// up2itnow-ReadyTrader-Crypto/mpc_signer's main.go). A missing or malformed
// config file is a bootstrap error per §7's taxonomy: the caller is expected
// to treat it as fatal.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	cfg.StateChain.RPCCredentials = envDefault("VALIDATOR_ENGINE_SC_RPC_CREDENTIALS", "")
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ValidatorIndex <= 0 {
		return errors.New("config: validator_index must be positive")
	}
	if c.IdentityKeyPath == "" {
		return errors.New("config: identity_key_path is required")
	}
	if c.StateChain.RPCEndpoint == "" {
		return errors.New("config: state_chain.rpc_endpoint is required")
	}
	if c.Ethereum.HTTPEndpoint == "" || c.Ethereum.WSEndpoint == "" {
		return errors.New("config: ethereum.http_endpoint and ws_endpoint are both required")
	}
	if c.StageTimeout <= 0 {
		return errors.New("config: stage_timeout must be positive")
	}
	return nil
}

func envDefault(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}
