// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/config"
)

const validYAML = `
validator_index: 2
identity_key_path: /etc/validator-engine/identity.key
stage_timeout: 45s
heartbeat_block_interval: 200
state_chain:
  rpc_endpoint: wss://state-chain.example.com
ethereum:
  http_endpoint: https://eth.example.com
  ws_endpoint: wss://eth.example.com
  dual_timeout: 3s
`

func writeTempConfig(t *testing.T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.ValidatorIndex)
	assert.Equal(t, 45*time.Second, cfg.StageTimeout)
	assert.Equal(t, uint64(200), cfg.HeartbeatBlockInterval)
	// SyncPollPeriod isn't set in the YAML, so the default survives.
	assert.Equal(t, 15*time.Second, cfg.Ethereum.SyncPollPeriod)
	assert.Equal(t, 3*time.Second, cfg.Ethereum.DualTimeout)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeTempConfig(t, `validator_index: 1`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadReadsRPCCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("VALIDATOR_ENGINE_SC_RPC_CREDENTIALS", "s3cr3t")
	path := writeTempConfig(t, validYAML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.StateChain.RPCCredentials)
}
