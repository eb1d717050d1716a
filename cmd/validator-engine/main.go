// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Command validator-engine is the daemon entrypoint (C6, §9): it loads
// configuration, builds the crypto/keystore/RPC collaborators, and runs the
// observer and multisig-client loops until an OS signal is received,
// mirroring up2itnow-ReadyTrader-Crypto/mpc_signer's main.go bootstrap shape
// (flag parsing, logger init, background loops, graceful shutdown) adapted
// from an HTTP-server daemon to this one's channel-driven loops.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/config"
	"github.com/meridianchain/validator-engine/ethrpc"
	"github.com/meridianchain/validator-engine/multisig"
	"github.com/meridianchain/validator-engine/observer"
)

func main() {
	configPath := flag.String("config", "/etc/validator-engine/config.yaml", "path to the engine's YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Bootstrap errors abort the process per §7's taxonomy.
		common.Logger.Fatalf("validator-engine: failed to load configuration from %s: %v", *configPath, err)
	}
	if err := common.SetLogLevel(cfg.LogLevel); err != nil {
		common.Logger.Fatalf("validator-engine: invalid log_level %q: %v", cfg.LogLevel, err)
	}

	keystore, err := multisig.NewFileKeystore(cfg.KeyDatabasePath)
	if err != nil {
		common.Logger.Fatalf("validator-engine: failed to open key database at %s: %v", cfg.KeyDatabasePath, err)
	}

	ethClient := ethrpc.NewClient(
		ethrpc.NewWSTransport(cfg.Ethereum.WSEndpoint),
		ethrpc.NewHTTPTransport(cfg.Ethereum.HTTPEndpoint),
		cfg.Ethereum.DualTimeout,
	)
	common.Logger.Infof("validator-engine: settlement-chain RPC dual transport: http=%s ws=%s",
		ethrpc.RedactEndpoint(cfg.Ethereum.HTTPEndpoint), ethrpc.RedactEndpoint(cfg.Ethereum.WSEndpoint))

	// The p2p layer is an explicit Non-goal (spec.md §1): the engine core
	// only produces/consumes {ceremony_id, stage_tag, payload} envelopes and
	// expects a transport to be wired in here. No peer transport library
	// appears anywhere in the retrieved example pack to ground a real one
	// on (the same gap noted for the websocket leg of ethrpc), so these
	// hooks log the outbound traffic a deployment's transport would carry.
	msClient := multisig.NewClient(cfg.ValidatorIndex, keystore, cfg.StageTimeout,
		func(ceremonyID uint64, stageTag byte, payload []byte) {
			common.Logger.Debugf("validator-engine: p2p broadcast out: ceremony=%d stage=%d bytes=%d", ceremonyID, stageTag, len(payload))
		},
		func(ceremonyID uint64, stageTag byte, recipient int, payload []byte) {
			common.Logger.Debugf("validator-engine: p2p send out: ceremony=%d stage=%d to=%d bytes=%d", ceremonyID, stageTag, recipient, len(payload))
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	obs := observer.New(cfg.ValidatorIndex, newStateChainClient(cfg), newEthBroadcaster(ethClient), newMultisigAdapter(msClient), nil, nil, nil)

	errs := make(chan error, 2)
	go func() { errs <- runMultisigTicker(ctx, msClient) }()
	go func() { errs <- obs.Run(ctx, [32]byte{}, newBlockStream(ctx), newKeygenOutcomeStream(ctx, msClient), newSigningOutcomeStream(ctx, msClient)) }()

	select {
	case <-ctx.Done():
		common.Logger.Info("validator-engine: shutting down on signal")
	case err := <-errs:
		common.Logger.Errorf("validator-engine: a core loop exited: %v", err)
		cancel()
	}
}

// runMultisigTicker drives multisig.Client.Tick on a fixed period, the
// "periodic try_expire" arm of the select loop spec §5 describes.
func runMultisigTicker(ctx context.Context, c *multisig.Client) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}
