// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ethrpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meridianchain/validator-engine/common"
)

// Client is the dual-transport settlement-chain RPC client (§5 "an HTTP and
// a WebSocket client race each call, whichever succeeds first wins; the
// other is discarded"). It is shared read-only across the observer's block
// loop and any transaction-broadcast path.
type Client struct {
	ws, http    Transport
	dualTimeout time.Duration
}

// NewClient builds a Client racing ws against http. dualTimeout bounds the
// whole race (§5 "dual_request_timeout"); on expiry the call fails without
// cancelling either leg's underlying socket (best-effort cleanup, §7
// "Transport failure").
func NewClient(ws, http Transport, dualTimeout time.Duration) *Client {
	return &Client{ws: ws, http: http, dualTimeout: dualTimeout}
}

type callResult struct {
	protocol Protocol
	raw      json.RawMessage
	err      error
}

// call races ws and http, decoding the first success into out. Both legs run
// to completion regardless of which wins, so a slow loser's connection is
// never left half-read; only its result is discarded.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	timer := time.NewTimer(c.dualTimeout)
	defer timer.Stop()

	results := make(chan callResult, 2)
	race := func(t Transport) {
		var raw json.RawMessage
		err := t.Call(ctx, method, params, &raw)
		results <- callResult{protocol: t.Protocol(), raw: raw, err: err}
	}
	go race(c.ws)
	go race(c.http)

	var firstErr error
	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ethrpc: %s: %w", method, ctx.Err())
		case <-timer.C:
			return fmt.Errorf("ethrpc: %s: %w", method, context.DeadlineExceeded)
		case res := <-results:
			if res.err == nil {
				if out != nil && len(res.raw) > 0 {
					if err := json.Unmarshal(res.raw, out); err != nil {
						return fmt.Errorf("ethrpc: %s: decode %s result: %w", method, res.protocol, err)
					}
				}
				return nil
			}
			common.Logger.Warnf("ethrpc: %s leg of %s failed: %v", res.protocol, method, res.err)
			if firstErr == nil {
				firstErr = res.err
			}
		}
	}
	common.Logger.Desugar().Error("ethrpc: both transports failed",
		zap.String("method", method),
		zap.Error(firstErr),
	)
	return fmt.Errorf("ethrpc: %s: both transports failed: %w", method, firstErr)
}

// BlockNumber returns the latest block height known to either transport.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var hexResult string
	if err := c.call(ctx, "eth_blockNumber", nil, &hexResult); err != nil {
		return 0, err
	}
	return parseHexUint(hexResult)
}

// SendRawTransaction broadcasts a signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) ([32]byte, error) {
	var hexResult string
	if err := c.call(ctx, "eth_sendRawTransaction", []any{"0x" + hex.EncodeToString(raw)}, &hexResult); err != nil {
		return [32]byte{}, err
	}
	var hash [32]byte
	decoded, err := hex.DecodeString(trimHexPrefix(hexResult))
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("ethrpc: malformed transaction hash %q", hexResult)
	}
	copy(hash[:], decoded)
	return hash, nil
}

// SyncState reports whether the node is still syncing (§4.5 "Periodic
// sync-state poll"): eth_syncing returns `false` once caught up, or a
// progress object while syncing.
func (c *Client) SyncState(ctx context.Context) (syncing bool, err error) {
	var raw json.RawMessage
	if err := c.call(ctx, "eth_syncing", nil, &raw); err != nil {
		return false, err
	}
	var asBool bool
	if jsonErr := json.Unmarshal(raw, &asBool); jsonErr == nil {
		return asBool, nil
	}
	// Anything that doesn't decode as `false` is a syncing-progress object.
	return true, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func parseHexUint(s string) (uint64, error) {
	s = trimHexPrefix(s)
	if s == "" {
		return 0, nil
	}
	var v uint64
	for _, r := range s {
		var d uint64
		switch {
		case r >= '0' && r <= '9':
			d = uint64(r - '0')
		case r >= 'a' && r <= 'f':
			d = uint64(r-'a') + 10
		case r >= 'A' && r <= 'F':
			d = uint64(r-'A') + 10
		default:
			return 0, fmt.Errorf("ethrpc: malformed hex integer %q", s)
		}
		v = v*16 + d
	}
	return v, nil
}
