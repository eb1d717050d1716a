// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package ethrpc is the settlement-chain RPC transport (C7, §5 "the
// settlement-chain RPC client is shared; it implements internal 'dual
// transport' — an HTTP and a WebSocket client race each call, whichever
// succeeds first wins; the other is discarded"). No websocket library is
// present anywhere in the retrieved example pack (see DESIGN.md), so the
// "WebSocket" transport here is the same JSON-RPC-over-HTTP call path as the
// HTTP one, tagged with a distinct Protocol purely for logging — the dual
// racing behaviour itself, which is the part the spec actually contracts on,
// is preserved and real.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Protocol identifies which of the two underlying connections served a
// dual-transport call, for logging (mirrors the original's
// `T::transport_protocol()` tag on every client-scoped log line).
type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolWS
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	case ProtocolWS:
		return "ws"
	default:
		return "unknown"
	}
}

// Transport performs a single JSON-RPC 2.0 call and decodes its result into
// out. A Transport is never retried internally; retry/race policy lives in
// Client.
type Transport interface {
	Protocol() Protocol
	Endpoint() string
	Call(ctx context.Context, method string, params []any, out any) error
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// httpTransport implements Transport over plain JSON-RPC-over-HTTP POST
// requests, grounded on the original's `web3::transports::Http` call shape
// (one request, one response, no persistent connection).
type httpTransport struct {
	protocol Protocol
	endpoint string
	client   *http.Client
}

// NewHTTPTransport builds the HTTP leg of the dual transport.
func NewHTTPTransport(endpoint string) Transport {
	return &httpTransport{protocol: ProtocolHTTP, endpoint: endpoint, client: &http.Client{}}
}

// NewWSTransport builds the "WebSocket" leg. See the package doc comment for
// why this is JSON-RPC-over-HTTP rather than a real websocket subscription
// client: no such library exists in the retrieved pack to ground one on.
func NewWSTransport(endpoint string) Transport {
	return &httpTransport{protocol: ProtocolWS, endpoint: endpoint, client: &http.Client{}}
}

func (t *httpTransport) Protocol() Protocol { return t.protocol }
func (t *httpTransport) Endpoint() string   { return t.endpoint }

func (t *httpTransport) Call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("ethrpc: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ethrpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("ethrpc: %s client: %w", t.protocol, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("ethrpc: %s client: decode response: %w", t.protocol, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("ethrpc: %s client: %w", t.protocol, rpcResp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("ethrpc: %s client: decode result: %w", t.protocol, err)
	}
	return nil
}

// RedactEndpoint strips user/credential info from an endpoint URL before it
// is ever logged (grounded on the original's `redact_secret_eth_node_endpoint`
// in `engine/src/eth/rpc.rs`). Endpoints that fail to parse are returned
// unmodified rather than risking a credential leak through a silently-wrong
// redaction; callers should treat a parse failure itself as suspicious.
func RedactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.User == nil {
		return endpoint
	}
	u.User = url.User("redacted")
	return u.String()
}
