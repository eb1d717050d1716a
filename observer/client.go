// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package observer

import "context"

// StateChainClient is the narrow external-collaborator interface the
// observer needs (spec.md §1 "persistent key storage... through narrow
// interfaces" — the same principle applied to the chain client), grounded on
// the shape of the original's `StateChainClient<RpcClient>` but trimmed to
// exactly the calls sc_observer.rs makes: account/epoch lookups, event
// decode, and extrinsic submission.
type StateChainClient interface {
	AccountData(ctx context.Context, blockHash [32]byte) (AccountData, error)
	ActiveWindow(ctx context.Context, blockHash [32]byte) (BlockHeightWindow, error)
	EventsAt(ctx context.Context, blockHash [32]byte) (BlockEvents, error)
	SubmitSigned(ctx context.Context, ext Extrinsic) error
	SubmitUnsigned(ctx context.Context, ext Extrinsic) error
	// HeartbeatBlockInterval is the chain's configured heartbeat period, in
	// blocks; the observer sends at half that, centred (§4.5 step 6).
	HeartbeatBlockInterval() uint64
}

// EthBroadcaster signs and broadcasts Ethereum transactions using this
// validator's own outgoing-broadcast key (§4.5 step 4), distinct from the
// threshold-signed settlement vault key the multisig subsystem manages.
type EthBroadcaster interface {
	SignTransaction(unsignedTx []byte) (signedTx []byte, address string, err error)
	Broadcast(ctx context.Context, signedTx []byte) (txHash [32]byte, err error)
}

// MultisigRequester is the subset of multisig.Client the observer drives
// (§4.5 step 4's Keygen/Sign requests); kept as a narrow interface so tests
// can substitute a recorder instead of a live Client.
type MultisigRequester interface {
	HandleKeygenRequest(req KeygenRequestIn) error
	HandleSignRequest(req SignRequestIn) error
}

// KeygenRequestIn and SignRequestIn mirror multisig.KeygenRequest/SignRequest
// structurally; Observer builds them straight from decoded pallet events.
// Declared locally (rather than imported) so this package's public interface
// doesn't force every caller to depend on the ceremony/crypto/keygen stack
// transitively just to read observer's API.
type KeygenRequestIn struct {
	CeremonyID   uint64
	Participants []int
}

type SignRequestIn struct {
	CeremonyID  uint64
	KeyID       [33]byte
	Signers     []int
	PayloadHash [32]byte
}
