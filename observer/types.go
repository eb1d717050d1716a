// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package observer is the state-chain observer and result submitter (C5,
// §4.5): it consumes a lazy finite sequence of finalised block headers,
// decodes the pallet events each carries, drives the multisig.Client from
// them, and reports ceremony outcomes back as extrinsics. Grounded on
// original_source/engine/src/state_chain/sc_observer.rs's single select-loop
// shape, generalized from the original's tokio::select! over a block stream
// and an outcome channel to the same pattern over two Go channels.
package observer

import "github.com/meridianchain/validator-engine/crypto"

// Role is this validator's standing for the current epoch (§4.5 step 1).
type Role int

const (
	// RoleActive participates in the current epoch's validator set.
	RoleActive Role = iota
	// RoleOutgoing was active last epoch but not this one; it still finishes
	// any ceremony already underway for the outgoing vault.
	RoleOutgoing
	// RoleBackup is next in line should an active validator need replacing.
	RoleBackup
	// RolePassive is neither active, outgoing, nor backup.
	RolePassive
)

func (r Role) String() string {
	switch r {
	case RoleActive:
		return "active"
	case RoleOutgoing:
		return "outgoing"
	case RoleBackup:
		return "backup"
	case RolePassive:
		return "passive"
	default:
		return "unknown"
	}
}

// AccountData is the subset of on-chain account state role derivation needs,
// grounded on the original's `ChainflipAccountData`/`ChainflipAccountState`.
type AccountData struct {
	CurrentEpochActive  bool
	PreviousEpochActive bool
	IsBackup            bool
}

// deriveRole implements §4.5 step 1's role precedence.
func deriveRole(data AccountData) Role {
	switch {
	case data.CurrentEpochActive:
		return RoleActive
	case data.PreviousEpochActive:
		return RoleOutgoing
	case data.IsBackup:
		return RoleBackup
	default:
		return RolePassive
	}
}

// BlockHeightWindow is the Ethereum vault's active block-height range for an
// epoch, pushed onto the witnesser channels (§4.5 step 3).
type BlockHeightWindow struct {
	From uint64
	To   *uint64 // nil while the window is still open
}

// Header is one finalised state-chain block.
type Header struct {
	Number uint64
	Hash   [32]byte
}

// BlockEvents is everything this package cares about among a block's pallet
// events (§4.5 step 4), already decoded by the StateChainClient. Order within
// the slices is on-chain order; the observer processes it as received.
type BlockEvents struct {
	NewEpoch                   bool
	KeygenRequests             []KeygenRequestEvent
	ThresholdSignatureRequests []ThresholdSignatureRequestEvent
	TransactionSigningRequests []TransactionSigningRequestEvent
	TransmissionRequests       []TransmissionRequestEvent
	PeerIDChanges              []PeerIDChangeEvent
}

// KeygenRequestEvent asks the committee to run a DKG ceremony.
type KeygenRequestEvent struct {
	CeremonyID   uint64
	Participants []int
}

// ThresholdSignatureRequestEvent asks a signer set to sign PayloadHash under
// an already-agreed key.
type ThresholdSignatureRequestEvent struct {
	CeremonyID  uint64
	KeyID       [33]byte
	Validators  []int
	PayloadHash [32]byte
}

// TransactionSigningRequestEvent asks this validator specifically to locally
// sign an outgoing Ethereum transaction with the node's own broadcast key
// (§4.5 step 4 — this is not a threshold ceremony).
type TransactionSigningRequestEvent struct {
	AttemptID  uint64
	OurID      int
	UnsignedTx []byte
}

// TransmissionRequestEvent asks this validator to broadcast an already-signed
// transaction to Ethereum.
type TransmissionRequestEvent struct {
	AttemptID uint64
	SignedTx  []byte
}

// PeerIDChangeEvent is a peer registering or unregistering their p2p identity.
type PeerIDChangeEvent struct {
	Account    int
	PeerID     []byte
	Registered bool
}

// Extrinsic is a call to submit to the state chain, either signed or as an
// unsigned, on-chain-verified announcement (§6 "State-chain extrinsics
// emitted"). Args follow each extrinsic's documented parameter order; the
// StateChainClient implementation is responsible for encoding them.
type Extrinsic struct {
	Call string
	Args []any
}

func heartbeatExtrinsic() Extrinsic { return Extrinsic{Call: "heartbeat"} }

func reportKeygenOutcomeExtrinsic(ceremonyID uint64, success bool, pubkey [33]byte, blamed []int) Extrinsic {
	if success {
		return Extrinsic{Call: "report_keygen_outcome", Args: []any{ceremonyID, "success", pubkey}}
	}
	return Extrinsic{Call: "report_keygen_outcome", Args: []any{ceremonyID, "failure", blamed}}
}

func signatureSuccessExtrinsic(ceremonyID uint64, sig *crypto.Signature) Extrinsic {
	return Extrinsic{Call: "signature_success", Args: []any{ceremonyID, sig}}
}

func reportSignatureFailedExtrinsic(ceremonyID uint64, blamed []int) Extrinsic {
	return Extrinsic{Call: "report_signature_failed", Args: []any{ceremonyID, blamed}}
}

func transactionReadyForTransmissionExtrinsic(attemptID uint64, rawTx []byte, address string) Extrinsic {
	return Extrinsic{Call: "transaction_ready_for_transmission", Args: []any{attemptID, rawTx, address}}
}

func witnessEthTransmissionSuccessExtrinsic(attemptID uint64, txHash [32]byte) Extrinsic {
	return Extrinsic{Call: "witness_eth_transmission_success", Args: []any{attemptID, txHash}}
}

func witnessEthTransmissionFailureExtrinsic(attemptID uint64, reason string) Extrinsic {
	return Extrinsic{Call: "witness_eth_transmission_failure", Args: []any{attemptID, reason}}
}

// KeygenOutcomeIn and SigningOutcomeIn are this package's view of a finished
// ceremony (§4.5 step 5), mirroring multisig.KeygenOutcome/SigningOutcome
// structurally. Declared locally for the same reason as KeygenRequestIn/
// SignRequestIn: the host adapts the real multisig.Client channels into
// these at the composition root (see cmd/validator-engine).
type KeygenOutcomeIn struct {
	CeremonyID uint64
	Success    bool
	PubKey     [33]byte
	Blamed     []int
}

type SigningOutcomeIn struct {
	CeremonyID uint64
	Success    bool
	Signature  *crypto.Signature
	Blamed     []int
}
