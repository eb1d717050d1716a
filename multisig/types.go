// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package multisig is the multisig client (§9 "the multisig client is the
// single consumer of both incoming p2p messages and ceremony instructions,
// multiplexed by a select"): it turns KeygenRequest/SignRequest instructions
// from the observer into running ceremony.Runners, routes inbound p2p
// envelopes to the right one, and reports each ceremony's terminal Outcome
// back out as a KeygenOutcome or SigningOutcome.
package multisig

import (
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/keygen"
)

// KeygenRequest instructs the client to start a DKG ceremony over the given
// committee (§4.5 step 4, §3 "additional types needed for wiring").
type KeygenRequest struct {
	CeremonyID   uint64
	Participants []int
}

// SignRequest instructs the client to start a signing ceremony for an
// already-agreed key. PayloadHash is the 32-byte keccak256 the observer
// received verbatim from the state chain (§6 "the engine never decodes or
// reconstructs it").
type SignRequest struct {
	CeremonyID  uint64
	KeyID       [33]byte
	Signers     []int
	PayloadHash [32]byte
}

// KeygenOutcome is a finished keygen ceremony's result, destined for
// report_keygen_outcome (§6 "State-chain extrinsics emitted").
type KeygenOutcome struct {
	CeremonyID uint64
	Success    bool
	Result     *keygen.Result
	Blamed     []int
}

// SigningOutcome is a finished signing ceremony's result, destined for either
// signature_success or report_signature_failed (§6).
type SigningOutcome struct {
	CeremonyID uint64
	Success    bool
	Signature  *crypto.Signature
	Blamed     []int
}
