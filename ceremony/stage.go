// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import "github.com/meridianchain/validator-engine/party"

// Stage is one logical round of a ceremony protocol (FROST signing or DKG
// keygen). It mirrors the Start/Update/CanProceed/NextRound shape the teacher
// library uses for its ECDSA/EdDSA rounds, generalized to the broadcast +
// optional verifying cross-check pattern described in §4.2.
//
// A ceremony's protocol is a chain of Stages threaded together by Runner: each
// stage is driven to completion (every expected sender heard from, or timeout),
// then asked to produce the next Stage or a terminal Outcome.
type Stage interface {
	// Tag identifies this stage on the wire (§6 stage_tag) and in logs.
	Tag() byte

	// Start computes and returns this party's own outbound payload for the
	// stage, if any. A stage with nothing to broadcast (e.g. a purely local
	// computation step) returns a nil payload.
	Start() ([]byte, *Error)

	// Update feeds in a single peer's raw payload for this stage. The Runner
	// does not filter repeats: a sender that sends twice for a live stage
	// reaches Update twice, and a second early (buffered) payload replaces
	// the first. The stages in this module keep payloads in per-sender maps,
	// so a later payload overwrites an earlier one.
	Update(sender int, payload []byte) *Error

	// CanProceed reports whether every payload this stage is waiting on has
	// arrived (via Update) or the stage has otherwise reached quorum.
	CanProceed() bool

	// WaitingFor lists the party indices this stage still expects a payload
	// from. Used both for logging and for timeout blame.
	WaitingFor() []int

	// Finalize is called once CanProceed() is true. It returns either the next
	// Stage in the chain, or (on the terminal stage) a non-nil *Outcome. Only
	// one of next/outcome is non-nil on success.
	Finalize() (next Stage, outcome *Outcome, err *Error)
}

// P2PStage is implemented by a stage whose outbound payload is not a single
// broadcast but a distinct message per recipient (§4.4 round 3: "sends to
// each other party j the scalar f_i(j) over the peer-to-peer channel, not
// broadcast" — sharing one payload with every peer would leak every other
// party's secret share). Runner type-asserts for this instead of calling
// Start() when a stage implements it.
type P2PStage interface {
	Stage

	// StartP2P returns this party's per-recipient payloads, keyed by
	// recipient party index. The map may include an entry for the sender's
	// own index; the Runner delivers that one locally instead of sending it.
	StartP2P() (map[int][]byte, *Error)
}

// Outcome is the terminal result of a ceremony: either a success value (a
// *crypto.Signature, a *keygen.Result, ...) or a failure with the indices of
// the participants to blame (empty when the failure cannot be pinned on any
// single party, §4.3).
type Outcome struct {
	Success bool
	Result  any
	Blamed  []int
}

// FailureOutcome builds a failed Outcome, deduplicating and sorting the
// blamed indices for deterministic logging.
func FailureOutcome(blamed []int) *Outcome {
	return &Outcome{Success: false, Blamed: dedupSortInts(blamed)}
}

// SuccessOutcome builds a successful Outcome carrying the protocol result.
func SuccessOutcome(result any) *Outcome {
	return &Outcome{Success: true, Result: result}
}

func dedupSortInts(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// culpritIDs resolves blamed party indices to *party.ID for presentation,
// skipping any index the mapping does not recognise.
func culpritIDs(mapping *party.IndexMapping, blamed []int) []*party.ID {
	out := make([]*party.ID, 0, len(blamed))
	for _, idx := range blamed {
		if id := mapping.ByIndex(idx); id != nil {
			out = append(out, id)
		}
	}
	return out
}
