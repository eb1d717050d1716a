// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"fmt"
	"time"

	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/party"
)

// State is the Runner's lifecycle position (§4.1).
type State int

const (
	// Idle: the ceremony has been created locally but no Stage has been
	// authorised yet (e.g. we are still waiting on our own operator/observer
	// to approve participation).
	Idle State = iota
	// Unauthorised: messages have started arriving for this ceremony id before
	// local authorisation; they are buffered per sender per stage rather than
	// dropped, since a fast peer is not misbehaving (§4.1).
	Unauthorised
	// Authorised: a Stage is actively running.
	Authorised
	// Terminal: the ceremony has produced its Outcome and accepts no further
	// input.
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Unauthorised:
		return "unauthorised"
	case Authorised:
		return "authorised"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Runner drives a single ceremony's Stage chain to completion. It owns the
// per-sender-per-stage message buffer, the active Stage, and the stage
// timeout clock. One Runner exists per in-flight ceremony on the multisig
// client (§9 "single-consumer select loop").
type Runner struct {
	mapping       *party.IndexMapping
	ceremonyID    uint64
	task          string
	timeout       time.Duration
	onOutbound    func(stageTag byte, payload []byte)
	onP2POutbound func(stageTag byte, recipient int, payload []byte)

	state State
	stage Stage

	// buffered holds payloads keyed by stage tag then sender index, covering
	// both pre-authorisation arrivals and early arrivals for a stage that
	// hasn't started yet (a fast peer can be one stage ahead of us).
	buffered map[byte]map[int][]byte

	// passed records every stage tag this Runner has already advanced beyond,
	// so a late retransmit for a finished stage is discarded rather than
	// buffered forever (§4.2 "messages for a past stage are discarded").
	passed map[byte]struct{}

	deadline time.Time
	outcome  *Outcome
}

// NewRunner constructs a Runner in the Idle state. onOutbound is invoked with
// every non-empty payload a local stage produces, for the host (the multisig
// client's p2p outbound channel, §5 "Shared resources") to broadcast to the
// rest of the participant set; it may be nil for a stage that never emits.
func NewRunner(mapping *party.IndexMapping, ceremonyID uint64, task string, stageTimeout time.Duration, onOutbound func(stageTag byte, payload []byte)) *Runner {
	return &Runner{
		mapping:    mapping,
		ceremonyID: ceremonyID,
		task:       task,
		timeout:    stageTimeout,
		onOutbound: onOutbound,
		state:      Idle,
		buffered:   make(map[byte]map[int][]byte),
		passed:     make(map[byte]struct{}),
	}
}

func (r *Runner) State() State      { return r.state }
func (r *Runner) Outcome() *Outcome { return r.outcome }

// SetP2POutbound registers the host's point-to-point send function, for
// ceremonies that include a P2PStage (§4.4 round 3). Stages that only ever
// broadcast never need this set.
func (r *Runner) SetP2POutbound(f func(stageTag byte, recipient int, payload []byte)) {
	r.onP2POutbound = f
}

// Authorise transitions Idle/Unauthorised into Authorised, starts the given
// first Stage, and replays anything already buffered for it.
func (r *Runner) Authorise(first Stage) *Error {
	if r.state == Terminal {
		return NewError(fmt.Errorf("ceremony %d already terminal", r.ceremonyID), r.task, -1)
	}
	r.state = Authorised
	return r.enterStage(first)
}

func (r *Runner) enterStage(s Stage) *Error {
	if r.stage != nil {
		r.passed[r.stage.Tag()] = struct{}{}
	}
	r.stage = s
	r.deadline = time.Time{}

	if p2p, ok := s.(P2PStage); ok {
		payloads, err := p2p.StartP2P()
		if err != nil {
			return err
		}
		ourIndex := r.mapping.OurIndex()
		for recipient, payload := range payloads {
			if recipient == ourIndex {
				if uerr := s.Update(ourIndex, payload); uerr != nil {
					return uerr
				}
				continue
			}
			if r.onP2POutbound != nil {
				r.onP2POutbound(s.Tag(), recipient, payload)
			}
		}
	} else {
		out, err := s.Start()
		if err != nil {
			return err
		}
		if out != nil {
			if r.onOutbound != nil {
				r.onOutbound(s.Tag(), out)
			}
			// Self-delivery: a stage's own broadcast also counts toward its own
			// completion bookkeeping, mirroring the teacher's round.Update(self).
			if uerr := s.Update(r.mapping.OurIndex(), out); uerr != nil {
				return uerr
			}
		}
	}
	r.deadline = time.Now().Add(r.timeout)

	tag := s.Tag()
	if pending, ok := r.buffered[tag]; ok {
		for sender, payload := range pending {
			if sender == r.mapping.OurIndex() {
				continue
			}
			if uerr := s.Update(sender, payload); uerr != nil {
				return uerr
			}
		}
		delete(r.buffered, tag)
	}
	return r.tryAdvance()
}

func (r *Runner) tryAdvance() *Error {
	for r.stage != nil && r.stage.CanProceed() {
		next, outcome, err := r.stage.Finalize()
		if err != nil {
			return err
		}
		if outcome != nil {
			r.state = Terminal
			r.outcome = outcome
			r.stage = nil
			return nil
		}
		if err := r.enterStage(next); err != nil {
			return err
		}
	}
	return nil
}

// ProcessMessage routes one peer payload to the active stage, or buffers it
// if the ceremony is not yet authorised or the payload targets a stage that
// hasn't started.
func (r *Runner) ProcessMessage(sender int, env Envelope) *Error {
	if r.state == Terminal {
		return nil // stale message for a finished ceremony; not an error
	}
	if _, done := r.passed[env.StageTag]; done {
		return nil // retransmit for a stage we've already advanced past; discard, not buffer
	}
	if r.state != Authorised || r.stage == nil || r.stage.Tag() != env.StageTag {
		if r.state == Idle {
			r.state = Unauthorised
		}
		if r.buffered[env.StageTag] == nil {
			r.buffered[env.StageTag] = make(map[int][]byte)
		}
		r.buffered[env.StageTag][sender] = env.Payload
		return nil
	}
	if err := r.stage.Update(sender, env.Payload); err != nil {
		return err
	}
	return r.tryAdvance()
}

// TryExpire checks the current stage's deadline against now and, if it has
// passed, fails the ceremony by blaming whichever parties the stage is still
// WaitingFor (§4.3 "unresponsive parties are always blamed").
func (r *Runner) TryExpire(now time.Time) *Outcome {
	if r.state != Authorised || r.stage == nil {
		return nil
	}
	if r.deadline.IsZero() || now.Before(r.deadline) {
		return nil
	}
	blamed := r.stage.WaitingFor()
	common.Logger.Warnf("ceremony %d (%s) stage %d timed out, blaming %v", r.ceremonyID, r.task, r.stage.Tag(), blamed)
	r.outcome = FailureOutcome(blamed)
	r.state = Terminal
	r.stage = nil
	return r.outcome
}
