// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/frost"
)

// stageHandover is §4.4 round 6: the committee immediately runs a signing
// ceremony over a fixed payload with the freshly minted key, to prove it can
// actually produce a signature before anything is reported to the state
// chain. It delegates Stage entirely to an embedded frost ceremony over the
// full committee (not a t+1 subset — every member just proved it holds a
// valid share, so every member signs), and translates the embedded
// ceremony's terminal outcome into a *Result instead of a bare *crypto.Signature.
type stageHandover struct {
	sess   *Session
	result *Result

	inner ceremony.Stage
}

func newStageHandover(sess *Session, result *Result) *stageHandover {
	return &stageHandover{sess: sess, result: result}
}

func (s *stageHandover) initInner() *ceremony.Error {
	payload := handoverPayload(s.result.Share.Y)
	frostSess, err := frost.NewSession(s.sess.CeremonyID, payload, s.result.Share, s.sess.Committee, s.sess.OurIndex)
	if err != nil {
		return ceremony.NewError(err, "keygen-handover", 6)
	}
	s.inner = frost.FirstStage(frostSess)
	return nil
}

func (s *stageHandover) Tag() byte { return s.inner.Tag() }

func (s *stageHandover) Start() ([]byte, *ceremony.Error) {
	if s.inner == nil {
		if err := s.initInner(); err != nil {
			return nil, err
		}
	}
	return s.inner.Start()
}

func (s *stageHandover) Update(sender int, payload []byte) *ceremony.Error {
	return s.inner.Update(sender, payload)
}

func (s *stageHandover) CanProceed() bool { return s.inner.CanProceed() }

func (s *stageHandover) WaitingFor() []int { return s.inner.WaitingFor() }

func (s *stageHandover) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	next, outcome, err := s.inner.Finalize()
	if err != nil {
		return nil, nil, err
	}
	if outcome == nil {
		return &stageHandover{sess: s.sess, result: s.result, inner: next}, nil, nil
	}
	if !outcome.Success {
		return nil, ceremony.FailureOutcome(outcome.Blamed), nil
	}
	sig, ok := outcome.Result.(*crypto.Signature)
	if !ok {
		return nil, ceremony.FailureOutcome(nil), nil
	}
	final := *s.result
	final.HandoverProof = sig
	return nil, ceremony.SuccessOutcome(&final), nil
}
