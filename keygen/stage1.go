// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/crypto/vss"
)

// stagePolyCommit is §4.4 round 1: every committee member acts as its own
// Feldman VSS dealer over a fresh degree-t polynomial and broadcasts its
// coefficient commitments.
type stagePolyCommit struct {
	sess *Session

	myShares map[int]*big.Int // recipient committee index -> f_i(j), kept for round 3
	received map[int]PolyCommit1
}

func newStagePolyCommit(sess *Session) *stagePolyCommit {
	return &stagePolyCommit{sess: sess, received: make(map[int]PolyCommit1, len(sess.Committee))}
}

func (s *stagePolyCommit) Tag() byte { return TagPolyCommit1 }

func (s *stagePolyCommit) Start() ([]byte, *ceremony.Error) {
	secret := crypto.RandomScalar()
	ids := make([]*big.Int, len(s.sess.Committee))
	for i, idx := range s.sess.Committee {
		ids[i] = big.NewInt(int64(idx))
	}
	vs, shares, err := vss.Create(crypto.S256(), s.sess.Threshold, secret, ids)
	if err != nil {
		return nil, ceremony.NewError(err, "keygen-poly-commit", 1)
	}
	s.myShares = make(map[int]*big.Int, len(shares))
	for i, idx := range s.sess.Committee {
		s.myShares[idx] = shares[i].Share
	}
	coeffs := make([][33]byte, len(vs))
	for i, v := range vs {
		coeffs[i] = v.Compress33()
	}
	pc := PolyCommit1{Index: uint32(s.sess.OurIndex), Coeffs: coeffs}
	return pc.Marshal(), nil
}

func (s *stagePolyCommit) Update(sender int, payload []byte) *ceremony.Error {
	pc, err := UnmarshalPolyCommit1(payload)
	if err != nil {
		common.Logger.Warnf("keygen: dropping malformed PolyCommit1 from %d: %v", sender, err)
		return nil
	}
	if int(pc.Index) != sender || len(pc.Coeffs) != s.sess.Threshold+1 {
		common.Logger.Warnf("keygen: dropping inconsistent PolyCommit1 from %d", sender)
		return nil
	}
	s.received[sender] = pc
	return nil
}

func (s *stagePolyCommit) CanProceed() bool {
	return len(s.received) == len(s.sess.Committee)
}

func (s *stagePolyCommit) WaitingFor() []int {
	return missingInts(s.sess.Committee, s.received)
}

func (s *stagePolyCommit) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	return newStageVerifyPolyCommit(s.sess, s.myShares, s.received), nil, nil
}
