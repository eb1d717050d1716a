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
)

// stageVerifyPolyCommit is §4.4 round 2: every party re-broadcasts the full
// vector of round-1 commitments it received, and any disagreement with the
// majority is blamed (the same cross-check shape as frost's stage 2).
type stageVerifyPolyCommit struct {
	sess     *Session
	myShares map[int]*big.Int
	mine     map[int]PolyCommit1

	reports map[int]map[int][]byte
}

func newStageVerifyPolyCommit(sess *Session, myShares map[int]*big.Int, mine map[int]PolyCommit1) *stageVerifyPolyCommit {
	return &stageVerifyPolyCommit{
		sess:     sess,
		myShares: myShares,
		mine:     mine,
		reports:  make(map[int]map[int][]byte, len(sess.Committee)),
	}
}

func (s *stageVerifyPolyCommit) Tag() byte { return TagVerifyPolyCommit2 }

func (s *stageVerifyPolyCommit) Start() ([]byte, *ceremony.Error) {
	data := make([]PolyCommit1, 0, len(s.sess.Committee))
	for _, idx := range s.sess.Committee {
		data = append(data, s.mine[idx])
	}
	return VerifyPolyCommit2{Data: data}.Marshal(), nil
}

func (s *stageVerifyPolyCommit) Update(sender int, payload []byte) *ceremony.Error {
	v, err := UnmarshalVerifyPolyCommit2(payload)
	if err != nil {
		common.Logger.Warnf("keygen: dropping malformed VerifyPolyCommit2 from %d: %v", sender, err)
		return nil
	}
	view := make(map[int][]byte, len(v.Data))
	for _, pc := range v.Data {
		view[int(pc.Index)] = pc.Marshal()
	}
	s.reports[sender] = view
	return nil
}

func (s *stageVerifyPolyCommit) CanProceed() bool {
	return len(s.reports) == len(s.sess.Committee)
}

func (s *stageVerifyPolyCommit) WaitingFor() []int {
	return missingInts(s.sess.Committee, s.reports)
}

func (s *stageVerifyPolyCommit) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	agreed, diverged, ok := ceremony.CrossCheckBroadcast(s.sess.Committee, s.sess.Committee, s.reports)
	if !ok {
		return nil, ceremony.FailureOutcome(nil), nil
	}
	if len(diverged) > 0 {
		blamed := make([]int, 0, len(diverged))
		for idx := range diverged {
			blamed = append(blamed, idx)
		}
		return nil, ceremony.FailureOutcome(blamed), nil
	}

	canonical := make(map[int]PolyCommit1, len(agreed))
	for idx, bz := range agreed {
		pc, err := UnmarshalPolyCommit1(bz)
		if err != nil {
			return nil, ceremony.FailureOutcome(nil), nil
		}
		canonical[idx] = pc
	}
	return newStageShare(s.sess, s.myShares, canonical), nil, nil
}
