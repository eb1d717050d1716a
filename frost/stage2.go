// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost

import (
	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
)

// stageVerifyCommit is §4.3 stage 2: every party re-broadcasts the full
// vector of stage-1 commitments it received; disagreement is blamed.
type stageVerifyCommit struct {
	sess  *Session
	nonce *crypto.SecretNoncePair
	mine  map[int]Comm1

	reports map[int]map[int][]byte // reporter -> subject index -> marshaled Comm1
}

func newStageVerifyCommit(sess *Session, nonce *crypto.SecretNoncePair, mine map[int]Comm1) *stageVerifyCommit {
	return &stageVerifyCommit{
		sess:    sess,
		nonce:   nonce,
		mine:    mine,
		reports: make(map[int]map[int][]byte, len(sess.Signers)),
	}
}

func (s *stageVerifyCommit) Tag() byte { return TagVerifyComm2 }

func (s *stageVerifyCommit) Start() ([]byte, *ceremony.Error) {
	data := make([]Comm1, 0, len(s.sess.Signers))
	for _, idx := range s.sess.Signers {
		data = append(data, s.mine[idx])
	}
	return VerifyComm2{Data: data}.Marshal(), nil
}

func (s *stageVerifyCommit) Update(sender int, payload []byte) *ceremony.Error {
	v, err := UnmarshalVerifyComm2(payload)
	if err != nil {
		common.Logger.Warnf("frost: dropping malformed VerifyComm2 from %d: %v", sender, err)
		return nil
	}
	view := make(map[int][]byte, len(v.Data))
	for _, c := range v.Data {
		view[int(c.Index)] = c.Marshal()
	}
	s.reports[sender] = view
	return nil
}

func (s *stageVerifyCommit) CanProceed() bool {
	return len(s.reports) == len(s.sess.Signers)
}

func (s *stageVerifyCommit) WaitingFor() []int {
	return missingInts(s.sess.Signers, s.reports)
}

func (s *stageVerifyCommit) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	agreed, diverged, ok := ceremony.CrossCheckBroadcast(s.sess.Signers, s.sess.Signers, s.reports)
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
	canonical := make(map[int]Comm1, len(agreed))
	for idx, bz := range agreed {
		c, err := UnmarshalComm1(bz)
		if err != nil {
			return nil, ceremony.FailureOutcome(nil), nil
		}
		canonical[idx] = c
	}
	return newStageLocalSig(s.sess, s.nonce, canonical), nil, nil
}
