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

// stageComplaint is §4.4 round 4: every party broadcasts the set of dealers
// whose share to it failed verification. ceremony.AggregateBlame resolves
// the collected complaints into a final culprit set using its §4.4
// quorum/majority rules.
type stageComplaint struct {
	sess        *Session
	x           *big.Int // this party's running share total, pending complaint resolution
	commitments map[int]PolyCommit1
	mine        []int

	reports map[int][]int
}

func newStageComplaint(sess *Session, x *big.Int, commitments map[int]PolyCommit1, mine []int) *stageComplaint {
	return &stageComplaint{
		sess:        sess,
		x:           x,
		commitments: commitments,
		mine:        mine,
		reports:     make(map[int][]int, len(sess.Committee)),
	}
}

func (s *stageComplaint) Tag() byte { return TagComplaint4 }

func (s *stageComplaint) Start() ([]byte, *ceremony.Error) {
	accused := make([]uint32, len(s.mine))
	for i, idx := range s.mine {
		accused[i] = uint32(idx)
	}
	return Complaint4{Accused: accused}.Marshal(), nil
}

func (s *stageComplaint) Update(sender int, payload []byte) *ceremony.Error {
	c, err := UnmarshalComplaint4(payload)
	if err != nil {
		common.Logger.Warnf("keygen: dropping malformed Complaint4 from %d: %v", sender, err)
		return nil
	}
	accused := make([]int, len(c.Accused))
	for i, a := range c.Accused {
		accused[i] = int(a)
	}
	s.reports[sender] = accused
	return nil
}

func (s *stageComplaint) CanProceed() bool {
	return len(s.reports) == len(s.sess.Committee)
}

func (s *stageComplaint) WaitingFor() []int {
	return missingInts(s.sess.Committee, s.reports)
}

func (s *stageComplaint) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	blamed := ceremony.AggregateBlame(len(s.sess.Committee), s.reports, nil)
	if len(blamed) > 0 {
		return nil, ceremony.FailureOutcome(blamed), nil
	}
	return newStageAgreePubKey(s.sess, s.x, s.commitments), nil, nil
}
