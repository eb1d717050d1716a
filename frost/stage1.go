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

// stageCommit is §4.3 stage 1: sample a fresh nonce pair and broadcast its
// public commitments.
type stageCommit struct {
	sess     *Session
	nonce    *crypto.SecretNoncePair
	received map[int]Comm1
}

func newStageCommit(sess *Session) *stageCommit {
	return &stageCommit{sess: sess, received: make(map[int]Comm1, len(sess.Signers))}
}

func (s *stageCommit) Tag() byte { return TagComm1 }

func (s *stageCommit) Start() ([]byte, *ceremony.Error) {
	s.nonce = crypto.NewSecretNoncePair()
	w := Comm1{
		Index: uint32(s.sess.OurIndex),
		D:     s.nonce.BigD.Compress33(),
		E:     s.nonce.BigE.Compress33(),
	}
	return w.Marshal(), nil
}

func (s *stageCommit) Update(sender int, payload []byte) *ceremony.Error {
	w, err := UnmarshalComm1(payload)
	if err != nil {
		common.Logger.Warnf("frost: dropping malformed Comm1 from %d: %v", sender, err)
		return nil
	}
	if int(w.Index) != sender {
		common.Logger.Warnf("frost: dropping Comm1 from %d claiming index %d", sender, w.Index)
		return nil
	}
	s.received[sender] = w
	return nil
}

func (s *stageCommit) CanProceed() bool {
	return len(s.received) == len(s.sess.Signers)
}

func (s *stageCommit) WaitingFor() []int {
	return missingInts(s.sess.Signers, s.received)
}

func (s *stageCommit) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	return newStageVerifyCommit(s.sess, s.nonce, s.received), nil, nil
}
