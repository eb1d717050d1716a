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
	"github.com/meridianchain/validator-engine/frost"
)

// stageAgreePubKey is §4.4 round 5: every party independently derives the
// aggregate public key Y = Σ_j A_{j,0} from the (already cross-checked)
// round-1 commitments, then cross-checks that derivation against its peers.
type stageAgreePubKey struct {
	sess        *Session
	x           *big.Int
	commitments map[int]PolyCommit1

	mine    [33]byte
	reports map[int]map[int][]byte
}

func newStageAgreePubKey(sess *Session, x *big.Int, commitments map[int]PolyCommit1) *stageAgreePubKey {
	return &stageAgreePubKey{
		sess:        sess,
		x:           x,
		commitments: commitments,
		reports:     make(map[int]map[int][]byte, len(sess.Committee)),
	}
}

func (s *stageAgreePubKey) Tag() byte { return TagAgreePubKey5 }

func (s *stageAgreePubKey) Start() ([]byte, *ceremony.Error) {
	total, err := sumCommitments(s.sess.Threshold, s.commitments)
	if err != nil {
		return nil, ceremony.NewError(err, "keygen-agree-pubkey", 5)
	}
	s.mine = total[0].Compress33()
	return AgreePubKey5{Y: s.mine}.Marshal(), nil
}

func (s *stageAgreePubKey) Update(sender int, payload []byte) *ceremony.Error {
	a, err := UnmarshalAgreePubKey5(payload)
	if err != nil {
		common.Logger.Warnf("keygen: dropping malformed AgreePubKey5 from %d: %v", sender, err)
		return nil
	}
	s.reports[sender] = map[int][]byte{0: a.Y[:]}
	return nil
}

func (s *stageAgreePubKey) CanProceed() bool {
	return len(s.reports) == len(s.sess.Committee)
}

func (s *stageAgreePubKey) WaitingFor() []int {
	return missingInts(s.sess.Committee, s.reports)
}

func (s *stageAgreePubKey) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	agreed, diverged, ok := ceremony.CrossCheckBroadcast(s.sess.Committee, []int{0}, s.reports)
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

	total, err := sumCommitments(s.sess.Threshold, s.commitments)
	if err != nil {
		return nil, ceremony.FailureOutcome(nil), nil
	}
	y, err := crypto.DecompressCompressed(agreed[0])
	if err != nil {
		return nil, ceremony.FailureOutcome(nil), nil
	}
	partyPublicKeys := make(map[int]*crypto.ECPoint, len(s.sess.Committee))
	for _, idx := range s.sess.Committee {
		pub, err := evaluateCommitmentAt(total, s.sess.Threshold, big.NewInt(int64(idx)))
		if err != nil {
			return nil, ceremony.FailureOutcome(nil), nil
		}
		partyPublicKeys[idx] = pub
	}

	share := &frost.KeyShare{
		Index:           s.sess.OurIndex,
		X:               s.x,
		Y:               y,
		PartyPublicKeys: partyPublicKeys,
	}
	result := &Result{Share: share}
	return newStageHandover(s.sess, result), nil, nil
}
