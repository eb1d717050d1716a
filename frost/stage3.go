// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost

import (
	"errors"
	"math/big"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
)

var errGroupCommitment = errors.New("frost: could not compute group commitment from peer commitments")

// stageLocalSig is §4.3 stage 3: compute the binding values, group
// commitment, Lagrange coefficient, and this party's local response.
type stageLocalSig struct {
	sess        *Session
	commitments map[int]Comm1

	rho    map[int]*big.Int
	r      *crypto.ECPoint
	e      *big.Int
	lambda map[int]*big.Int

	ourResponse *big.Int
	received    map[int]LocalSig3
}

func newStageLocalSig(sess *Session, nonce *crypto.SecretNoncePair, commitments map[int]Comm1) *stageLocalSig {
	s := &stageLocalSig{
		sess:        sess,
		commitments: commitments,
		rho:         make(map[int]*big.Int, len(sess.Signers)),
		lambda:      make(map[int]*big.Int, len(sess.Signers)),
		received:    make(map[int]LocalSig3, len(sess.Signers)),
	}
	for _, j := range sess.Signers {
		s.rho[j] = bindingValue(j, sess.MessageHash, sess.Signers, commitments)
		s.lambda[j] = lagrangeCoefficient(j, sess.Signers)
	}
	r, err := groupCommitment(sess.Signers, commitments, s.rho)
	if err != nil {
		// Commitments were already cross-checked in stage 2; a decode
		// failure here means a peer's commitment point was off-curve and
		// slipped through — fail closed with no specific blame.
		common.Logger.Errorf("frost: group commitment computation failed: %v", err)
		s.r = nil
	} else {
		s.r = r
	}
	if s.r != nil {
		s.e = crypto.Challenge(sess.Share.Y, s.r, sess.MessageHash)
	}

	myNonce := nonce
	defer myNonce.Zeroise()
	if s.r != nil {
		ourIdx := sess.OurIndex
		k := crypto.AddModN(myNonce.D, crypto.MulModN(s.rho[ourIdx], myNonce.E))
		effectiveX := crypto.MulModN(s.lambda[ourIdx], sess.Share.X)
		s.ourResponse = crypto.Respond(k, effectiveX, s.e)
	}
	return s
}

func (s *stageLocalSig) Tag() byte { return TagLocalSig3 }

func (s *stageLocalSig) Start() ([]byte, *ceremony.Error) {
	if s.ourResponse == nil {
		return nil, ceremony.NewError(errGroupCommitment, "frost-sign", 3)
	}
	w := LocalSig3{Index: uint32(s.sess.OurIndex), Response: crypto.EncodeScalar(s.ourResponse)}
	return w.Marshal(), nil
}

func (s *stageLocalSig) Update(sender int, payload []byte) *ceremony.Error {
	w, err := UnmarshalLocalSig3(payload)
	if err != nil {
		common.Logger.Warnf("frost: dropping malformed LocalSig3 from %d: %v", sender, err)
		return nil
	}
	if int(w.Index) != sender {
		common.Logger.Warnf("frost: dropping LocalSig3 from %d claiming index %d", sender, w.Index)
		return nil
	}
	s.received[sender] = w
	return nil
}

func (s *stageLocalSig) CanProceed() bool {
	return len(s.received) == len(s.sess.Signers)
}

func (s *stageLocalSig) WaitingFor() []int {
	return missingInts(s.sess.Signers, s.received)
}

func (s *stageLocalSig) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	return newStageVerifyLocalSig(s.sess, s.commitments, s.rho, s.lambda, s.r, s.e, s.received), nil, nil
}
