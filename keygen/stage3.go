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

// stageShare is §4.4 round 3: every dealer sends each committee member its
// individual polynomial evaluation point-to-point, never broadcast. Shares
// that fail verification against the dealer's round-1 commitments are not
// rejected outright here — they are recorded as a complaint for round 4,
// since a single party's say-so is not enough to convict a dealer.
type stageShare struct {
	sess        *Session
	myShares    map[int]*big.Int
	commitments map[int]PolyCommit1

	received   map[int]*big.Int // dealer index -> the share they sent us
	complaints []int            // dealers whose share to us failed verification
}

func newStageShare(sess *Session, myShares map[int]*big.Int, commitments map[int]PolyCommit1) *stageShare {
	return &stageShare{
		sess:        sess,
		myShares:    myShares,
		commitments: commitments,
		received:    make(map[int]*big.Int, len(sess.Committee)),
	}
}

func (s *stageShare) Tag() byte { return TagShare3 }

func (s *stageShare) StartP2P() (map[int][]byte, *ceremony.Error) {
	out := make(map[int][]byte, len(s.sess.Committee))
	for _, recipient := range s.sess.Committee {
		msg := Share3{
			DealerIndex: uint32(s.sess.OurIndex),
			Value:       crypto.EncodeScalar(s.myShares[recipient]),
		}
		out[recipient] = msg.Marshal()
	}
	return out, nil
}

func (s *stageShare) Update(sender int, payload []byte) *ceremony.Error {
	msg, err := UnmarshalShare3(payload)
	if err != nil || int(msg.DealerIndex) != sender {
		common.Logger.Warnf("keygen: dropping malformed Share3 from %d: %v", sender, err)
		return nil
	}
	value := crypto.DecodeScalar(msg.Value[:])
	s.received[sender] = value

	vs, err := decompressVs(s.commitments[sender])
	if err != nil {
		s.complaints = append(s.complaints, sender)
		return nil
	}
	share := &vss.Share{Threshold: s.sess.Threshold, ID: big.NewInt(int64(s.sess.OurIndex)), Share: value}
	if !share.Verify(crypto.S256(), s.sess.Threshold, vs) {
		s.complaints = append(s.complaints, sender)
	}
	return nil
}

func (s *stageShare) CanProceed() bool {
	return len(s.received) == len(s.sess.Committee)
}

func (s *stageShare) WaitingFor() []int {
	return missingInts(s.sess.Committee, s.received)
}

func (s *stageShare) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
	x := big.NewInt(0)
	modQ := common.ModInt(crypto.S256().Params().N)
	for dealer, value := range s.received {
		complained := false
		for _, c := range s.complaints {
			if c == dealer {
				complained = true
				break
			}
		}
		if complained {
			continue
		}
		x = modQ.Add(x, value)
	}
	return newStageComplaint(s.sess, x, s.commitments, s.complaints), nil, nil
}
