// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/go-multierror"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
)

// stageVerifyLocalSig is §4.3 stage 4: re-broadcast stage-3 responses,
// cross-check the re-broadcasts, then verify each signer's share
// individually and aggregate into the final signature.
type stageVerifyLocalSig struct {
	sess        *Session
	commitments map[int]Comm1
	rho         map[int]*big.Int
	lambda      map[int]*big.Int
	r           *crypto.ECPoint
	e           *big.Int
	mine        map[int]LocalSig3

	reports map[int]map[int][]byte
}

func newStageVerifyLocalSig(sess *Session, commitments map[int]Comm1, rho, lambda map[int]*big.Int, r *crypto.ECPoint, e *big.Int, mine map[int]LocalSig3) *stageVerifyLocalSig {
	return &stageVerifyLocalSig{
		sess:        sess,
		commitments: commitments,
		rho:         rho,
		lambda:      lambda,
		r:           r,
		e:           e,
		mine:        mine,
		reports:     make(map[int]map[int][]byte, len(sess.Signers)),
	}
}

func (s *stageVerifyLocalSig) Tag() byte { return TagVerifyLocalSig4 }

func (s *stageVerifyLocalSig) Start() ([]byte, *ceremony.Error) {
	data := make([]LocalSig3, 0, len(s.sess.Signers))
	for _, idx := range s.sess.Signers {
		data = append(data, s.mine[idx])
	}
	return VerifyLocalSig4{Data: data}.Marshal(), nil
}

func (s *stageVerifyLocalSig) Update(sender int, payload []byte) *ceremony.Error {
	v, err := UnmarshalVerifyLocalSig4(payload)
	if err != nil {
		common.Logger.Warnf("frost: dropping malformed VerifyLocalSig4 from %d: %v", sender, err)
		return nil
	}
	view := make(map[int][]byte, len(v.Data))
	for _, l := range v.Data {
		view[int(l.Index)] = l.Marshal()
	}
	s.reports[sender] = view
	return nil
}

func (s *stageVerifyLocalSig) CanProceed() bool {
	return len(s.reports) == len(s.sess.Signers)
}

func (s *stageVerifyLocalSig) WaitingFor() []int {
	return missingInts(s.sess.Signers, s.reports)
}

func (s *stageVerifyLocalSig) Finalize() (ceremony.Stage, *ceremony.Outcome, *ceremony.Error) {
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

	canonical := make(map[int]LocalSig3, len(agreed))
	for idx, bz := range agreed {
		l, err := UnmarshalLocalSig3(bz)
		if err != nil {
			return nil, ceremony.FailureOutcome(nil), nil
		}
		canonical[idx] = l
	}

	var blamed []int
	var verifyErr error
	sigma := big.NewInt(0)
	for _, idx := range s.sess.Signers {
		l := canonical[idx]
		z := crypto.DecodeScalar(l.Response[:])
		if err := s.verifyShare(idx, z); err != nil {
			blamed = append(blamed, idx)
			verifyErr = multierror.Append(verifyErr, fmt.Errorf("signer %d: %w", idx, err))
			continue
		}
		sigma = crypto.AddModN(sigma, z)
	}
	if len(blamed) > 0 {
		common.Logger.Warnf("frost: stage 4 local signature verification failed: %v", verifyErr)
		return nil, ceremony.FailureOutcome(blamed), nil
	}

	sig := crypto.NewSignature(sigma, s.r)
	return nil, ceremony.SuccessOutcome(sig), nil
}

// verifyShare checks z_i·G == (D_i + rho_i·E_i) - lambda_i·Y_i·e (§4.3 stage 4).
func (s *stageVerifyLocalSig) verifyShare(idx int, z *big.Int) error {
	c := s.commitments[idx]
	d, err := crypto.DecompressCompressed(c.D[:])
	if err != nil {
		return fmt.Errorf("decompress D: %w", err)
	}
	e, err := crypto.DecompressCompressed(c.E[:])
	if err != nil {
		return fmt.Errorf("decompress E: %w", err)
	}
	lhs := crypto.ScalarBaseMult(crypto.S256(), z)

	rhsPoint, err := d.Add(e.ScalarMult(s.rho[idx]))
	if err != nil {
		return fmt.Errorf("D + rho*E: %w", err)
	}
	yi, ok := s.sess.Share.PartyPublicKeys[idx]
	if !ok {
		return fmt.Errorf("no public share recorded for party %d", idx)
	}
	lambdaYiE := yi.ScalarMult(crypto.MulModN(s.lambda[idx], s.e))
	rhsPoint, err = rhsPoint.Sub(lambdaYiE)
	if err != nil {
		return fmt.Errorf("subtract lambda*Y*e: %w", err)
	}
	if !lhs.Equals(rhsPoint) {
		return fmt.Errorf("z*G does not match expected point")
	}
	return nil
}
