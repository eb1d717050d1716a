// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"

	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/crypto/vss"
)

// decompressVs recovers a dealer's coefficient commitment vector from its
// wire form, for use against crypto/vss.Share.Verify.
func decompressVs(pc PolyCommit1) (vss.Vs, error) {
	out := make(vss.Vs, len(pc.Coeffs))
	for i, c := range pc.Coeffs {
		p, err := crypto.DecompressCompressed(c[:])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// evaluateCommitmentAt computes Σ_k id^k · vs[k], the public point a dealer's
// polynomial commitment vector implies for the given id, without needing the
// dealer's secret coefficients. The accumulation mirrors
// crypto/vss.Share.Verify's own loop. Used in round 5 to derive every
// committee member's public share Y_i from the summed commitment vectors,
// and in round 3 (implicitly, via vss.Share.Verify) to check one party's
// received share.
func evaluateCommitmentAt(vs vss.Vs, threshold int, id *big.Int) (*crypto.ECPoint, error) {
	ec := crypto.S256()
	modQ := common.ModInt(ec.Params().N)
	v := vs[0].SetCurve(ec)
	t := big.NewInt(1)
	for k := 1; k <= threshold; k++ {
		t = modQ.Mul(t, id)
		vkt := vs[k].SetCurve(ec).ScalarMult(t)
		var err error
		v, err = v.Add(vkt)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// sumCommitments adds the per-coefficient commitment vectors of every dealer,
// so that evaluateCommitmentAt on the sum gives the aggregate public share.
func sumCommitments(threshold int, commitments map[int]PolyCommit1) (vss.Vs, error) {
	out := make(vss.Vs, threshold+1)
	first := true
	for _, pc := range commitments {
		vs, err := decompressVs(pc)
		if err != nil {
			return nil, err
		}
		if first {
			copy(out, vs)
			first = false
			continue
		}
		for k := range out {
			var aerr error
			out[k], aerr = out[k].Add(vs[k])
			if aerr != nil {
				return nil, aerr
			}
		}
	}
	return out, nil
}
