// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost

import (
	"crypto/sha256"
	"math/big"

	"github.com/meridianchain/validator-engine/crypto"
)

// bindingValue computes rho_i = H("I" || i || m || concat_j(j || D_j || E_j))
// for j ranging over signers in ascending order (§4.3 stage 3). The ordering
// is part of the bit-exact contract: any implementation that iterates in
// insertion order instead of ascending index order produces a different
// rho and therefore a signature the settlement-chain verifier rejects.
func bindingValue(partyIndex int, m [32]byte, signers []int, commitments map[int]Comm1) *big.Int {
	buf := []byte("I")
	buf = append(buf, uint32Bytes(uint32(partyIndex))...)
	buf = append(buf, m[:]...)
	for _, j := range signers {
		c := commitments[j]
		buf = append(buf, uint32Bytes(c.Index)...)
		buf = append(buf, c.D[:]...)
		buf = append(buf, c.E[:]...)
	}
	h := sha256.Sum256(buf)
	e := new(big.Int).SetBytes(h[:])
	return crypto.ModN(e)
}

// lagrangeCoefficient computes lambda_i, the interpolation weight converting
// party i's share into its contribution to the group signature over the
// given signer set, evaluated at x=0 (§4.3, GLOSSARY).
//
// A zero denominator (two signers sharing the same index) is a caller bug:
// NewSession already rejects duplicate indices, so this is never reached
// with a nil ModInverse in practice; the nil check below exists only as a
// defensive backstop against that invariant being violated upstream.
func lagrangeCoefficient(i int, signers []int) *big.Int {
	n := crypto.S256().Params().N
	num := big.NewInt(1)
	den := big.NewInt(1)
	for _, j := range signers {
		if j == i {
			continue
		}
		num.Mul(num, big.NewInt(int64(-j)))
		num.Mod(num, n)
		den.Mul(den, big.NewInt(int64(i-j)))
		den.Mod(den, n)
	}
	denInv := new(big.Int).ModInverse(den, n)
	if denInv == nil {
		return big.NewInt(0)
	}
	lambda := new(big.Int).Mul(num, denInv)
	return lambda.Mod(lambda, n)
}

// groupCommitment computes R = sum_j (D_j + rho_j * E_j) over the signer set.
func groupCommitment(signers []int, commitments map[int]Comm1, rho map[int]*big.Int) (*crypto.ECPoint, error) {
	var r *crypto.ECPoint
	for _, j := range signers {
		c := commitments[j]
		d, err := crypto.DecompressCompressed(c.D[:])
		if err != nil {
			return nil, err
		}
		e, err := crypto.DecompressCompressed(c.E[:])
		if err != nil {
			return nil, err
		}
		term, err := d.Add(e.ScalarMult(rho[j]))
		if err != nil {
			return nil, err
		}
		if r == nil {
			r = term
		} else {
			r, err = r.Add(term)
			if err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}
