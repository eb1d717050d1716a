// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import "math/big"

// SecretNoncePair is a single-use (d, e) scalar pair sampled at the start of a
// signing ceremony (§4.1, §4.3 stage 1). D and E are the broadcast commitments
// d*G and e*G; d and e themselves must never leave the process and must be
// destroyed immediately after the local response (stage 3) is computed (§5
// "Cancellation", §8 "No secret nonce is ever observable after the local-signature
// broadcast").
type SecretNoncePair struct {
	D, E   *big.Int
	BigD   *ECPoint
	BigE   *ECPoint
	zeroed bool
}

// NewSecretNoncePair samples a fresh, uniformly random nonce pair.
func NewSecretNoncePair() *SecretNoncePair {
	d, e := RandomScalar(), RandomScalar()
	return &SecretNoncePair{
		D:    d,
		E:    e,
		BigD: ScalarBaseMult(S256(), d),
		BigE: ScalarBaseMult(S256(), e),
	}
}

// Zeroise overwrites the secret scalars in place. Idempotent. Call this exactly
// once, immediately after the stage-3 local response has been computed and sent.
func (np *SecretNoncePair) Zeroise() {
	if np == nil || np.zeroed {
		return
	}
	zeroBigInt(np.D)
	zeroBigInt(np.E)
	np.D, np.E = nil, nil
	np.zeroed = true
}

// IsZeroised reports whether Zeroise has already run.
func (np *SecretNoncePair) IsZeroised() bool {
	return np == nil || np.zeroed
}

func zeroBigInt(x *big.Int) {
	if x == nil {
		return
	}
	x.SetInt64(0)
}
