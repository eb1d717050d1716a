// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"fmt"
	"math/big"
)

// Signature is the wire form of a settlement-chain Schnorr signature: a 32-byte
// scalar response and a 33-byte compressed group commitment (§4.1).
type Signature struct {
	S ScalarBytes
	R [33]byte
}

// NewSignature packages a response scalar and group commitment point into wire form.
func NewSignature(s *big.Int, R *ECPoint) *Signature {
	sig := &Signature{S: EncodeScalar(s)}
	copy(sig.R[:], R.Compress())
	return sig
}

// Respond computes sigma = k - x*e (mod n), the single-signer Schnorr response
// used both in the deterministic test vector (§8, scenario 1) and, generalized
// with a share's Lagrange-weighted key and a binding-adjusted nonce, inside the
// FROST local-signature stage (§4.3 stage 3).
func Respond(k, x, e *big.Int) *big.Int {
	xe := MulModN(x, e)
	return SubModN(k, xe)
}

// Verify checks sigma*G == R - e*Y, reconstructing e via Challenge(Y, R, m).
func (sig *Signature) Verify(Y *ECPoint, m [32]byte) bool {
	R, err := DecompressCompressed(sig.R[:])
	if err != nil {
		return false
	}
	s := DecodeScalar(sig.S[:])
	e := Challenge(Y, R, m)

	sG := ScalarBaseMult(S256(), s)
	eY := Y.ScalarMult(e)
	rMinusEY, err := R.Sub(eY)
	if err != nil {
		return false
	}
	return sG.Equals(rMinusEY)
}

// DecompressCompressed parses a 33-byte SEC1 compressed point (as produced by
// ECPoint.Compress) back into an ECPoint on the secp256k1 curve.
func DecompressCompressed(bz []byte) (*ECPoint, error) {
	if len(bz) != 33 {
		return nil, fmt.Errorf("expected a 33-byte compressed point, got %d bytes", len(bz))
	}
	x := new(big.Int).SetBytes(bz[1:])
	return DecompressPoint(S256(), x, bz[0])
}
