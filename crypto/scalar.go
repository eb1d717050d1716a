// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"math/big"

	"github.com/meridianchain/validator-engine/common"
)

// ScalarBytes is the canonical 32-byte big-endian encoding of a scalar mod the
// curve order, used for both the wire format (§6) and hashing (§4.1, §4.3).
type ScalarBytes = [32]byte

// EncodeScalar renders s (already reduced mod n) as a canonical 32-byte big-endian value.
func EncodeScalar(s *big.Int) ScalarBytes {
	var out ScalarBytes
	bz := new(big.Int).Mod(s, S256().Params().N).Bytes()
	copy(out[32-len(bz):], bz)
	return out
}

// DecodeScalar parses a canonical 32-byte big-endian scalar.
func DecodeScalar(bz []byte) *big.Int {
	return new(big.Int).SetBytes(bz)
}

// RandomScalar samples a uniform non-zero value in [1, n), used for nonce scalars
// and DKG polynomial coefficients (§4.1, §4.4).
func RandomScalar() *big.Int {
	return common.GetRandomPositiveScalar(S256().Params().N)
}

// ModN reduces x modulo the curve order.
func ModN(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, S256().Params().N)
}

// AddModN returns (a+b) mod n.
func AddModN(a, b *big.Int) *big.Int {
	return common.ModInt(S256().Params().N).Add(a, b)
}

// SubModN returns (a-b) mod n.
func SubModN(a, b *big.Int) *big.Int {
	return common.ModInt(S256().Params().N).Sub(a, b)
}

// MulModN returns (a*b) mod n.
func MulModN(a, b *big.Int) *big.Int {
	return common.ModInt(S256().Params().N).Mul(a, b)
}

// InvModN returns the modular inverse of a mod n, or nil if a is 0 mod n.
func InvModN(a *big.Int) *big.Int {
	aModN := ModN(a)
	if aModN.Sign() == 0 {
		return nil
	}
	return common.ModInt(S256().Params().N).ModInverse(aModN)
}
