// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/crypto"
)

// TestDeterministicSchnorrVector is §8 scenario 1: a fixed (x, k, m) triple
// must reproduce the exact sigma the settlement-chain verifier expects, and
// the resulting signature must verify via the Challenge(Y, R, m) contract.
func TestDeterministicSchnorrVector(t *testing.T) {
	x, ok := new(big.Int).SetString("fbcb47bc85b881e0dfb31c872d4e06848f80530ccbd18fc016a27c4a744d0eba", 16)
	require.True(t, ok)
	k, ok := new(big.Int).SetString("d51e13c68bf56155a83e50fd9bc840e2a1847fb9b49cd206a577ecd1cd15e285", 16)
	require.True(t, ok)
	mBig, ok := new(big.Int).SetString("2bdc19071c7994f088103dbf8d5476d6deb6d55ee005a2f510dc7640055cc84e", 16)
	require.True(t, ok)
	wantSigma, ok := new(big.Int).SetString("beb37e87509e15cd88b19fa224441c56acc0e143cb25b9fd1e57fdafed215538", 16)
	require.True(t, ok)

	var m [32]byte
	mBytes := mBig.Bytes()
	copy(m[32-len(mBytes):], mBytes)

	Y := crypto.ScalarBaseMult(crypto.S256(), x)
	R := crypto.ScalarBaseMult(crypto.S256(), k)
	e := crypto.Challenge(Y, R, m)
	sigma := crypto.Respond(k, x, e)

	assert.Zero(t, crypto.ModN(sigma).Cmp(crypto.ModN(wantSigma)), "sigma mismatch: got %x want %x", sigma, wantSigma)

	sig := crypto.NewSignature(sigma, R)
	assert.True(t, sig.Verify(Y, m))
}

func TestSchnorrVerifyRejectsWrongMessage(t *testing.T) {
	x := crypto.RandomScalar()
	k := crypto.RandomScalar()
	Y := crypto.ScalarBaseMult(crypto.S256(), x)
	R := crypto.ScalarBaseMult(crypto.S256(), k)

	var m, wrongM [32]byte
	copy(m[:], []byte("the real message hash, 32 bytes"))
	copy(wrongM[:], []byte("a different message hash, 32byt"))

	e := crypto.Challenge(Y, R, m)
	sigma := crypto.Respond(k, x, e)
	sig := crypto.NewSignature(sigma, R)

	assert.True(t, sig.Verify(Y, m))
	assert.False(t, sig.Verify(Y, wrongM))
}
