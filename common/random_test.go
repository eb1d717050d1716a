// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package common_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/validator-engine/common"
)

const randomIntBitLen = 1024

func TestGetRandomInt(t *testing.T) {
	rnd := common.MustGetRandomInt(randomIntBitLen)
	assert.NotZero(t, rnd, "rand int should not be zero")
}

func TestGetRandomPositiveInt(t *testing.T) {
	rnd := common.MustGetRandomInt(randomIntBitLen)
	rndPos := common.GetRandomPositiveInt(rnd)
	assert.NotZero(t, rndPos, "rand int should not be zero")
	assert.True(t, rndPos.Cmp(big.NewInt(0)) >= 0, "rand int should be non-negative")
}

func TestGetRandomPositiveScalar(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 256)
	for i := 0; i < 32; i++ {
		s := common.GetRandomPositiveScalar(n)
		assert.NotZero(t, s, "scalar should never be zero")
		assert.True(t, s.Cmp(n) < 0, "scalar should be reduced mod n")
	}
}
