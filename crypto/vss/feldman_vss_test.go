// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package vss_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
	. "github.com/meridianchain/validator-engine/crypto/vss"
)

func TestCheckIndexesDup(t *testing.T) {
	indexes := make([]*big.Int, 0)
	for i := 0; i < 10; i++ {
		indexes = append(indexes, common.GetRandomPositiveInt(crypto.S256().Params().N))
	}
	_, e := CheckIndexes(crypto.S256(), indexes)
	assert.NoError(t, e)

	indexes = append(indexes, big.NewInt(999))
	indexes = append(indexes, big.NewInt(999))
	_, e = CheckIndexes(crypto.S256(), indexes)
	assert.Error(t, e)
}

func TestCheckIndexesZero(t *testing.T) {
	indexes := make([]*big.Int, 0)
	for i := 0; i < 10; i++ {
		indexes = append(indexes, common.GetRandomPositiveInt(crypto.S256().Params().N))
	}
	_, e := CheckIndexes(crypto.S256(), indexes)
	assert.NoError(t, e)

	indexes = append(indexes, crypto.S256().Params().N)
	_, e = CheckIndexes(crypto.S256(), indexes)
	assert.Error(t, e)
}

func TestCreate(t *testing.T) {
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(crypto.S256().Params().N)

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(crypto.S256().Params().N))
	}

	vs, _, err := Create(crypto.S256(), threshold, secret, ids)
	assert.Nil(t, err)

	assert.Equal(t, threshold+1, len(vs))

	for i, pg := range vs {
		assert.NotZero(t, pg.X())
		assert.NotZero(t, pg.Y())
		assert.True(t, pg.IsOnCurve())
		assert.NotZero(t, vs[i].X())
		assert.NotZero(t, vs[i].Y())
	}
}

func TestVerify(t *testing.T) {
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(crypto.S256().Params().N)

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(crypto.S256().Params().N))
	}

	vs, shares, err := Create(crypto.S256(), threshold, secret, ids)
	assert.NoError(t, err)

	for i := 0; i < num; i++ {
		assert.True(t, shares[i].Verify(crypto.S256(), threshold, vs))
	}
}

func TestReconstruct(t *testing.T) {
	num, threshold := 5, 3

	secret := common.GetRandomPositiveInt(crypto.S256().Params().N)

	ids := make([]*big.Int, 0)
	for i := 0; i < num; i++ {
		ids = append(ids, common.GetRandomPositiveInt(crypto.S256().Params().N))
	}

	_, shares, err := Create(crypto.S256(), threshold, secret, ids)
	assert.NoError(t, err)

	secret2, err2 := shares[:threshold-1].ReConstruct(crypto.S256())
	assert.Error(t, err2) // not enough shares to satisfy the threshold
	assert.Nil(t, secret2)

	secret3, err3 := shares[:threshold].ReConstruct(crypto.S256())
	assert.NoError(t, err3)
	assert.NotZero(t, secret3)

	secret4, err4 := shares[:num].ReConstruct(crypto.S256())
	assert.NoError(t, err4)
	assert.NotZero(t, secret4)
}
