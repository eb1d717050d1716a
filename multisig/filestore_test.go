// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package multisig_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/frost"
	"github.com/meridianchain/validator-engine/multisig"
)

func TestFileKeystoreRoundTrips(t *testing.T) {
	ks, err := multisig.NewFileKeystore(t.TempDir())
	require.NoError(t, err)

	x := big.NewInt(12345)
	y := crypto.ScalarBaseMult(crypto.S256(), x)
	otherX := big.NewInt(999)
	otherY := crypto.ScalarBaseMult(crypto.S256(), otherX)

	share := &frost.KeyShare{
		Index: 2,
		X:     x,
		Y:     y,
		PartyPublicKeys: map[int]*crypto.ECPoint{
			1: otherY,
			2: y,
		},
	}
	keyID := y.Compress33()

	require.NoError(t, ks.Put(keyID, share))
	got, err := ks.Get(keyID)
	require.NoError(t, err)

	assert.Equal(t, share.Index, got.Index)
	assert.Equal(t, 0, share.X.Cmp(got.X))
	assert.True(t, share.Y.Equals(got.Y))
	require.Len(t, got.PartyPublicKeys, 2)
	assert.True(t, share.PartyPublicKeys[1].Equals(got.PartyPublicKeys[1]))
}

func TestFileKeystoreGetMissingReturnsError(t *testing.T) {
	ks, err := multisig.NewFileKeystore(t.TempDir())
	require.NoError(t, err)
	_, err = ks.Get([33]byte{1, 2, 3})
	require.Error(t, err)
}
