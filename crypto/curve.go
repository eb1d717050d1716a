// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"crypto/elliptic"

	s256k1 "github.com/btcsuite/btcd/btcec/v2"
)

// S256 returns the secp256k1 curve, the only curve this engine operates over: it is
// the curve expected by the settlement-chain Schnorr verifier (§4.1).
func S256() elliptic.Curve {
	return s256k1.S256()
}
