// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// EthAddress returns the last 20 bytes of keccak256(uncompressed X||Y), the
// Ethereum-style address derivation the settlement-chain verifier uses to
// identify a group commitment point (§4.1).
func EthAddress(p *ECPoint) [20]byte {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(p.Uncompressed())
	sum := digest.Sum(nil)
	var addr [20]byte
	copy(addr[:], sum[len(sum)-20:])
	return addr
}

// Challenge computes the bit-exact settlement-chain Schnorr challenge:
//
//	e = H(Y_x || parity(Y) || m || eth_addr(R))  (mod n)
//
// where Y is the aggregate public key, R the group commitment, and m the
// 32-byte message hash. The on-chain verifier recomputes this exact byte
// layout, so argument order and encoding widths must never change (§4.1,
// §9 Open Questions - this ordering is the one authoritative choice, chosen
// to match the bit-exact vector in §8).
func Challenge(Y, R *ECPoint, m [32]byte) *big.Int {
	addr := EthAddress(R)

	buf := make([]byte, 0, 32+1+32+20)
	buf = append(buf, padTo32(Y.X().Bytes())...)
	buf = append(buf, Y.YParity())
	buf = append(buf, m[:]...)
	buf = append(buf, addr[:]...)

	digest := sha3.NewLegacyKeccak256()
	digest.Write(buf)
	eHash := new(big.Int).SetBytes(digest.Sum(nil))
	return ModN(eHash)
}
