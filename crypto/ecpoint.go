// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package crypto

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ECPoint represents a point on the secp256k1 curve in affine form. Arithmetic
// operations return a new value rather than mutating in place; SetCurve is the
// one method that modifies its receiver.
type ECPoint struct {
	curve  elliptic.Curve
	coords [2]*big.Int
	// get/set with atomic; avoids a data race in ValidateBasic
	onCurveKnown uint32
}

// NewECPoint checks that the given coordinates are on the curve before returning a point.
func NewECPoint(curve elliptic.Curve, X, Y *big.Int) (*ECPoint, error) {
	if !isOnCurve(curve, X, Y) {
		return nil, fmt.Errorf("NewECPoint: the given point is not on the elliptic curve")
	}
	return &ECPoint{curve, [2]*big.Int{X, Y}, 1}, nil
}

// NewECPointNoCurveCheck skips the on-curve check. Only use this when the coordinates
// are already known-good, e.g. the result of a curve-native scalar multiplication.
func NewECPointNoCurveCheck(curve elliptic.Curve, X, Y *big.Int) *ECPoint {
	return &ECPoint{curve, [2]*big.Int{X, Y}, 0}
}

func (p *ECPoint) X() *big.Int {
	return new(big.Int).Set(p.coords[0])
}

func (p *ECPoint) Y() *big.Int {
	return new(big.Int).Set(p.coords[1])
}

func (p *ECPoint) Add(b *ECPoint) (*ECPoint, error) {
	x, y := p.curve.Add(p.X(), p.Y(), b.X(), b.Y())
	return NewECPoint(p.curve, x, y)
}

func (p *ECPoint) Sub(b *ECPoint) (*ECPoint, error) {
	return p.Add(b.Neg())
}

func (p *ECPoint) Neg() *ECPoint {
	order := p.curve.Params().P
	negY := new(big.Int).Neg(p.Y())
	negY.Mod(negY, order)
	return NewECPointNoCurveCheck(p.curve, p.X(), negY)
}

func (p *ECPoint) ScalarMultBytes(k []byte) *ECPoint {
	x, y := p.curve.ScalarMult(p.X(), p.Y(), k)
	newP, _ := NewECPoint(p.curve, x, y) // must be on the curve, no need to check
	return newP
}

func (p *ECPoint) ScalarMult(k *big.Int) *ECPoint {
	kMod := new(big.Int).Mod(k, p.curve.Params().N)
	return p.ScalarMultBytes(kMod.Bytes())
}

func (p *ECPoint) IsOnCurve() bool {
	return isOnCurve(p.curve, p.coords[0], p.coords[1])
}

func (p *ECPoint) Equals(b *ECPoint) bool {
	if p == nil || b == nil {
		return false
	}
	return p.X().Cmp(b.X()) == 0 && p.Y().Cmp(b.Y()) == 0
}

func (p *ECPoint) SetCurve(curve elliptic.Curve) *ECPoint {
	p.curve = curve
	return p
}

func (p *ECPoint) ValidateBasic() bool {
	onCurveKnown := atomic.LoadUint32(&p.onCurveKnown) == 1
	res := p != nil && p.coords[0] != nil && p.coords[1] != nil && (onCurveKnown || p.IsOnCurve())
	if res && !onCurveKnown {
		atomic.StoreUint32(&p.onCurveKnown, 1)
	}
	return res
}

// Compress returns the 33-byte SEC1 compressed encoding: a parity-prefix byte
// (0x02 even Y, 0x03 odd Y) followed by the 32-byte big-endian X coordinate.
// This is the KeyId format (§3) and the point encoding used on the wire (§6).
func (p *ECPoint) Compress() []byte {
	pub := btcec.PublicKey{}
	var x, y btcec.FieldVal
	x.SetByteSlice(p.X().Bytes())
	y.SetByteSlice(p.Y().Bytes())
	pub = *btcec.NewPublicKey(&x, &y)
	return pub.SerializeCompressed()
}

// Compress33 is Compress with the result copied into a fixed-size array, the
// shape every wire struct in ceremony/frost/keygen stores a point as.
func (p *ECPoint) Compress33() [33]byte {
	var out [33]byte
	copy(out[:], p.Compress())
	return out
}

// Uncompressed returns the 64-byte concatenation of X || Y, used as the input to
// keccak256 when deriving the settlement-chain address of a point (§4.1).
func (p *ECPoint) Uncompressed() []byte {
	byteSize := 32
	bzX, bzY := p.X().Bytes(), p.Y().Bytes()
	tmpX := make([]byte, byteSize-len(bzX), byteSize)
	tmpY := make([]byte, byteSize-len(bzY), byteSize)
	tmpX = append(tmpX, bzX...)
	tmpY = append(tmpY, bzY...)
	return append(tmpX, tmpY...)
}

// YParity returns 0 for an even Y coordinate, 1 for odd - the "parity(Y)" term
// used directly in the settlement-chain challenge hash (§4.1).
func (p *ECPoint) YParity() byte {
	return byte(p.Y().Bit(0))
}

func isOnCurve(c elliptic.Curve, x, y *big.Int) bool {
	if x == nil || y == nil {
		return false
	}
	return c.IsOnCurve(x, y)
}

func ScalarBaseMult(curve elliptic.Curve, k *big.Int) *ECPoint {
	kMod := new(big.Int).Mod(k, curve.Params().N)
	x, y := curve.ScalarBaseMult(kMod.Bytes())
	p, _ := NewECPoint(curve, x, y) // must be on the curve, no need to check
	return p
}

// DecompressPoint recovers the Y coordinate of a secp256k1 point from its X
// coordinate and a sign byte (0x02 or 0x03), matching the SEC1 compressed form.
func DecompressPoint(curve elliptic.Curve, x *big.Int, sign byte) (*ECPoint, error) {
	if curve == nil || x == nil {
		return nil, errors.New("DecompressPoint() received one or more nil args")
	}
	pub, err := btcec.ParsePubKey(append([]byte{sign}, padTo32(x.Bytes())...))
	if err != nil {
		return nil, fmt.Errorf("DecompressPoint: %w", err)
	}
	return NewECPoint(curve, pub.X(), pub.Y())
}

func padTo32(bz []byte) []byte {
	if len(bz) >= 32 {
		return bz
	}
	padded := make([]byte, 32-len(bz), 32)
	return append(padded, bz...)
}

// FlattenECPoints flattens a slice of points into a slice of their coordinates,
// for passing points through an interface that only knows *big.Int. Nothing in
// this module calls it; the binding-value and challenge hashes encode points
// through their own byte encodings.
func FlattenECPoints(in []*ECPoint) ([]*big.Int, error) {
	if in == nil {
		return nil, errors.New("FlattenECPoints encountered a nil in slice")
	}
	flat := make([]*big.Int, 0, len(in)*2)
	for _, point := range in {
		if point == nil || point.coords[0] == nil || point.coords[1] == nil {
			return nil, errors.New("FlattenECPoints found nil point/coordinate")
		}
		flat = append(flat, point.coords[0])
		flat = append(flat, point.coords[1])
	}
	return flat, nil
}
