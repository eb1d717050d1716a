// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package frost implements the four-stage FROST-style threshold Schnorr
// signing protocol (§4.3): Commit, VerifyCommit, LocalSig, VerifyLocalSig.
package frost

import (
	"encoding/binary"
	"fmt"
)

// Stage tags on the p2p bus (§6).
const (
	TagComm1           byte = 1
	TagVerifyComm2     byte = 2
	TagLocalSig3       byte = 3
	TagVerifyLocalSig4 byte = 4
)

// Comm1 is the stage-1 broadcast payload: a signer's nonce-pair commitments.
type Comm1 struct {
	Index uint32
	D     [33]byte
	E     [33]byte
}

func (c Comm1) Marshal() []byte {
	out := make([]byte, 4+33+33)
	binary.BigEndian.PutUint32(out[0:4], c.Index)
	copy(out[4:37], c.D[:])
	copy(out[37:70], c.E[:])
	return out
}

func UnmarshalComm1(bz []byte) (Comm1, error) {
	if len(bz) != 70 {
		return Comm1{}, fmt.Errorf("frost: bad Comm1 length %d", len(bz))
	}
	var c Comm1
	c.Index = binary.BigEndian.Uint32(bz[0:4])
	copy(c.D[:], bz[4:37])
	copy(c.E[:], bz[37:70])
	return c, nil
}

// VerifyComm2 carries one reporter's claimed view of every signer's Comm1,
// ordered ascending by index (§4.3 stage 2).
type VerifyComm2 struct {
	Data []Comm1
}

func (v VerifyComm2) Marshal() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(v.Data)))
	for _, c := range v.Data {
		out = append(out, c.Marshal()...)
	}
	return out
}

func UnmarshalVerifyComm2(bz []byte) (VerifyComm2, error) {
	if len(bz) < 4 {
		return VerifyComm2{}, fmt.Errorf("frost: VerifyComm2 too short")
	}
	count := binary.BigEndian.Uint32(bz[0:4])
	bz = bz[4:]
	out := make([]Comm1, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(bz) < 70 {
			return VerifyComm2{}, fmt.Errorf("frost: VerifyComm2 truncated")
		}
		c, err := UnmarshalComm1(bz[:70])
		if err != nil {
			return VerifyComm2{}, err
		}
		out = append(out, c)
		bz = bz[70:]
	}
	return VerifyComm2{Data: out}, nil
}

// LocalSig3 is the stage-3 broadcast payload: a signer's local response scalar.
type LocalSig3 struct {
	Index    uint32
	Response [32]byte
}

func (l LocalSig3) Marshal() []byte {
	out := make([]byte, 4+32)
	binary.BigEndian.PutUint32(out[0:4], l.Index)
	copy(out[4:36], l.Response[:])
	return out
}

func UnmarshalLocalSig3(bz []byte) (LocalSig3, error) {
	if len(bz) != 36 {
		return LocalSig3{}, fmt.Errorf("frost: bad LocalSig3 length %d", len(bz))
	}
	var l LocalSig3
	l.Index = binary.BigEndian.Uint32(bz[0:4])
	copy(l.Response[:], bz[4:36])
	return l, nil
}

// VerifyLocalSig4 carries one reporter's claimed view of every signer's
// LocalSig3 (§4.3 stage 4).
type VerifyLocalSig4 struct {
	Data []LocalSig3
}

func (v VerifyLocalSig4) Marshal() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(v.Data)))
	for _, l := range v.Data {
		out = append(out, l.Marshal()...)
	}
	return out
}

func UnmarshalVerifyLocalSig4(bz []byte) (VerifyLocalSig4, error) {
	if len(bz) < 4 {
		return VerifyLocalSig4{}, fmt.Errorf("frost: VerifyLocalSig4 too short")
	}
	count := binary.BigEndian.Uint32(bz[0:4])
	bz = bz[4:]
	out := make([]LocalSig3, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(bz) < 36 {
			return VerifyLocalSig4{}, fmt.Errorf("frost: VerifyLocalSig4 truncated")
		}
		l, err := UnmarshalLocalSig3(bz[:36])
		if err != nil {
			return VerifyLocalSig4{}, err
		}
		out = append(out, l)
		bz = bz[36:]
	}
	return VerifyLocalSig4{Data: out}, nil
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
