// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package keygen implements the distributed key generation ceremony (§4.4):
// every committee member acts as its own Feldman VSS dealer, contributes a
// share to a jointly-held secret, and the ceremony only reports success once
// the fresh key has proven it can actually sign (the "handover proof").
package keygen

import (
	"encoding/binary"
	"fmt"
)

// Stage tags on the p2p bus (§6). Kept disjoint from frost's TagComm1..
// TagVerifyLocalSig4 (1-4) because round 6 hands the same ceremony.Runner off
// to an embedded frost signing ceremony that reuses those same tag bytes; a
// shared tag namespace would let a late round-3 retransmit from a slow peer
// be misrouted into the handover's round 3 (or vice versa).
const (
	TagPolyCommit1       byte = 11
	TagVerifyPolyCommit2 byte = 12
	TagShare3            byte = 13
	TagComplaint4        byte = 14
	TagAgreePubKey5      byte = 15
)

// PolyCommit1 is the stage-1 broadcast: a dealer's commitments to its
// degree-t polynomial's coefficients, A_0..A_t (A_0 is the dealer's
// contribution to the aggregate public key).
type PolyCommit1 struct {
	Index  uint32
	Coeffs [][33]byte
}

func (p PolyCommit1) Marshal() []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint32(out[0:4], p.Index)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(p.Coeffs)))
	for _, c := range p.Coeffs {
		out = append(out, c[:]...)
	}
	return out
}

func UnmarshalPolyCommit1(bz []byte) (PolyCommit1, error) {
	if len(bz) < 8 {
		return PolyCommit1{}, fmt.Errorf("keygen: PolyCommit1 too short")
	}
	var p PolyCommit1
	p.Index = binary.BigEndian.Uint32(bz[0:4])
	count := binary.BigEndian.Uint32(bz[4:8])
	bz = bz[8:]
	p.Coeffs = make([][33]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(bz) < 33 {
			return PolyCommit1{}, fmt.Errorf("keygen: PolyCommit1 truncated")
		}
		var c [33]byte
		copy(c[:], bz[:33])
		p.Coeffs = append(p.Coeffs, c)
		bz = bz[33:]
	}
	return p, nil
}

// VerifyPolyCommit2 carries one reporter's claimed view of every dealer's
// PolyCommit1, ordered ascending by index (§4.4 round 2).
type VerifyPolyCommit2 struct {
	Data []PolyCommit1
}

func (v VerifyPolyCommit2) Marshal() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(v.Data)))
	for _, p := range v.Data {
		marshaled := p.Marshal()
		out = append(out, uint32Bytes(uint32(len(marshaled)))...)
		out = append(out, marshaled...)
	}
	return out
}

func UnmarshalVerifyPolyCommit2(bz []byte) (VerifyPolyCommit2, error) {
	if len(bz) < 4 {
		return VerifyPolyCommit2{}, fmt.Errorf("keygen: VerifyPolyCommit2 too short")
	}
	count := binary.BigEndian.Uint32(bz[0:4])
	bz = bz[4:]
	out := make([]PolyCommit1, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(bz) < 4 {
			return VerifyPolyCommit2{}, fmt.Errorf("keygen: VerifyPolyCommit2 truncated")
		}
		n := binary.BigEndian.Uint32(bz[0:4])
		bz = bz[4:]
		if uint32(len(bz)) < n {
			return VerifyPolyCommit2{}, fmt.Errorf("keygen: VerifyPolyCommit2 truncated")
		}
		p, err := UnmarshalPolyCommit1(bz[:n])
		if err != nil {
			return VerifyPolyCommit2{}, err
		}
		out = append(out, p)
		bz = bz[n:]
	}
	return VerifyPolyCommit2{Data: out}, nil
}

// Share3 is the stage-3 point-to-point payload: the dealer's evaluation of
// its polynomial at the recipient's index, f_i(j). Never broadcast (§4.4
// round 3): a party receiving everyone else's evaluations would be able to
// reconstruct their secret contributions.
type Share3 struct {
	DealerIndex uint32
	Value       [32]byte
}

func (s Share3) Marshal() []byte {
	out := make([]byte, 4+32)
	binary.BigEndian.PutUint32(out[0:4], s.DealerIndex)
	copy(out[4:36], s.Value[:])
	return out
}

func UnmarshalShare3(bz []byte) (Share3, error) {
	if len(bz) != 36 {
		return Share3{}, fmt.Errorf("keygen: bad Share3 length %d", len(bz))
	}
	var s Share3
	s.DealerIndex = binary.BigEndian.Uint32(bz[0:4])
	copy(s.Value[:], bz[4:36])
	return s, nil
}

// Complaint4 is the stage-4 broadcast: the set of dealer indices whose
// shares failed this party's VSS verification (§4.4 round 4).
type Complaint4 struct {
	Accused []uint32
}

func (c Complaint4) Marshal() []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(c.Accused)))
	for _, idx := range c.Accused {
		out = append(out, uint32Bytes(idx)...)
	}
	return out
}

func UnmarshalComplaint4(bz []byte) (Complaint4, error) {
	if len(bz) < 4 {
		return Complaint4{}, fmt.Errorf("keygen: Complaint4 too short")
	}
	count := binary.BigEndian.Uint32(bz[0:4])
	bz = bz[4:]
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(bz) < 4 {
			return Complaint4{}, fmt.Errorf("keygen: Complaint4 truncated")
		}
		out = append(out, binary.BigEndian.Uint32(bz[0:4]))
		bz = bz[4:]
	}
	return Complaint4{Accused: out}, nil
}

// AgreePubKey5 is the stage-5 broadcast: this party's computed view of the
// aggregate public key Y, for the final cross-check (§4.4 round 5).
type AgreePubKey5 struct {
	Y [33]byte
}

func (a AgreePubKey5) Marshal() []byte {
	out := make([]byte, 33)
	copy(out, a.Y[:])
	return out
}

func UnmarshalAgreePubKey5(bz []byte) (AgreePubKey5, error) {
	if len(bz) != 33 {
		return AgreePubKey5{}, fmt.Errorf("keygen: bad AgreePubKey5 length %d", len(bz))
	}
	var a AgreePubKey5
	copy(a.Y[:], bz)
	return a, nil
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
