// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"encoding/binary"
	"fmt"
)

// Envelope is the routing header every ceremony message carries on the p2p bus
// (§6): {ceremony_id, stage_tag, payload}. The sender is supplied out-of-band
// by the transport (every p2p send is already attributed to a peer identity),
// matching the narrow external-collaborator interface this engine expects from
// the p2p layer (§1).
type Envelope struct {
	CeremonyID uint64
	StageTag   byte
	Payload    []byte
}

// Marshal renders the envelope as fixed-width big-endian fields followed by the
// raw payload bytes, the deterministic codec required by §6.
func (e Envelope) Marshal() []byte {
	out := make([]byte, 9+len(e.Payload))
	binary.BigEndian.PutUint64(out[0:8], e.CeremonyID)
	out[8] = e.StageTag
	copy(out[9:], e.Payload)
	return out
}

// UnmarshalEnvelope parses the fixed header produced by Marshal.
func UnmarshalEnvelope(bz []byte) (Envelope, error) {
	if len(bz) < 9 {
		return Envelope{}, fmt.Errorf("ceremony: envelope too short (%d bytes)", len(bz))
	}
	return Envelope{
		CeremonyID: binary.BigEndian.Uint64(bz[0:8]),
		StageTag:   bz[8],
		Payload:    bz[9:],
	}, nil
}

func putUint32(buf []byte, v uint32) {
	binary.BigEndian.PutUint32(buf, v)
}

func getUint32(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf)
}
