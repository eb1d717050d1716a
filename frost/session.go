// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost

import (
	"fmt"
	"math/big"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/crypto"
)

// KeyShare is a party's share of a DKG output (§3 "KeyShare"): its secret
// scalar x_i and the aggregate public key y. PartyPublicKeys carries every
// committee member's public share Y_i = x_i·G, needed by stage 4 to verify
// each signer's local response independently.
type KeyShare struct {
	Index           int
	X               *big.Int
	Y               *crypto.ECPoint
	PartyPublicKeys map[int]*crypto.ECPoint
}

// Zeroise wipes the secret scalar. Call once the share is no longer needed
// (process shutdown, or key rotation) — never on every signing ceremony,
// since a KeyShare is reused across many ceremonies (§5 "shared resources").
func (k *KeyShare) Zeroise() {
	if k == nil || k.X == nil {
		return
	}
	k.X.SetInt64(0)
}

// Session is the fixed input to one signing ceremony (§4.3): the message to
// sign, the party's key share, and the ordered signer set. It is built once
// and threaded, read-only, through every stage.
type Session struct {
	CeremonyID  uint64
	MessageHash [32]byte
	Share       *KeyShare
	Signers     []int // ascending, size >= t+1
	OurIndex    int
}

// NewSession validates the signer set before any stage runs (§4.3 "Edge
// cases": duplicate signer indices must fail before stage 3 begins; the
// signer set must include this party or fail immediately).
func NewSession(ceremonyID uint64, messageHash [32]byte, share *KeyShare, signers []int, ourIndex int) (*Session, error) {
	seen := make(map[int]struct{}, len(signers))
	for _, idx := range signers {
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("frost: duplicate signer index %d", idx)
		}
		seen[idx] = struct{}{}
	}
	sorted := append([]int(nil), signers...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	if _, ok := seen[ourIndex]; !ok {
		return nil, fmt.Errorf("frost: our index %d is not a member of the signer set", ourIndex)
	}
	return &Session{
		CeremonyID:  ceremonyID,
		MessageHash: messageHash,
		Share:       share,
		Signers:     sorted,
		OurIndex:    ourIndex,
	}, nil
}

// FirstStage builds stage 1 (Commit) for the given session, the entry point
// a multisig client hands to a new ceremony.Runner via Authorise.
func FirstStage(sess *Session) ceremony.Stage {
	return newStageCommit(sess)
}

// missingInts returns the members of all not present as keys of have.
func missingInts[T any](all []int, have map[int]T) []int {
	out := make([]int, 0, len(all))
	for _, idx := range all {
		if _, ok := have[idx]; !ok {
			out = append(out, idx)
		}
	}
	return out
}
