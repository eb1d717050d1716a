// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"crypto/sha256"
	"fmt"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/frost"
)

// HandoverDomainTag domain-separates the handover-proof payload from any
// real signing request this committee will later be asked to service
// (Open Question, resolved in SPEC_FULL.md §9).
const HandoverDomainTag = "validator-engine/handover/v1"

// Session is the fixed input to one keygen ceremony (§4.4): the full
// committee (keygen runs over all N members, not a t+1 subset), the VSS
// threshold, and this party's own index.
type Session struct {
	CeremonyID uint64
	Threshold  int    // polynomial degree t; any t+1 shares reconstruct the secret
	Committee  []int  // ascending, size N
	OurIndex   int
}

// NewSession validates the committee before any round runs, mirroring
// frost.NewSession's up-front checks (§4.4 edge cases follow the same shape
// as §4.3's: duplicate indices or a missing self-index must fail immediately).
func NewSession(ceremonyID uint64, threshold int, committee []int, ourIndex int) (*Session, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("keygen: threshold must be >= 1")
	}
	seen := make(map[int]struct{}, len(committee))
	for _, idx := range committee {
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("keygen: duplicate committee index %d", idx)
		}
		seen[idx] = struct{}{}
	}
	if len(committee) <= threshold {
		return nil, fmt.Errorf("keygen: committee of size %d cannot support threshold %d", len(committee), threshold)
	}
	sorted := append([]int(nil), committee...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	if _, ok := seen[ourIndex]; !ok {
		return nil, fmt.Errorf("keygen: our index %d is not a member of the committee", ourIndex)
	}
	return &Session{CeremonyID: ceremonyID, Threshold: threshold, Committee: sorted, OurIndex: ourIndex}, nil
}

// Result is the reported outcome of a successful keygen ceremony: this
// party's freshly minted KeyShare (§3 "KeygenResult") — ready to hand
// straight to a keystore and reuse as a future frost.Session's input — plus
// the proof that the committee could actually produce a signature with it.
type Result struct {
	Share         *frost.KeyShare
	HandoverProof *crypto.Signature
}

// KeyID is the settlement-chain-facing identifier for the key: its
// compressed 33-byte public point (§3 "KeyId").
func (r *Result) KeyID() [33]byte {
	return r.Share.Y.Compress33()
}

// handoverPayload is the fixed message every keygen ceremony signs as proof
// the fresh key can produce a valid signature before it is ever reported to
// the state chain (§4.4 round 6; Open Question resolved in SPEC_FULL.md §9:
// SHA-256, not the settlement chain's own keccak256, since this payload
// never touches the settlement-chain verifier).
func handoverPayload(y *crypto.ECPoint) [32]byte {
	compressed := y.Compress33()
	return sha256.Sum256(append([]byte(HandoverDomainTag), compressed[:]...))
}

// FirstStage builds round 1 (commit to polynomial) for the given session.
func FirstStage(sess *Session) ceremony.Stage {
	return newStagePolyCommit(sess)
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
