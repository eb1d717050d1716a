// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package party

import (
	"fmt"
	"math/big"
)

// IndexMapping bijects validator identities to the 1-based indices used inside
// a single ceremony. It is built once from a SortedIDs set and never mutated
// for the ceremony's lifetime (§3 "Party index").
type IndexMapping struct {
	ids        SortedIDs
	byIndex    map[int]*ID
	byKey      map[string]*ID
	ourIndex   int
	partyCount int
}

// NewIndexMapping builds the bijection for the given (already-sorted) participant
// set. ourKey identifies which participant is the local one. A nil ourKey
// leaves ourIndex at -1 (used when constructing read-only views, e.g. for
// verification-only tooling); a non-nil ourKey that is not a member is an
// error.
func NewIndexMapping(ids SortedIDs, ourKey *big.Int) (*IndexMapping, error) {
	byIndex := make(map[int]*ID, len(ids))
	byKey := make(map[string]*ID, len(ids))
	for _, id := range ids {
		if !id.ValidateBasic() {
			return nil, fmt.Errorf("party mapping: invalid party id %v", id)
		}
		if _, dup := byIndex[id.Index]; dup {
			return nil, fmt.Errorf("party mapping: duplicate index %d", id.Index)
		}
		byIndex[id.Index] = id
		byKey[id.Key.String()] = id
	}
	ourIndex := -1
	if ourKey != nil {
		if id, ok := byKey[ourKey.String()]; ok {
			ourIndex = id.Index
		} else {
			return nil, fmt.Errorf("party mapping: our key is not a member of the participant set")
		}
	}
	return &IndexMapping{
		ids:        ids,
		byIndex:    byIndex,
		byKey:      byKey,
		ourIndex:   ourIndex,
		partyCount: len(ids),
	}, nil
}

func (m *IndexMapping) OurIndex() int       { return m.ourIndex }
func (m *IndexMapping) PartyCount() int     { return m.partyCount }
func (m *IndexMapping) IDs() SortedIDs      { return m.ids }
func (m *IndexMapping) ByIndex(i int) *ID   { return m.byIndex[i] }
func (m *IndexMapping) Indexes() []int      { return m.ids.Indexes() }

// Threshold is the signing threshold t = ceil(N*2/3); any t+1 parties can sign,
// all N must succeed for keygen (§3 "Threshold parameters").
func (m *IndexMapping) Threshold() int {
	return Threshold(m.partyCount)
}

// Threshold computes t = ceil(n*2/3) for a committee of size n.
func Threshold(n int) int {
	return (n*2 + 2) / 3
}

// ValidIndexSet reports whether idxs has no duplicates and every index lies in
// [1, N] (§3 invariants).
func (m *IndexMapping) ValidIndexSet(idxs []int) bool {
	seen := make(map[int]struct{}, len(idxs))
	for _, i := range idxs {
		if i < 1 || i > m.partyCount {
			return false
		}
		if _, dup := seen[i]; dup {
			return false
		}
		seen[i] = struct{}{}
	}
	return true
}
