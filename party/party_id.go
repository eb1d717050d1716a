// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package party holds the identity and ordering primitives shared by every
// ceremony: a validator's wire identity (ID) and the bijection between
// validator identities and the 1-based integer indices a ceremony's protocol
// messages actually address (§3 "Party index").
package party

import (
	"fmt"
	"math/big"
	"sort"
)

type (
	// ID represents a validator participating in a ceremony. Key is a unique,
	// stable identifier for the validator (independent of ceremony membership);
	// Moniker is for human-readable logging only.
	ID struct {
		Key     *big.Int
		Moniker string
		// Index is the 1-based position assigned once the containing set is
		// sorted; -1 until then.
		Index int
	}

	UnsortedIDs []*ID
	SortedIDs   []*ID
)

// New constructs an ID with its index left unassigned.
func New(key *big.Int, moniker string) *ID {
	return &ID{Key: key, Moniker: moniker, Index: -1}
}

func (id *ID) String() string {
	if id == nil {
		return "{nil}"
	}
	return fmt.Sprintf("{%d,%s}", id.Index, id.Moniker)
}

func (id *ID) ValidateBasic() bool {
	return id != nil && id.Key != nil
}

// Sort orders ids ascending by key and assigns 1-based indices (§3: "assigns
// each a 1-based integer index").
func Sort(ids UnsortedIDs) SortedIDs {
	sorted := make(SortedIDs, len(ids))
	copy(sorted, ids)
	sort.Sort(sorted)
	for i, id := range sorted {
		id.Index = i + 1
	}
	return sorted
}

func (s SortedIDs) Len() int           { return len(s) }
func (s SortedIDs) Less(a, b int) bool { return s[a].Key.Cmp(s[b].Key) < 0 }
func (s SortedIDs) Swap(a, b int)      { s[a], s[b] = s[b], s[a] }

func (s SortedIDs) FindByIndex(index int) *ID {
	for _, id := range s {
		if id.Index == index {
			return id
		}
	}
	return nil
}

func (s SortedIDs) FindByKey(key *big.Int) *ID {
	for _, id := range s {
		if id.Key.Cmp(key) == 0 {
			return id
		}
	}
	return nil
}

func (s SortedIDs) Indexes() []int {
	out := make([]int, len(s))
	for i, id := range s {
		out[i] = id.Index
	}
	return out
}
