// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"sort"
	"strconv"
	"strings"

	"github.com/meridianchain/validator-engine/party"
)

// AggregateBlame resolves a round of complaints into a final culprit set
// (§4.4). reports maps a reporting party's index to the set of party indices
// it accuses; a reporter with an empty (but present) slice is a respondent
// that found nothing wrong. unresponsive holds the indices of parties that
// never reported anything at all for this stage.
//
// Rules, in order:
//
//  1. Every unresponsive party is always blamed.
//  2. If at least two-thirds of the committee (Threshold) submitted the exact
//     same non-empty accusation set, that set is blamed.
//  3. Otherwise, if at least two-thirds submitted a report at all (agreeing or
//     not), only the unresponsive parties are blamed — disagreement among
//     respondents is not itself punished.
//  4. Independent of 2/3, any single index named by at least half of all
//     reporters is always blamed, since that many independent accusers
//     cannot all be colluding against one honest party. A count that
//     exactly equals half the reporters is enough: ties break toward
//     accusing, never toward excusing a silent failure.
func AggregateBlame(partyCount int, reports map[int][]int, unresponsive []int) []int {
	culprits := make(map[int]struct{})
	for _, p := range unresponsive {
		culprits[p] = struct{}{}
	}

	respondents := len(reports)
	threshold := party.Threshold(partyCount) // ceil(2N/3)

	// Group respondents by their exact (sorted) accusation set.
	groups := make(map[string]int)
	groupMembers := make(map[string][]int)
	nonEmptyReporters := 0
	for reporter, accused := range reports {
		if len(accused) > 0 {
			nonEmptyReporters++
		}
		key := setKey(accused)
		groups[key]++
		groupMembers[key] = accused
		_ = reporter
	}

	if respondents >= threshold {
		agreedKey, agreedCount := "", 0
		for k, c := range groups {
			if c > agreedCount {
				agreedKey, agreedCount = k, c
			}
		}
		if agreedCount >= threshold && groupMembers[agreedKey] != nil && len(groupMembers[agreedKey]) > 0 {
			for _, p := range groupMembers[agreedKey] {
				culprits[p] = struct{}{}
			}
		}
		// else: quorum reported but disagreed — only unresponsive parties
		// blamed, already seeded above.
	}

	// Majority-naming override: tally how many distinct reporters named each
	// index, regardless of grouping.
	namedCount := make(map[int]int)
	for _, accused := range reports {
		seen := make(map[int]struct{}, len(accused))
		for _, p := range accused {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			namedCount[p]++
		}
	}
	for p, count := range namedCount {
		if count*2 >= respondents && respondents > 0 {
			culprits[p] = struct{}{}
		}
	}

	out := make([]int, 0, len(culprits))
	for p := range culprits {
		out = append(out, p)
	}
	return dedupSortInts(out)
}

func setKey(idxs []int) string {
	cp := append([]int(nil), idxs...)
	sort.Ints(cp)
	strs := make([]string, len(cp))
	for i, v := range cp {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ",")
}

// CrossCheckBroadcast resolves the verifying round of a broadcast stage
// (§4.2): each reporter claims to have seen a value (marshaled bytes) from
// every subject of the first round. For each subject, the majority value
// among reporters is taken as canonical; a reporter whose claim disagrees
// with the canonical value on any subject is marked diverged. If any subject
// has no value held by a strict majority of reporters, ok is false and the
// caller must fail the ceremony with no specific blame (§4.3).
func CrossCheckBroadcast(reporters, subjects []int, views map[int]map[int][]byte) (agreed map[int][]byte, diverged map[int]bool, ok bool) {
	agreed = make(map[int][]byte, len(subjects))
	diverged = make(map[int]bool)
	for _, subj := range subjects {
		counts := make(map[string]int)
		valueOf := make(map[string][]byte)
		for _, rep := range reporters {
			v, present := views[rep][subj]
			if !present {
				continue
			}
			key := string(v)
			counts[key]++
			valueOf[key] = v
		}
		majorityKey, majorityCount := "", 0
		for k, c := range counts {
			if c > majorityCount {
				majorityKey, majorityCount = k, c
			}
		}
		if majorityCount == 0 || majorityCount*2 <= len(reporters) {
			return nil, nil, false
		}
		agreed[subj] = valueOf[majorityKey]
		for _, rep := range reporters {
			v, present := views[rep][subj]
			if !present || string(v) != majorityKey {
				diverged[rep] = true
			}
		}
	}
	return agreed, diverged, true
}
