// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package keygen

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/party"
)

// queuedMsg is either a broadcast (to == nil, delivered to every other
// runner) or a point-to-point message (to != nil, delivered only there).
type queuedMsg struct {
	from    int
	to      *int
	tag     byte
	payload []byte
}

type network struct {
	runners map[int]*ceremony.Runner
	queue   []queuedMsg
}

func newNetwork() *network {
	return &network{runners: make(map[int]*ceremony.Runner)}
}

func (n *network) broadcastFrom(from int) func(tag byte, payload []byte) {
	return func(tag byte, payload []byte) {
		n.queue = append(n.queue, queuedMsg{from: from, tag: tag, payload: payload})
	}
}

func (n *network) p2pFrom(from int) func(tag byte, recipient int, payload []byte) {
	return func(tag byte, recipient int, payload []byte) {
		to := recipient
		n.queue = append(n.queue, queuedMsg{from: from, to: &to, tag: tag, payload: payload})
	}
}

func (n *network) drain(ceremonyID uint64) {
	for len(n.queue) > 0 {
		m := n.queue[0]
		n.queue = n.queue[1:]
		env := ceremony.Envelope{CeremonyID: ceremonyID, StageTag: m.tag, Payload: m.payload}
		if m.to != nil {
			if r, ok := n.runners[*m.to]; ok {
				r.ProcessMessage(m.from, env)
			}
			continue
		}
		for idx, r := range n.runners {
			if idx == m.from {
				continue
			}
			r.ProcessMessage(m.from, env)
		}
	}
}

func indexMapping(t *testing.T, indexes []int, ourIndex int) *party.IndexMapping {
	ids := make(party.UnsortedIDs, len(indexes))
	for i, idx := range indexes {
		ids[i] = party.New(big.NewInt(int64(idx)), "p")
	}
	sorted := party.Sort(ids)
	var ourKey *big.Int
	for _, id := range sorted {
		if id.Index == ourIndex {
			ourKey = id.Key
		}
	}
	mapping, err := party.NewIndexMapping(sorted, ourKey)
	require.NoError(t, err)
	return mapping
}

func TestKeygenHappyPathWithHandover(t *testing.T) {
	committee := []int{1, 2, 3}
	net := newNetwork()
	for _, idx := range committee {
		sess, err := NewSession(1, 1, committee, idx)
		require.NoError(t, err)
		mapping := indexMapping(t, committee, idx)
		r := ceremony.NewRunner(mapping, 1, "keygen", 30*time.Second, net.broadcastFrom(idx))
		r.SetP2POutbound(net.p2pFrom(idx))
		net.runners[idx] = r
		require.Nil(t, r.Authorise(FirstStage(sess)))
	}
	net.drain(1)

	var ys [][33]byte
	for _, idx := range committee {
		r := net.runners[idx]
		require.Equal(t, ceremony.Terminal, r.State(), "party %d did not terminate", idx)
		outcome := r.Outcome()
		require.NotNil(t, outcome)
		require.True(t, outcome.Success, "party %d: expected success, blamed=%v", idx, outcome.Blamed)
		result, ok := outcome.Result.(*Result)
		require.True(t, ok)
		require.NotNil(t, result.HandoverProof)
		assert.True(t, result.HandoverProof.Verify(result.Share.Y, handoverPayload(result.Share.Y)), "party %d: handover proof failed to verify", idx)
		ys = append(ys, result.KeyID())
	}
	for i := 1; i < len(ys); i++ {
		assert.Equal(t, ys[0], ys[i], "all parties must agree on the aggregate key")
	}
}

func TestKeygenBadShareIsBlamed(t *testing.T) {
	committee := []int{1, 2, 3}
	net := newNetwork()
	for _, idx := range committee {
		sess, err := NewSession(1, 1, committee, idx)
		require.NoError(t, err)
		mapping := indexMapping(t, committee, idx)
		r := ceremony.NewRunner(mapping, 1, "keygen", 30*time.Second, net.broadcastFrom(idx))
		if idx == 1 {
			r.SetP2POutbound(corruptingP2P(net, idx))
		} else {
			r.SetP2POutbound(net.p2pFrom(idx))
		}
		net.runners[idx] = r
		require.Nil(t, r.Authorise(FirstStage(sess)))
	}
	net.drain(1)

	for idx, r := range net.runners {
		require.Equal(t, ceremony.Terminal, r.State(), "party %d", idx)
		outcome := r.Outcome()
		require.NotNil(t, outcome)
		assert.False(t, outcome.Success, "party %d", idx)
		assert.Equal(t, []int{1}, outcome.Blamed, "party %d", idx)
	}
}

// corruptingP2P flips the last byte of every stage-3 share party `from`
// sends to someone else, simulating a dealer handing out bad evaluations of
// its own polynomial.
func corruptingP2P(n *network, from int) func(tag byte, recipient int, payload []byte) {
	inner := n.p2pFrom(from)
	return func(tag byte, recipient int, payload []byte) {
		if tag == TagShare3 {
			corrupted := append([]byte(nil), payload...)
			corrupted[len(corrupted)-1] ^= 0xFF
			inner(tag, recipient, corrupted)
			return
		}
		inner(tag, recipient, payload)
	}
}
