// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package frost_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/crypto/vss"
	"github.com/meridianchain/validator-engine/frost"
	"github.com/meridianchain/validator-engine/party"
)

type queuedMsg struct {
	from    int
	tag     byte
	payload []byte
}

// network drives several ceremony.Runners against each other in-process,
// simulating the p2p broadcast fabric this code would otherwise run over.
type network struct {
	runners map[int]*ceremony.Runner
	queue   []queuedMsg
}

func newNetwork() *network {
	return &network{runners: make(map[int]*ceremony.Runner)}
}

func (n *network) outboundFor(from int) func(tag byte, payload []byte) {
	return func(tag byte, payload []byte) {
		n.queue = append(n.queue, queuedMsg{from: from, tag: tag, payload: payload})
	}
}

// drain delivers every queued message to every runner but its sender, looping
// until the queue is empty.
func (n *network) drain(ceremonyID uint64) {
	for len(n.queue) > 0 {
		m := n.queue[0]
		n.queue = n.queue[1:]
		for idx, r := range n.runners {
			if idx == m.from {
				continue
			}
			r.ProcessMessage(m.from, ceremony.Envelope{CeremonyID: ceremonyID, StageTag: m.tag, Payload: m.payload})
		}
	}
}

// buildShares creates a genuine Shamir/Feldman sharing of a random secret
// key over the given party indexes at the given VSS threshold (polynomial
// degree), returning each party's frost.KeyShare.
func buildShares(t *testing.T, threshold int, indexes []int) (map[int]*frost.KeyShare, *crypto.ECPoint) {
	secret := crypto.RandomScalar()
	ids := make([]*big.Int, len(indexes))
	for i, idx := range indexes {
		ids[i] = big.NewInt(int64(idx))
	}
	_, shares, err := vss.Create(crypto.S256(), threshold, secret, ids)
	require.NoError(t, err)

	y := crypto.ScalarBaseMult(crypto.S256(), secret)
	partyPublicKeys := make(map[int]*crypto.ECPoint, len(indexes))
	shareByIndex := make(map[int]*big.Int, len(indexes))
	for i, idx := range indexes {
		shareByIndex[idx] = shares[i].Share
		partyPublicKeys[idx] = crypto.ScalarBaseMult(crypto.S256(), shares[i].Share)
	}
	out := make(map[int]*frost.KeyShare, len(indexes))
	for _, idx := range indexes {
		out[idx] = &frost.KeyShare{
			Index:           idx,
			X:               shareByIndex[idx],
			Y:               y,
			PartyPublicKeys: partyPublicKeys,
		}
	}
	return out, y
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

func TestSigning3of3HappyPath(t *testing.T) {
	indexes := []int{1, 2, 3}
	shares, y := buildShares(t, 2, indexes)
	var messageHash [32]byte
	copy(messageHash[:], []byte("deterministic test message hash"))

	net := newNetwork()
	for _, idx := range indexes {
		sess, err := frost.NewSession(1, messageHash, shares[idx], indexes, idx)
		require.NoError(t, err)
		mapping := indexMapping(t, indexes, idx)
		r := ceremony.NewRunner(mapping, 1, "frost-sign", 30*time.Second, net.outboundFor(idx))
		net.runners[idx] = r
		require.Nil(t, r.Authorise(frost.FirstStage(sess)))
	}
	net.drain(1)

	for _, idx := range indexes {
		r := net.runners[idx]
		require.Equal(t, ceremony.Terminal, r.State(), "party %d did not terminate", idx)
		outcome := r.Outcome()
		require.NotNil(t, outcome)
		assert.True(t, outcome.Success, "party %d: expected success, blamed=%v", idx, outcome.Blamed)
		sig, ok := outcome.Result.(*crypto.Signature)
		require.True(t, ok)
		assert.True(t, sig.Verify(y, messageHash), "party %d: aggregate signature failed to verify", idx)
	}
}

func TestSigningUnresponsiveSignerIsBlamed(t *testing.T) {
	indexes := []int{1, 2, 3, 4}
	shares, _ := buildShares(t, 2, indexes)
	var messageHash [32]byte
	copy(messageHash[:], []byte("deterministic test message hash"))

	net := newNetwork()
	timeout := 10 * time.Millisecond
	for _, idx := range indexes {
		if idx == 4 {
			continue // party 4 never starts: it sends nothing in stage 1
		}
		sess, err := frost.NewSession(1, messageHash, shares[idx], indexes, idx)
		require.NoError(t, err)
		mapping := indexMapping(t, indexes, idx)
		r := ceremony.NewRunner(mapping, 1, "frost-sign", timeout, net.outboundFor(idx))
		net.runners[idx] = r
		require.Nil(t, r.Authorise(frost.FirstStage(sess)))
	}
	net.drain(1)

	time.Sleep(2 * timeout)
	for idx, r := range net.runners {
		outcome := r.TryExpire(time.Now())
		require.NotNil(t, outcome, "party %d should have timed out", idx)
		assert.False(t, outcome.Success)
		assert.Equal(t, []int{4}, outcome.Blamed)
	}
}

func TestSigningBadLocalSigIsBlamed(t *testing.T) {
	indexes := []int{1, 2, 3}
	shares, _ := buildShares(t, 2, indexes)
	var messageHash [32]byte
	copy(messageHash[:], []byte("deterministic test message hash"))

	net := newNetwork()
	for _, idx := range indexes {
		sess, err := frost.NewSession(1, messageHash, shares[idx], indexes, idx)
		require.NoError(t, err)
		mapping := indexMapping(t, indexes, idx)
		corrupt := idx == 2
		r := ceremony.NewRunner(mapping, 1, "frost-sign", 30*time.Second, corruptingOutbound(net, idx, corrupt))
		net.runners[idx] = r
		require.Nil(t, r.Authorise(frost.FirstStage(sess)))
	}
	net.drain(1)

	for idx, r := range net.runners {
		require.Equal(t, ceremony.Terminal, r.State())
		outcome := r.Outcome()
		require.NotNil(t, outcome)
		assert.False(t, outcome.Success, "party %d", idx)
		assert.Equal(t, []int{2}, outcome.Blamed, "party %d", idx)
	}
}

// corruptingOutbound wraps outboundFor so that party 2's stage-3 LocalSig3
// payload is corrupted before broadcast (last byte flipped), simulating a
// bad local signature share while leaving every other stage untouched.
func corruptingOutbound(n *network, from int, corruptStage3 bool) func(tag byte, payload []byte) {
	inner := n.outboundFor(from)
	return func(tag byte, payload []byte) {
		if corruptStage3 && tag == frost.TagLocalSig3 {
			corrupted := append([]byte(nil), payload...)
			corrupted[len(corrupted)-1] ^= 0xFF
			inner(tag, corrupted)
			return
		}
		inner(tag, payload)
	}
}
