// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package multisig_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/multisig"
)

// queuedMsg is either a broadcast (to == nil) or a point-to-point message
// (to != nil) addressed from one validator's Client to another's.
type queuedMsg struct {
	ceremonyID uint64
	from       int
	to         *int
	tag        byte
	payload    []byte
}

type bus struct {
	clients map[int]*multisig.Client
	queue   []queuedMsg
}

func newBus() *bus { return &bus{clients: make(map[int]*multisig.Client)} }

func (b *bus) broadcastFrom(from int) func(ceremonyID uint64, tag byte, payload []byte) {
	return func(ceremonyID uint64, tag byte, payload []byte) {
		b.queue = append(b.queue, queuedMsg{ceremonyID: ceremonyID, from: from, tag: tag, payload: payload})
	}
}

func (b *bus) p2pFrom(from int) func(ceremonyID uint64, tag byte, recipient int, payload []byte) {
	return func(ceremonyID uint64, tag byte, recipient int, payload []byte) {
		to := recipient
		b.queue = append(b.queue, queuedMsg{ceremonyID: ceremonyID, from: from, to: &to, tag: tag, payload: payload})
	}
}

func (b *bus) drain(t *testing.T) {
	for len(b.queue) > 0 {
		m := b.queue[0]
		b.queue = b.queue[1:]
		env := ceremony.Envelope{CeremonyID: m.ceremonyID, StageTag: m.tag, Payload: m.payload}
		if m.to != nil {
			c, ok := b.clients[*m.to]
			if !ok {
				continue
			}
			require.Nil(t, c.HandleP2PMessage(m.ceremonyID, m.from, env))
			continue
		}
		for idx, c := range b.clients {
			if idx == m.from {
				continue
			}
			require.Nil(t, c.HandleP2PMessage(m.ceremonyID, m.from, env))
		}
	}
}

// TestClientKeygenThenSigning drives a full DKG across three validators'
// Clients, then immediately reuses the resulting key for a signing ceremony,
// end to end through the same Client API the observer calls in production.
func TestClientKeygenThenSigning(t *testing.T) {
	committee := []int{1, 2, 3}
	b := newBus()
	for _, idx := range committee {
		c := multisig.NewClient(idx, multisig.NewMemKeystore(), 30*time.Second, b.broadcastFrom(idx), b.p2pFrom(idx))
		b.clients[idx] = c
	}

	for _, idx := range committee {
		require.Nil(t, b.clients[idx].HandleKeygenRequest(multisig.KeygenRequest{CeremonyID: 1, Participants: committee}))
	}
	b.drain(t)

	var keyID [33]byte
	for i, idx := range committee {
		select {
		case out := <-b.clients[idx].KeygenOutcomes():
			require.True(t, out.Success, "party %d: blamed=%v", idx, out.Blamed)
			require.Equal(t, uint64(1), out.CeremonyID)
			if i == 0 {
				keyID = out.Result.KeyID()
			} else {
				assert.Equal(t, keyID, out.Result.KeyID(), "party %d disagrees on key id", idx)
			}
		default:
			t.Fatalf("party %d: no keygen outcome delivered", idx)
		}
	}

	payloadHash := [32]byte{1, 2, 3, 4, 5}
	for _, idx := range committee {
		require.Nil(t, b.clients[idx].HandleSignRequest(multisig.SignRequest{
			CeremonyID:  2,
			KeyID:       keyID,
			Signers:     committee,
			PayloadHash: payloadHash,
		}))
	}
	b.drain(t)

	for _, idx := range committee {
		select {
		case out := <-b.clients[idx].SigningOutcomes():
			require.True(t, out.Success, "party %d: blamed=%v", idx, out.Blamed)
			require.NotNil(t, out.Signature)
		default:
			t.Fatalf("party %d: no signing outcome delivered", idx)
		}
	}
}

// TestClientRejectsDuplicateCeremonyID guards against the state chain
// somehow issuing the same ceremony id twice concurrently (§8 "a ceremony
// never reports two different outcomes for the same ceremony id" implies a
// ceremony id is never reused while live).
func TestClientRejectsDuplicateCeremonyID(t *testing.T) {
	committee := []int{1, 2, 3}
	c := multisig.NewClient(1, multisig.NewMemKeystore(), 30*time.Second, func(uint64, byte, []byte) {}, func(uint64, byte, int, []byte) {})
	require.Nil(t, c.HandleKeygenRequest(multisig.KeygenRequest{CeremonyID: 7, Participants: committee}))
	err := c.HandleKeygenRequest(multisig.KeygenRequest{CeremonyID: 7, Participants: committee})
	require.NotNil(t, err)
}
