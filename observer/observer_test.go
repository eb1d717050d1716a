// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package observer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianchain/validator-engine/observer"
)

const (
	assertEventuallyTimeout = time.Second
	assertEventuallyTick    = 5 * time.Millisecond
)

type fakeChain struct {
	mu sync.Mutex

	accountData       map[[32]byte]observer.AccountData
	activeWindow      observer.BlockHeightWindow
	events            map[[32]byte]observer.BlockEvents
	heartbeatInterval uint64

	signedExtrinsics   []observer.Extrinsic
	unsignedExtrinsics []observer.Extrinsic
}

func newFakeChain(initial observer.AccountData, interval uint64) *fakeChain {
	return &fakeChain{
		accountData:       map[[32]byte]observer.AccountData{{}: initial},
		events:            map[[32]byte]observer.BlockEvents{},
		heartbeatInterval: interval,
	}
}

func (f *fakeChain) AccountData(_ context.Context, blockHash [32]byte) (observer.AccountData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.accountData[blockHash]; ok {
		return d, nil
	}
	return f.accountData[[32]byte{}], nil
}

func (f *fakeChain) ActiveWindow(context.Context, [32]byte) (observer.BlockHeightWindow, error) {
	return f.activeWindow, nil
}

func (f *fakeChain) EventsAt(_ context.Context, blockHash [32]byte) (observer.BlockEvents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[blockHash], nil
}

func (f *fakeChain) SubmitSigned(_ context.Context, ext observer.Extrinsic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedExtrinsics = append(f.signedExtrinsics, ext)
	return nil
}

func (f *fakeChain) SubmitUnsigned(_ context.Context, ext observer.Extrinsic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsignedExtrinsics = append(f.unsignedExtrinsics, ext)
	return nil
}

func (f *fakeChain) HeartbeatBlockInterval() uint64 { return f.heartbeatInterval }

func (f *fakeChain) calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	all := append(append([]observer.Extrinsic{}, f.signedExtrinsics...), f.unsignedExtrinsics...)
	for _, e := range all {
		if e.Call == name {
			n++
		}
	}
	return n
}

type fakeBroadcaster struct{}

func (fakeBroadcaster) SignTransaction(tx []byte) ([]byte, string, error) {
	return append([]byte{0xff}, tx...), "0xabc", nil
}

func (fakeBroadcaster) Broadcast(context.Context, []byte) ([32]byte, error) {
	return [32]byte{9}, nil
}

type fakeMultisig struct {
	mu      sync.Mutex
	keygens []observer.KeygenRequestIn
	signs   []observer.SignRequestIn
}

func (f *fakeMultisig) HandleKeygenRequest(req observer.KeygenRequestIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keygens = append(f.keygens, req)
	return nil
}

func (f *fakeMultisig) HandleSignRequest(req observer.SignRequestIn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signs = append(f.signs, req)
	return nil
}

// TestObserverDispatchesKeygenAndFiltersSignRequests drives one block with
// both a KeygenRequest (always relevant) and two ThresholdSignatureRequests,
// only one of which names this validator (§4.5 step 4 "where this node is
// among validators").
func TestObserverDispatchesKeygenAndFiltersSignRequests(t *testing.T) {
	chain := newFakeChain(observer.AccountData{CurrentEpochActive: true}, 100)
	blockHash := [32]byte{1}
	chain.events[blockHash] = observer.BlockEvents{
		KeygenRequests: []observer.KeygenRequestEvent{{CeremonyID: 1, Participants: []int{1, 2, 3}}},
		ThresholdSignatureRequests: []observer.ThresholdSignatureRequestEvent{
			{CeremonyID: 2, Validators: []int{1, 2, 3}, PayloadHash: [32]byte{7}},
			{CeremonyID: 3, Validators: []int{4, 5, 6}, PayloadHash: [32]byte{8}},
		},
	}
	ms := &fakeMultisig{}
	obs := observer.New(1, chain, fakeBroadcaster{}, ms, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	blocks := make(chan observer.Header, 1)
	keygenOutcomes := make(chan observer.KeygenOutcomeIn)
	signingOutcomes := make(chan observer.SigningOutcomeIn)

	done := make(chan error, 1)
	go func() { done <- obs.Run(ctx, [32]byte{}, blocks, keygenOutcomes, signingOutcomes) }()

	blocks <- observer.Header{Number: 10, Hash: blockHash}
	// give the loop a turn to process, then stop it.
	require.Eventually(t, func() bool {
		ms.mu.Lock()
		defer ms.mu.Unlock()
		return len(ms.keygens) == 1 && len(ms.signs) == 1
	}, assertEventuallyTimeout, assertEventuallyTick)

	cancel()
	<-done

	assert.Equal(t, uint64(1), ms.keygens[0].CeremonyID)
	require.Len(t, ms.signs, 1)
	assert.Equal(t, uint64(2), ms.signs[0].CeremonyID)
}

// TestObserverReportsKeygenAndSigningOutcomes exercises §4.5 step 5.
func TestObserverReportsKeygenAndSigningOutcomes(t *testing.T) {
	chain := newFakeChain(observer.AccountData{CurrentEpochActive: true}, 100)
	ms := &fakeMultisig{}
	obs := observer.New(1, chain, fakeBroadcaster{}, ms, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	blocks := make(chan observer.Header)
	keygenOutcomes := make(chan observer.KeygenOutcomeIn, 1)
	signingOutcomes := make(chan observer.SigningOutcomeIn, 1)

	done := make(chan error, 1)
	go func() { done <- obs.Run(ctx, [32]byte{}, blocks, keygenOutcomes, signingOutcomes) }()

	keygenOutcomes <- observer.KeygenOutcomeIn{CeremonyID: 5, Success: false, Blamed: []int{3}}
	signingOutcomes <- observer.SigningOutcomeIn{CeremonyID: 6, Success: false, Blamed: []int{2}}

	require.Eventually(t, func() bool {
		return chain.calls("report_keygen_outcome") == 1 && chain.calls("report_signature_failed") == 1
	}, assertEventuallyTimeout, assertEventuallyTick)

	cancel()
	<-done
}
