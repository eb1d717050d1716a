// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package multisig

import (
	"fmt"
	"sync"

	"github.com/meridianchain/validator-engine/frost"
)

// Keystore is the narrow interface to persistent key storage (§1 "out of
// scope ... through narrow interfaces"). It is shared read-only by signing
// ceremonies; Put is only ever called once, by the multisig client, on a
// successful keygen (§5 "writes occur only on successful keygen and are
// serialised by the multisig client loop").
type Keystore interface {
	Put(keyID [33]byte, share *frost.KeyShare) error
	Get(keyID [33]byte) (*frost.KeyShare, error)
}

// memKeystore is an in-process Keystore, useful for tests and for a
// single-process deployment that persists nothing across restarts. A real
// deployment supplies its own Keystore backed by disk or a database, the
// way the teacher's key-share persistence (outside this pack) would be
// swapped in at the call site rather than hard-coded into the protocol.
type memKeystore struct {
	mu     sync.RWMutex
	shares map[[33]byte]*frost.KeyShare
}

// NewMemKeystore returns a Keystore backed by a plain in-memory map.
func NewMemKeystore() Keystore {
	return &memKeystore{shares: make(map[[33]byte]*frost.KeyShare)}
}

func (k *memKeystore) Put(keyID [33]byte, share *frost.KeyShare) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.shares[keyID] = share
	return nil
}

func (k *memKeystore) Get(keyID [33]byte) (*frost.KeyShare, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	share, ok := k.shares[keyID]
	if !ok {
		return nil, fmt.Errorf("multisig: no key share for key id %x", keyID)
	}
	return share, nil
}
