// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package multisig

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/frost"
)

// fileKeyShare is KeyShare's on-disk wire form: ECPoint's fields are
// unexported, so shares are compressed/decompressed through their existing
// Compress33/DecompressCompressed helpers rather than reflected over
// directly.
type fileKeyShare struct {
	Index           int            `json:"index"`
	X               string         `json:"x"` // big.Int decimal
	Y               [33]byte       `json:"y"`
	PartyPublicKeys map[int][33]byte `json:"party_public_keys"`
}

// FileKeystore persists key shares as one JSON file per key id under dir,
// grounded on up2itnow-ReadyTrader-Crypto/mpc_signer's
// loadKeyShareIfPresent/saveKeyShare pattern (read-if-present, write via a
// temp file renamed into place so a crash mid-write never leaves a corrupt
// share on disk).
type FileKeystore struct {
	dir string
	mu  sync.Mutex
}

// NewFileKeystore returns a Keystore rooted at dir (spec §9's
// key_database_path), creating it if necessary.
func NewFileKeystore(dir string) (*FileKeystore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("multisig: create key database dir: %w", err)
	}
	return &FileKeystore{dir: dir}, nil
}

func (f *FileKeystore) path(keyID [33]byte) string {
	return filepath.Join(f.dir, fmt.Sprintf("%x.json", keyID))
}

func (f *FileKeystore) Put(keyID [33]byte, share *frost.KeyShare) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	public := make(map[int][33]byte, len(share.PartyPublicKeys))
	for idx, pt := range share.PartyPublicKeys {
		public[idx] = pt.Compress33()
	}
	wire := fileKeyShare{
		Index:           share.Index,
		X:               share.X.String(),
		Y:               share.Y.Compress33(),
		PartyPublicKeys: public,
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("multisig: encode key share: %w", err)
	}
	p := f.path(keyID)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("multisig: write key share: %w", err)
	}
	return os.Rename(tmp, p)
}

func (f *FileKeystore) Get(keyID [33]byte) (*frost.KeyShare, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("multisig: no key share for key id %x", keyID)
		}
		return nil, fmt.Errorf("multisig: read key share: %w", err)
	}
	var wire fileKeyShare
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("multisig: decode key share: %w", err)
	}
	x, ok := new(big.Int).SetString(wire.X, 10)
	if !ok {
		return nil, fmt.Errorf("multisig: decode key share: malformed scalar")
	}
	y, err := crypto.DecompressCompressed(wire.Y[:])
	if err != nil {
		return nil, fmt.Errorf("multisig: decode key share: %w", err)
	}
	public := make(map[int]*crypto.ECPoint, len(wire.PartyPublicKeys))
	for idx, compressed := range wire.PartyPublicKeys {
		pt, err := crypto.DecompressCompressed(compressed[:])
		if err != nil {
			return nil, fmt.Errorf("multisig: decode party public key %d: %w", idx, err)
		}
		public[idx] = pt
	}
	return &frost.KeyShare{Index: wire.Index, X: x, Y: y, PartyPublicKeys: public}, nil
}
