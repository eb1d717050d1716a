// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package multisig

import (
	"fmt"
	"math/big"
	"time"

	"github.com/meridianchain/validator-engine/ceremony"
	"github.com/meridianchain/validator-engine/common"
	"github.com/meridianchain/validator-engine/crypto"
	"github.com/meridianchain/validator-engine/frost"
	"github.com/meridianchain/validator-engine/keygen"
	"github.com/meridianchain/validator-engine/party"
)

// ceremonyKind tells the client what to do with a Runner's terminal Outcome:
// translate it into a KeygenOutcome or a SigningOutcome, and in the keygen
// case, persist the resulting share.
type ceremonyKind int

const (
	kindKeygen ceremonyKind = iota
	kindSigning
)

type runnerEntry struct {
	kind   ceremonyKind
	runner *ceremony.Runner
}

// Client drives every in-flight ceremony on this validator. It is the single
// consumer described in §9 "Concurrency mapping": one Client owns all
// Runners, so every request, p2p delivery, and timeout check is serialised
// through its (non-reentrant) methods. A host wires those methods behind a
// select loop reading the p2p inbound channel, the observer's instruction
// channel, and a timeout ticker.
type Client struct {
	ourIndex     int
	stageTimeout time.Duration
	keystore     Keystore

	sendBroadcast func(ceremonyID uint64, stageTag byte, payload []byte)
	sendP2P       func(ceremonyID uint64, stageTag byte, recipient int, payload []byte)

	keygenOut  chan KeygenOutcome
	signingOut chan SigningOutcome

	runners map[uint64]*runnerEntry
}

// NewClient builds a Client for the validator at ourIndex. sendBroadcast and
// sendP2P are the host's p2p outbound hooks (§5 "the p2p outbound channel is
// multi-producer; messages carry a ceremony id and recipient set"); the
// outcome channels hold 16 outcomes each, so a slow consumer blocks ceremony
// advancement only once 16 outcomes of a kind are waiting to be read.
func NewClient(ourIndex int, keystore Keystore, stageTimeout time.Duration, sendBroadcast func(ceremonyID uint64, stageTag byte, payload []byte), sendP2P func(ceremonyID uint64, stageTag byte, recipient int, payload []byte)) *Client {
	return &Client{
		ourIndex:      ourIndex,
		stageTimeout:  stageTimeout,
		keystore:      keystore,
		sendBroadcast: sendBroadcast,
		sendP2P:       sendP2P,
		keygenOut:     make(chan KeygenOutcome, 16),
		signingOut:    make(chan SigningOutcome, 16),
		runners:       make(map[uint64]*runnerEntry),
	}
}

// KeygenOutcomes is the channel the observer reads finished DKG ceremonies
// from, to build report_keygen_outcome extrinsics.
func (c *Client) KeygenOutcomes() <-chan KeygenOutcome { return c.keygenOut }

// SigningOutcomes is the channel the observer reads finished signing
// ceremonies from, to build signature_success / report_signature_failed
// extrinsics.
func (c *Client) SigningOutcomes() <-chan SigningOutcome { return c.signingOut }

// buildMapping turns a plain participant index list into the PartyIndexMapping
// every Stage needs, assigning each participant a party.ID keyed by its own
// index so party.Sort's key ordering matches the index ordering already
// agreed on the state chain.
func buildMapping(participants []int, ourIndex int) (*party.IndexMapping, error) {
	ids := make(party.UnsortedIDs, len(participants))
	for i, idx := range participants {
		ids[i] = party.New(big.NewInt(int64(idx)), fmt.Sprintf("validator-%d", idx))
	}
	sorted := party.Sort(ids)
	ourID := sorted.FindByIndex(ourIndex)
	if ourID == nil {
		return nil, fmt.Errorf("multisig: our index %d is not a participant", ourIndex)
	}
	return party.NewIndexMapping(sorted, ourID.Key)
}

// HandleKeygenRequest starts a DKG ceremony for req. It is a protocol
// violation (§7 taxonomy) for this validator not to be among the
// participants; that is reported as an immediate ceremony error rather than
// silently ignored.
func (c *Client) HandleKeygenRequest(req KeygenRequest) *ceremony.Error {
	if _, exists := c.runners[req.CeremonyID]; exists {
		return ceremony.NewError(fmt.Errorf("ceremony %d already running", req.CeremonyID), "multisig-keygen", -1)
	}
	mapping, err := buildMapping(req.Participants, c.ourIndex)
	if err != nil {
		return ceremony.NewError(err, "multisig-keygen", -1)
	}
	sess, err := keygen.NewSession(req.CeremonyID, mapping.Threshold(), req.Participants, c.ourIndex)
	if err != nil {
		return ceremony.NewError(err, "multisig-keygen", -1)
	}
	runner := ceremony.NewRunner(mapping, req.CeremonyID, "keygen", c.stageTimeout, c.broadcastFor(req.CeremonyID))
	runner.SetP2POutbound(c.p2pFor(req.CeremonyID))
	entry := &runnerEntry{kind: kindKeygen, runner: runner}
	c.runners[req.CeremonyID] = entry
	if err := runner.Authorise(keygen.FirstStage(sess)); err != nil {
		delete(c.runners, req.CeremonyID)
		return err
	}
	c.dispatch(req.CeremonyID, entry)
	return nil
}

// HandleSignRequest starts a signing ceremony for req, loading the key share
// for req.KeyID from the Keystore (§5 "the key database is shared read-only
// by signing ceremonies").
func (c *Client) HandleSignRequest(req SignRequest) *ceremony.Error {
	if _, exists := c.runners[req.CeremonyID]; exists {
		return ceremony.NewError(fmt.Errorf("ceremony %d already running", req.CeremonyID), "multisig-signing", -1)
	}
	share, err := c.keystore.Get(req.KeyID)
	if err != nil {
		return ceremony.NewError(err, "multisig-signing", -1)
	}
	mapping, err := buildMapping(req.Signers, c.ourIndex)
	if err != nil {
		return ceremony.NewError(err, "multisig-signing", -1)
	}
	sess, err := frost.NewSession(req.CeremonyID, req.PayloadHash, share, req.Signers, c.ourIndex)
	if err != nil {
		return ceremony.NewError(err, "multisig-signing", -1)
	}
	runner := ceremony.NewRunner(mapping, req.CeremonyID, "signing", c.stageTimeout, c.broadcastFor(req.CeremonyID))
	entry := &runnerEntry{kind: kindSigning, runner: runner}
	c.runners[req.CeremonyID] = entry
	if err := runner.Authorise(frost.FirstStage(sess)); err != nil {
		delete(c.runners, req.CeremonyID)
		return err
	}
	c.dispatch(req.CeremonyID, entry)
	return nil
}

// HandleP2PMessage routes one inbound peer envelope to its ceremony. A
// message for a ceremony id this client has never heard of is logged and
// dropped rather than treated as an error: the keygen/signing request that
// would authorise it may simply not have arrived yet, and Runner already
// buffers pre-authorisation traffic once a ceremony exists (§4.1
// "Unauthorised").
func (c *Client) HandleP2PMessage(ceremonyID uint64, sender int, env ceremony.Envelope) *ceremony.Error {
	entry, ok := c.runners[ceremonyID]
	if !ok {
		common.Logger.Debugf("multisig: dropping message for unknown ceremony %d from %d", ceremonyID, sender)
		return nil
	}
	if err := entry.runner.ProcessMessage(sender, env); err != nil {
		return err
	}
	c.dispatch(ceremonyID, entry)
	return nil
}

// Tick expires any ceremony whose current stage deadline has passed. The
// host calls this on a periodic timer as one arm of its select loop.
func (c *Client) Tick(now time.Time) {
	for id, entry := range c.runners {
		if entry.runner.TryExpire(now) != nil {
			c.dispatch(id, entry)
		}
	}
}

func (c *Client) broadcastFor(ceremonyID uint64) func(stageTag byte, payload []byte) {
	return func(stageTag byte, payload []byte) {
		if c.sendBroadcast != nil {
			c.sendBroadcast(ceremonyID, stageTag, payload)
		}
	}
}

func (c *Client) p2pFor(ceremonyID uint64) func(stageTag byte, recipient int, payload []byte) {
	return func(stageTag byte, recipient int, payload []byte) {
		if c.sendP2P != nil {
			c.sendP2P(ceremonyID, stageTag, recipient, payload)
		}
	}
}

// dispatch publishes a Runner's Outcome once it has gone Terminal, and
// removes the Runner from the active set. A ceremony reports at most one
// outcome (§8 "A ceremony never reports two different outcomes for the same
// ceremony id"): dispatch is idempotent because the Runner is removed from
// c.runners on the same call that reads its Outcome.
func (c *Client) dispatch(ceremonyID uint64, entry *runnerEntry) {
	if entry.runner.State() != ceremony.Terminal {
		return
	}
	delete(c.runners, ceremonyID)
	outcome := entry.runner.Outcome()
	switch entry.kind {
	case kindKeygen:
		c.dispatchKeygen(ceremonyID, outcome)
	case kindSigning:
		c.dispatchSigning(ceremonyID, outcome)
	}
}

func (c *Client) dispatchKeygen(ceremonyID uint64, outcome *ceremony.Outcome) {
	if !outcome.Success {
		c.keygenOut <- KeygenOutcome{CeremonyID: ceremonyID, Success: false, Blamed: outcome.Blamed}
		return
	}
	result, ok := outcome.Result.(*keygen.Result)
	if !ok {
		common.Logger.Errorf("multisig: keygen ceremony %d produced unexpected result type %T", ceremonyID, outcome.Result)
		c.keygenOut <- KeygenOutcome{CeremonyID: ceremonyID, Success: false}
		return
	}
	if err := c.keystore.Put(result.KeyID(), result.Share); err != nil {
		common.Logger.Errorf("multisig: failed to persist key share for ceremony %d: %v", ceremonyID, err)
	}
	c.keygenOut <- KeygenOutcome{CeremonyID: ceremonyID, Success: true, Result: result}
}

func (c *Client) dispatchSigning(ceremonyID uint64, outcome *ceremony.Outcome) {
	if !outcome.Success {
		c.signingOut <- SigningOutcome{CeremonyID: ceremonyID, Success: false, Blamed: outcome.Blamed}
		return
	}
	sig, ok := outcome.Result.(*crypto.Signature)
	if !ok {
		common.Logger.Errorf("multisig: signing ceremony %d produced unexpected result type %T", ceremonyID, outcome.Result)
		c.signingOut <- SigningOutcome{CeremonyID: ceremonyID, Success: false}
		return
	}
	c.signingOut <- SigningOutcome{CeremonyID: ceremonyID, Success: true, Signature: sig}
}
