// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package observer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridianchain/validator-engine/common"
)

// Observer drives the single select-loop described by §4.5/§5: one task reads
// finalised block headers and multisig outcomes, and is the only writer of
// state-chain extrinsics. Grounded on
// original_source/engine/src/state_chain/sc_observer.rs's `start` function.
type Observer struct {
	ourIndex       int
	client         StateChainClient
	ethBroadcaster EthBroadcaster
	multisig       MultisigRequester
	onPeerChange   func(PeerIDChangeEvent)
	smWindows      chan<- BlockHeightWindow
	kmWindows      chan<- BlockHeightWindow

	role        Role
	accountData AccountData
}

// New builds an Observer for the validator at ourIndex. smWindows/kmWindows
// may be nil if the caller has no witnesser to notify (e.g. in tests).
func New(ourIndex int, client StateChainClient, ethBroadcaster EthBroadcaster, multisig MultisigRequester, onPeerChange func(PeerIDChangeEvent), smWindows, kmWindows chan<- BlockHeightWindow) *Observer {
	return &Observer{
		ourIndex:       ourIndex,
		client:         client,
		ethBroadcaster: ethBroadcaster,
		multisig:       multisig,
		onPeerChange:   onPeerChange,
		smWindows:      smWindows,
		kmWindows:      kmWindows,
		role:           RolePassive,
	}
}

// Run consumes blocks and outcomes until ctx is cancelled or either channel
// closes. It is meant to run as one goroutine among several (observer,
// multisig client, p2p), per §5's "several such loops concurrently".
func (o *Observer) Run(ctx context.Context, initialBlockHash [32]byte, blocks <-chan Header, keygenOutcomes <-chan KeygenOutcomeIn, signingOutcomes <-chan SigningOutcomeIn) error {
	accountData, err := o.client.AccountData(ctx, initialBlockHash)
	if err != nil {
		return fmt.Errorf("observer: initial account data: %w", err)
	}
	o.accountData = accountData
	o.role = deriveRole(accountData)
	if o.role == RoleActive || o.role == RoleOutgoing {
		if err := o.pushActiveWindow(ctx, initialBlockHash); err != nil {
			common.Logger.Errorf("observer: initial active-window push failed: %v", err)
		}
	}
	if err := o.client.SubmitSigned(ctx, heartbeatExtrinsic()); err != nil {
		common.Logger.Errorf("observer: initial heartbeat failed: %v", err)
	}

	heartbeatInterval := o.client.HeartbeatBlockInterval()
	if heartbeatInterval == 0 {
		heartbeatInterval = 1
	}
	blocksPerHeartbeat := heartbeatInterval / 2
	if blocksPerHeartbeat == 0 {
		blocksPerHeartbeat = 1
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case header, ok := <-blocks:
			if !ok {
				return fmt.Errorf("observer: block stream ended")
			}
			if err := o.processBlock(ctx, header, blocksPerHeartbeat); err != nil {
				common.Logger.Errorf("observer: processing block %d: %v", header.Number, err)
			}
		case outcome, ok := <-keygenOutcomes:
			if !ok {
				return fmt.Errorf("observer: keygen outcome channel ended")
			}
			o.reportKeygenOutcome(ctx, outcome)
		case outcome, ok := <-signingOutcomes:
			if !ok {
				return fmt.Errorf("observer: signing outcome channel ended")
			}
			o.reportSigningOutcome(ctx, outcome)
		}
	}
}

func (o *Observer) processBlock(ctx context.Context, header Header, blocksPerHeartbeat uint64) error {
	events, err := o.client.EventsAt(ctx, header.Hash)
	if err != nil {
		return fmt.Errorf("decode events at block %d: %w", header.Number, err)
	}

	for _, ev := range events.PeerIDChanges {
		if o.onPeerChange != nil {
			o.onPeerChange(ev)
		}
	}
	for _, ev := range events.KeygenRequests {
		if err := o.multisig.HandleKeygenRequest(KeygenRequestIn{CeremonyID: ev.CeremonyID, Participants: ev.Participants}); err != nil {
			common.Logger.Errorf("observer: keygen request ceremony %d: %v", ev.CeremonyID, err)
		}
	}
	for _, ev := range events.ThresholdSignatureRequests {
		if !containsInt(ev.Validators, o.ourIndex) {
			continue
		}
		if err := o.multisig.HandleSignRequest(SignRequestIn{CeremonyID: ev.CeremonyID, KeyID: ev.KeyID, Signers: ev.Validators, PayloadHash: ev.PayloadHash}); err != nil {
			common.Logger.Errorf("observer: sign request ceremony %d: %v", ev.CeremonyID, err)
		}
	}
	for _, ev := range events.TransactionSigningRequests {
		o.handleTransactionSigningRequest(ctx, ev)
	}
	for _, ev := range events.TransmissionRequests {
		o.handleTransmissionRequest(ctx, ev)
	}

	// Backup/Passive nodes recheck every block since they can flip between the
	// two on any block; Active/Outgoing only need to recheck on a new epoch
	// (§4.5 step 2).
	if events.NewEpoch || o.role == RoleBackup || o.role == RolePassive {
		accountData, err := o.client.AccountData(ctx, header.Hash)
		if err != nil {
			return fmt.Errorf("refresh account data at block %d: %w", header.Number, err)
		}
		o.accountData = accountData
		o.role = deriveRole(accountData)
	}
	if events.NewEpoch && (o.role == RoleActive || o.role == RoleOutgoing) {
		if err := o.pushActiveWindow(ctx, header.Hash); err != nil {
			common.Logger.Errorf("observer: active-window push at block %d failed: %v", header.Number, err)
		}
	}

	// Offset by half a heartbeat period, so with a period of two or more
	// blocks it fires in the middle of each period and never on a period
	// boundary block; with a one-block period it fires on every block.
	if (header.Number+blocksPerHeartbeat/2)%blocksPerHeartbeat == 0 {
		if err := o.client.SubmitSigned(ctx, heartbeatExtrinsic()); err != nil {
			common.Logger.Errorf("observer: heartbeat at block %d failed: %v", header.Number, err)
		}
	}
	return nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func (o *Observer) handleTransactionSigningRequest(ctx context.Context, ev TransactionSigningRequestEvent) {
	signed, address, err := o.ethBroadcaster.SignTransaction(ev.UnsignedTx)
	if err != nil {
		common.Logger.Errorf("observer: local signing failed for attempt %d: %v", ev.AttemptID, err)
		return
	}
	if err := o.client.SubmitSigned(ctx, transactionReadyForTransmissionExtrinsic(ev.AttemptID, signed, address)); err != nil {
		common.Logger.Errorf("observer: transaction_ready_for_transmission failed for attempt %d: %v", ev.AttemptID, err)
	}
}

func (o *Observer) handleTransmissionRequest(ctx context.Context, ev TransmissionRequestEvent) {
	txHash, err := o.ethBroadcaster.Broadcast(ctx, ev.SignedTx)
	var ext Extrinsic
	if err != nil {
		ext = witnessEthTransmissionFailureExtrinsic(ev.AttemptID, err.Error())
	} else {
		ext = witnessEthTransmissionSuccessExtrinsic(ev.AttemptID, txHash)
	}
	if err := o.client.SubmitSigned(ctx, ext); err != nil {
		common.Logger.Errorf("observer: witness_eth_transmission report failed for attempt %d: %v", ev.AttemptID, err)
	}
}

func (o *Observer) pushActiveWindow(ctx context.Context, blockHash [32]byte) error {
	window, err := o.client.ActiveWindow(ctx, blockHash)
	if err != nil {
		return err
	}
	if o.smWindows != nil {
		o.smWindows <- window
	}
	if o.kmWindows != nil {
		o.kmWindows <- window
	}
	return nil
}

func (o *Observer) reportKeygenOutcome(ctx context.Context, outcome KeygenOutcomeIn) {
	ext := reportKeygenOutcomeExtrinsic(outcome.CeremonyID, outcome.Success, outcome.PubKey, outcome.Blamed)
	if !outcome.Success {
		// Structured fields (beyond go-log's sugared %v formatting) so a log
		// aggregator can index ceremony_id/blamed without parsing the message.
		common.Logger.Desugar().Warn("keygen ceremony failed",
			zap.Uint64("ceremony_id", outcome.CeremonyID),
			zap.Ints("blamed", outcome.Blamed),
		)
	}
	if err := o.client.SubmitSigned(ctx, ext); err != nil {
		common.Logger.Errorf("observer: report_keygen_outcome failed for ceremony %d: %v", outcome.CeremonyID, err)
	}
}

func (o *Observer) reportSigningOutcome(ctx context.Context, outcome SigningOutcomeIn) {
	if outcome.Success {
		if err := o.client.SubmitUnsigned(ctx, signatureSuccessExtrinsic(outcome.CeremonyID, outcome.Signature)); err != nil {
			common.Logger.Errorf("observer: signature_success failed for ceremony %d: %v", outcome.CeremonyID, err)
		}
		return
	}
	common.Logger.Errorf("observer: signing ceremony %d failed, blamed=%v", outcome.CeremonyID, outcome.Blamed)
	if err := o.client.SubmitSigned(ctx, reportSignatureFailedExtrinsic(outcome.CeremonyID, outcome.Blamed)); err != nil {
		common.Logger.Errorf("observer: report_signature_failed failed for ceremony %d: %v", outcome.CeremonyID, err)
	}
}
