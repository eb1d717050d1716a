// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package ceremony

import (
	"fmt"

	"github.com/meridianchain/validator-engine/party"
)

// Error wraps a protocol failure with enough context to log and to route blame.
// culprits is empty for a ceremony-scope failure that cannot be pinned on any
// single participant (§4.3 "if no majority exists the ceremony fails with no
// specific blame").
type Error struct {
	cause    error
	task     string
	stage    int
	culprits []*party.ID
}

func NewError(cause error, task string, stage int, culprits ...*party.ID) *Error {
	return &Error{cause: cause, task: task, stage: stage, culprits: culprits}
}

func (e *Error) Unwrap() error       { return e.cause }
func (e *Error) Cause() error        { return e.cause }
func (e *Error) Task() string        { return e.task }
func (e *Error) Stage() int          { return e.stage }
func (e *Error) Culprits() []*party.ID { return e.culprits }

func (e *Error) Error() string {
	if e == nil || e.cause == nil {
		return "ceremony: nil error"
	}
	if len(e.culprits) > 0 {
		return fmt.Sprintf("task %s, stage %d, culprits %v: %s", e.task, e.stage, e.culprits, e.cause.Error())
	}
	return fmt.Sprintf("task %s, stage %d: %s", e.task, e.stage, e.cause.Error())
}
