// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package common

import (
	logging "github.com/ipfs/go-log"
)

// Logger is shared by every package in the engine. Verbosity is controlled
// per-subsystem via SetLogLevel, e.g. SetLogLevel("debug") during tests.
var Logger = logging.Logger("validator-engine")

// SetLogLevel adjusts the verbosity of the shared logger. Valid levels are
// "debug", "info", "warn", "error", "dpanic", "panic" and "fatal".
func SetLogLevel(level string) error {
	return logging.SetLogLevel("validator-engine", level)
}
