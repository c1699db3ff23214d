// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"github.com/intuitivelabs/slog"
)

// Log is the generic package logger.
// The log level and options can be changed at runtime, e.g.:
// slog.SetLevel(&hwtimer.Log, slog.LDBG).
var Log slog.Log = slog.New(slog.LNOTICE, slog.LOptNone, slog.LStdErr)

// DBGon returns true if debug messages are enabled.
func DBGon() bool {
	return Log.DBGon()
}

// DBG logs a debug message.
func DBG(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, "DBG: hwtimer: ", f, a...)
}

// WARNon returns true if warning messages are enabled.
func WARNon() bool {
	return Log.WARNon()
}

// WARN logs a warning message.
func WARN(f string, a ...interface{}) {
	Log.LLog(slog.LWARN, 1, "WARNING: hwtimer: ", f, a...)
}

// ERRon returns true if error messages are enabled.
func ERRon() bool {
	return Log.ERRon()
}

// ERR logs an error message.
func ERR(f string, a ...interface{}) {
	Log.LLog(slog.LERR, 1, "ERROR: hwtimer: ", f, a...)
}

// BUG logs an internal assertion failure.
func BUG(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, "BUG: hwtimer: ", f, a...)
}
