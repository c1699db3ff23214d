// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"runtime"
	"sync/atomic"
)

// instanceCountLimit is the number of live timers past which a single
// error is logged: the timer is meant to be shared, not per-connection.
const instanceCountLimit = 64

var (
	instanceCounter        int32  // atomic, live HWTimer instances
	warnedTooManyInstances uint32 // atomic, error logged once
)

// trackInstance registers a newly built timer with the process-wide
// accounting and arms the finalizer safety net.
func trackInstance(t *HWTimer) {
	if atomic.AddInt32(&instanceCounter, 1) > instanceCountLimit &&
		atomic.CompareAndSwapUint32(&warnedTooManyInstances, 0, 1) {
		reportTooManyInstances()
	}
	runtime.SetFinalizer(t, finalizeTimer)
}

// releaseInstance undoes trackInstance; called exactly once, on the
// first transition to shutdown.
func (t *HWTimer) releaseInstance() {
	atomic.AddInt32(&instanceCounter, -1)
	runtime.SetFinalizer(t, nil)
}

func reportTooManyInstances() {
	if ERRon() {
		ERR("you are creating too many HWTimer instances; HWTimer is"+
			" a shared resource that must be reused across the"+
			" process, so that only a few instances are created"+
			" (more than %d live now)\n", instanceCountLimit)
	}
}

// finalizeTimer is the safety net for timers that were dropped without
// Stop: it keeps the instance counter honest and, with leak detection
// on, reports the leak. Scope-based cleanup (defer t.Stop()) is the
// intended lifetime; this only catches the forgotten case.
func finalizeTimer(t *HWTimer) {
	if atomic.SwapInt32(&t.workerState, workerShutdown) != workerShutdown {
		atomic.AddInt32(&instanceCounter, -1)
		if t.leak && ERRon() {
			ERR("HWTimer garbage collected before Stop() was called;"+
				" %d timeouts were still pending\n",
				t.PendingTimeouts())
		}
	}
}
