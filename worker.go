// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"bytes"
	"math"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	minDuration = time.Duration(math.MinInt64)
	maxDuration = time.Duration(math.MaxInt64)
)

// run is the worker loop. Everything that touches the wheel, the bucket
// lists or a handle's links runs here and only here.
func (t *HWTimer) run() {
	atomic.StoreUint64(&t.workerGID, goroutineID())

	// every deadline in the system is relative to this point
	t.startTime = nanoTime()
	if t.startTime == 0 {
		// 0 is reserved as the "not started" marker
		t.startTime = 1
	}
	// unblock the callers waiting in start()
	close(t.startTimeInitialized)

	var tick int64
	for {
		deadline := t.waitForNextTick(tick)
		if deadline > 0 {
			idx := int(tick & t.mask)
			t.processCancelledTimeouts()
			b := &t.wheel[idx]
			t.transferTimeoutsToBuckets(tick)
			b.expireTimeouts(deadline)
			tick++
		}
		if atomic.LoadInt32(&t.workerState) != workerStarted {
			break
		}
	}

	// collect everything still on the wheel, then everything still in
	// ingress, so Stop can hand the unprocessed set back to the caller
	var unprocessed []*Timeout
	for i := range t.wheel {
		t.wheel[i].clearTimeouts(&unprocessed)
	}
	for {
		to := t.timeouts.pop()
		if to == nil {
			break
		}
		to.release()
		if !to.IsCancelled() {
			unprocessed = append(unprocessed, to)
		}
	}
	t.processCancelledTimeouts()

	t.unprocessed = unprocessed
	close(t.done)
}

// waitForNextTick sleeps until the next tick boundary and returns the
// measured elapsed time since startTime, which becomes the expiry
// deadline for the tick. Returns minDuration when woken by shutdown and
// -maxDuration if the elapsed time overflowed the clock range.
func (t *HWTimer) waitForNextTick(tick int64) time.Duration {
	deadline := t.tickDuration * time.Duration(tick+1)

	for {
		currentTime := nanoTime() - t.startTime
		// round the sleep up to a whole ms, otherwise the truncation
		// could wake us one ms before the tick boundary
		sleepMs := int64((deadline - currentTime + 999999) / time.Millisecond)

		if sleepMs <= 0 {
			if currentTime == minDuration {
				return -maxDuration
			}
			return currentTime
		}
		if runtime.GOOS == "windows" {
			// scheduling granularity is ~10ms there; sleeping a
			// non-multiple oversleeps badly
			sleepMs = sleepMs / 10 * 10
			if sleepMs == 0 {
				sleepMs = 1
			}
		}

		sleep := time.NewTimer(time.Duration(sleepMs) * time.Millisecond)
		select {
		case <-sleep.C:
		case <-t.wakeup:
			sleep.Stop()
			if atomic.LoadInt32(&t.workerState) == workerShutdown {
				return minDuration
			}
		}
	}
}

// transferTimeoutsToBuckets moves newly submitted timeouts from the
// ingress queue onto the wheel, at most transferredPerTick per call.
func (t *HWTimer) transferTimeoutsToBuckets(tick int64) {
	for i := 0; i < transferredPerTick; i++ {
		to := t.timeouts.pop()
		if to == nil {
			// all processed
			break
		}
		if to.state() == stCancelled {
			// cancelled before placement; the cancellation queue
			// returns its pending slot
			continue
		}

		calculated := int64(to.deadline / t.tickDuration)
		to.remainingRounds = (calculated - tick) / int64(len(t.wheel))

		ticks := calculated
		if ticks < tick {
			// don't let an overdue deadline wrap into a future slot
			ticks = tick
		}
		stopIndex := int(ticks & t.mask)
		t.wheel[stopIndex].addTimeout(to)
	}
}

// processCancelledTimeouts unlinks every handle whose owner called
// Cancel since the last tick.
func (t *HWTimer) processCancelledTimeouts() {
	for {
		to := t.cancelledTimeouts.pop()
		if to == nil {
			// all processed
			break
		}
		to.remove()
	}
}

// goroutineID returns the runtime id of the calling goroutine, parsed
// from the stack header ("goroutine N [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	i := bytes.IndexByte(b, ' ')
	if i <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
