// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"sync/atomic"
	"testing"
	"time"
)

// checkList verifies the well-formedness of a bucket's linked list and
// returns the number of linked entries.
func checkList(t *testing.T, b *bucket) int {
	t.Helper()
	if (b.head == nil) != (b.tail == nil) {
		t.Fatalf("bucket %p: head %p / tail %p mismatch\n",
			b, b.head, b.tail)
	}
	n := 0
	var prev *Timeout
	for to := b.head; to != nil; to = to.next {
		if to.bucket != b {
			t.Fatalf("entry %d (%p): bucket back-pointer %p != %p\n",
				n, to, to.bucket, b)
		}
		if to.prev != prev {
			t.Fatalf("entry %d (%p): prev %p, expected %p\n",
				n, to, to.prev, prev)
		}
		prev = to
		n++
		if n > 1<<20 {
			t.Fatalf("bucket %p: list does not terminate\n", b)
		}
	}
	if b.tail != prev {
		t.Fatalf("bucket %p: tail %p, expected %p\n", b, b.tail, prev)
	}
	return n
}

func TestBucketAddRemove(t *testing.T) {
	ht := newTestTimer(t, 10*time.Millisecond, 8)
	defer ht.Stop()

	b := &ht.wheel[0]
	tos := make([]*Timeout, 5)
	for i := range tos {
		tos[i] = acceptTimeout(ht, time.Duration(i)*time.Millisecond)
		b.addTimeout(tos[i])
		if n := checkList(t, b); n != i+1 {
			t.Fatalf("after add %d: %d entries linked\n", i, n)
		}
	}
	if ht.PendingTimeouts() != 5 {
		t.Fatalf("pending %d, expected 5\n", ht.PendingTimeouts())
	}

	// middle, head, tail, then the rest
	order := []int{2, 0, 4, 1, 3}
	for k, i := range order {
		next := tos[i].next
		if got := b.remove(tos[i]); got != next {
			t.Errorf("remove %d returned %p, expected successor %p\n",
				i, got, next)
		}
		if tos[i].next != nil || tos[i].prev != nil || tos[i].bucket != nil {
			t.Errorf("entry %d not fully detached: n %p p %p b %p\n",
				i, tos[i].next, tos[i].prev, tos[i].bucket)
		}
		if n := checkList(t, b); n != len(tos)-k-1 {
			t.Fatalf("after remove %d: %d entries linked\n", i, n)
		}
	}
	if b.head != nil || b.tail != nil {
		t.Fatalf("bucket not empty: head %p tail %p\n", b.head, b.tail)
	}
	if ht.PendingTimeouts() != 0 {
		t.Fatalf("pending %d after all removes, expected 0\n",
			ht.PendingTimeouts())
	}
}

func TestBucketExpireRounds(t *testing.T) {
	ht := newTestTimer(t, 10*time.Millisecond, 8)
	defer ht.Stop()

	var fired int32
	b := &ht.wheel[0]

	ready := acceptTimeout(ht, 5*time.Millisecond)
	ready.task = func(to *Timeout) { atomic.AddInt32(&fired, 1) }
	ready.remainingRounds = 0

	waiting := acceptTimeout(ht, 5*time.Millisecond)
	waiting.task = func(to *Timeout) { atomic.AddInt32(&fired, 100) }
	waiting.remainingRounds = 2

	cancelled := acceptTimeout(ht, 5*time.Millisecond)
	cancelled.task = func(to *Timeout) { atomic.AddInt32(&fired, 100) }
	cancelled.remainingRounds = 2
	if !cancelled.Cancel() {
		t.Fatalf("cancel failed on a fresh handle\n")
	}

	b.addTimeout(ready)
	b.addTimeout(waiting)
	b.addTimeout(cancelled)

	b.expireTimeouts(10 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("after 1st visit fired=%d, expected 1\n", got)
	}
	if !ready.IsExpired() {
		t.Errorf("ready handle not expired\n")
	}
	if n := checkList(t, b); n != 1 {
		t.Fatalf("after 1st visit %d entries linked, expected 1"+
			" (cancelled handle must be unlinked)\n", n)
	}
	if waiting.remainingRounds != 1 {
		t.Fatalf("remaining rounds %d, expected 1\n",
			waiting.remainingRounds)
	}

	b.expireTimeouts(90 * time.Millisecond)
	if waiting.remainingRounds != 0 {
		t.Fatalf("remaining rounds %d after 2nd visit, expected 0\n",
			waiting.remainingRounds)
	}
	b.expireTimeouts(170 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 101 {
		t.Fatalf("after 3rd visit fired=%d, expected 101\n", got)
	}
	if n := checkList(t, b); n != 0 {
		t.Fatalf("bucket not empty after all visits: %d entries\n", n)
	}
	if ht.PendingTimeouts() != 0 {
		t.Fatalf("pending %d, expected 0\n", ht.PendingTimeouts())
	}
}

func TestBucketClearTimeouts(t *testing.T) {
	ht := newTestTimer(t, 10*time.Millisecond, 8)
	defer ht.Stop()

	b := &ht.wheel[1]
	live1 := acceptTimeout(ht, time.Millisecond)
	live2 := acceptTimeout(ht, 2*time.Millisecond)
	cancelled := acceptTimeout(ht, 3*time.Millisecond)
	b.addTimeout(live1)
	b.addTimeout(cancelled)
	b.addTimeout(live2)
	cancelled.Cancel()

	var unprocessed []*Timeout
	b.clearTimeouts(&unprocessed)
	if len(unprocessed) != 2 {
		t.Fatalf("unprocessed %d entries, expected 2\n",
			len(unprocessed))
	}
	if unprocessed[0] != live1 || unprocessed[1] != live2 {
		t.Fatalf("unprocessed = %p %p, expected %p %p\n",
			unprocessed[0], unprocessed[1], live1, live2)
	}
	if b.head != nil || b.tail != nil {
		t.Fatalf("bucket not empty after clear\n")
	}
	if ht.PendingTimeouts() != 0 {
		t.Fatalf("pending %d after clear, expected 0\n",
			ht.PendingTimeouts())
	}
}
