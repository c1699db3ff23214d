// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"sync/atomic"
	"unsafe"
)

// mpscNode is a single-use queue link. Nodes are not intrusive in the
// Timeout itself: a handle can sit on the ingress and the cancellation
// queue at the same time.
type mpscNode struct {
	next unsafe.Pointer // *mpscNode, written by the pushing producer
	to   *Timeout
}

// mpscQueue is an unbounded multi-producer single-consumer queue
// (Vyukov's non-blocking MPSC construction). push() is wait-free and may
// be called from any goroutine; pop() must only ever be called from the
// single consumer (the worker goroutine).
type mpscQueue struct {
	head unsafe.Pointer // *mpscNode, most recently pushed node
	tail *mpscNode      // consumer position, always a consumed node or &stub
	stub mpscNode
}

func (q *mpscQueue) init() {
	q.head = unsafe.Pointer(&q.stub)
	q.tail = &q.stub
}

// push enqueues to without blocking. Safe for concurrent producers.
func (q *mpscQueue) push(to *Timeout) {
	n := &mpscNode{to: to}
	prev := (*mpscNode)(atomic.SwapPointer(&q.head, unsafe.Pointer(n)))
	// the queue is momentarily cut here; the consumer sees it as empty
	// until the link below is published
	atomic.StorePointer(&prev.next, unsafe.Pointer(n))
}

// pop dequeues one element or returns nil if the queue is empty (or if a
// producer is mid-push; the element then shows up on a later pop).
// Consumer-only.
func (q *mpscQueue) pop() *Timeout {
	tail := q.tail
	next := (*mpscNode)(atomic.LoadPointer(&tail.next))
	if tail == &q.stub {
		if next == nil {
			return nil
		}
		// skip over the stub
		q.tail = next
		tail = next
		next = (*mpscNode)(atomic.LoadPointer(&tail.next))
	}
	if next != nil {
		q.tail = next
		to := tail.to
		tail.to = nil
		return to
	}
	head := (*mpscNode)(atomic.LoadPointer(&q.head))
	if tail != head {
		// a producer swapped head but has not linked prev.next yet
		return nil
	}
	// single element left: re-insert the stub behind it so the consumer
	// always keeps one node to stand on
	atomic.StorePointer(&q.stub.next, nil)
	prev := (*mpscNode)(atomic.SwapPointer(&q.head, unsafe.Pointer(&q.stub)))
	atomic.StorePointer(&prev.next, unsafe.Pointer(&q.stub))

	next = (*mpscNode)(atomic.LoadPointer(&tail.next))
	if next != nil {
		q.tail = next
		to := tail.to
		tail.to = nil
		return to
	}
	return nil
}
