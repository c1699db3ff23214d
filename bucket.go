// Copyright 2021 Intuitive Labs GmbH. All rights reserved.
//
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE.txt file in the root of the source
// tree.

package hwtimer

import (
	"time"
)

// bucket is one wheel slot: an intrusive doubly-linked list of Timeouts.
// The Timeout itself is the list node, so placing and removing handles
// never allocates. Buckets are touched only by the worker goroutine and
// need no locking.
type bucket struct {
	head *Timeout
	tail *Timeout
}

// addTimeout appends to at the tail. The handle must be detached.
func (b *bucket) addTimeout(to *Timeout) {
	if to.bucket != nil {
		BUG("addTimeout called on an entry already on a bucket: %p\n", to)
		return
	}
	to.bucket = b
	if b.head == nil {
		b.head = to
		b.tail = to
	} else {
		b.tail.next = to
		to.prev = b.tail
		b.tail = to
	}
}

// remove unlinks to and returns its successor, so callers walking the
// list are not invalidated. Nulls the links to help reclamation and
// gives the handle's pending slot back.
func (b *bucket) remove(to *Timeout) *Timeout {
	next := to.next
	if to.prev != nil {
		to.prev.next = next
	}
	if to.next != nil {
		to.next.prev = to.prev
	}
	if to == b.head {
		if to == b.tail {
			b.head = nil
			b.tail = nil
		} else {
			b.head = next
		}
	} else if to == b.tail {
		b.tail = to.prev
	}
	to.prev = nil
	to.next = nil
	to.bucket = nil
	to.release()
	return next
}

// expireTimeouts walks the bucket on its tick visit and fires every
// handle whose rounds ran out; deadline is the elapsed time measured by
// the worker for this tick.
func (b *bucket) expireTimeouts(deadline time.Duration) {
	for to := b.head; to != nil; {
		next := to.next
		if to.remainingRounds <= 0 {
			next = b.remove(to)
			if to.deadline <= deadline {
				to.expire()
			} else {
				// the handle landed in the wrong slot, must never happen
				BUG("timeout deadline %d > tick deadline %d\n",
					to.deadline, deadline)
			}
		} else if to.IsCancelled() {
			next = b.remove(to)
		} else {
			to.remainingRounds--
		}
		to = next
	}
}

// pollTimeout detaches and returns the head entry, nil on an empty bucket.
func (b *bucket) pollTimeout() *Timeout {
	head := b.head
	if head == nil {
		return nil
	}
	next := head.next
	if next == nil {
		b.head = nil
		b.tail = nil
	} else {
		b.head = next
		next.prev = nil
	}
	head.next = nil
	head.prev = nil
	head.bucket = nil
	return head
}

// clearTimeouts drains the bucket at shutdown, appending every handle
// that neither fired nor was cancelled to the unprocessed set.
func (b *bucket) clearTimeouts(unprocessed *[]*Timeout) {
	for {
		to := b.pollTimeout()
		if to == nil {
			return
		}
		to.release()
		if to.IsExpired() || to.IsCancelled() {
			continue
		}
		*unprocessed = append(*unprocessed, to)
	}
}
