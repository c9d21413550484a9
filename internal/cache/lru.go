// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import "time"

// node is an entry in a shard's recency list. It carries the value and
// its expiry so a shard needs only one map lookup per operation.
type node[V any] struct {
	key     string
	value   V
	expires time.Time
	prev    *node[V]
	next    *node[V]
}

// recency is a doubly-linked list ordered from most to least recently
// used. It is not synchronised; the owning shard holds the lock.
type recency[V any] struct {
	head *node[V]
	tail *node[V]
	len  int
}

func (l *recency[V]) pushFront(n *node[V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *recency[V]) moveToFront(n *node[V]) {
	if n == l.head {
		return
	}
	l.remove(n)
	l.pushFront(n)
}

func (l *recency[V]) remove(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}

// oldest returns the least recently used node, or nil.
func (l *recency[V]) oldest() *node[V] {
	return l.tail
}

func (l *recency[V]) clear() {
	l.head, l.tail, l.len = nil, nil, 0
}
