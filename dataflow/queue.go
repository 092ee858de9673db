// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import "github.com/pktflow-project/pktflow/packet"

// Queue is an unbounded FIFO of packets.
//
// The zero value is ready to use.
type Queue struct {
	items []*packet.Packet
	head  int
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}

// Empty returns whether the queue is empty.
func (q *Queue) Empty() bool {
	return q.Len() <= 0
}

// Push appends packets to the back of the queue.
func (q *Queue) Push(pkts ...*packet.Packet) {
	q.items = append(q.items, pkts...)
}

// Peek returns the packet at the front without removing it or nil.
func (q *Queue) Peek() *packet.Packet {
	if q.Empty() {
		return nil
	}
	return q.items[q.head]
}

// Pop removes and returns the packet at the front or nil.
func (q *Queue) Pop() *packet.Packet {
	if q.Empty() {
		return nil
	}
	pkt := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items, q.head = q.items[:0], 0
	case q.head >= 64 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items, q.head = q.items[:n], 0
	}
	return pkt
}

// PopAll removes and returns every queued packet.
func (q *Queue) PopAll() []*packet.Packet {
	pkts := append([]*packet.Packet(nil), q.items[q.head:]...)
	clear(q.items)
	q.items, q.head = q.items[:0], 0
	return pkts
}
