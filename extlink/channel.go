// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"slices"
	"sync"

	"github.com/pktflow-project/pktflow/packet"
)

// Item is something a [*Channel] delivers to its node: either
// a packet or the end-of-data signal.
type Item struct {
	// Packet is the received packet, nil when EOD is true.
	Packet *packet.Packet

	// EOD indicates that the simulator will not send more data.
	EOD bool
}

// Channel connects a single node to its [*Link].
//
// Construct using [*Registry.Register] or [*Registry.RegisterDial].
type Channel struct {
	// nodeID is the node owning the channel.
	nodeID int

	// addr is the endpoint of the link owning the channel.
	addr string

	// inbound contains items for the node.
	inbound []Item

	// outbound contains packets for the simulator.
	outbound []*packet.Packet

	// closed is set once the link has been cleaned up.
	closed bool

	// dropped counts the outbound packets that will never be sent.
	dropped int

	// wakeup is signalled every time outbound grows.
	wakeup chan<- struct{}

	// mu provides mutual exclusion.
	mu sync.Mutex
}

func newChannel(nodeID int, addr string, wakeup chan<- struct{}) *Channel {
	return &Channel{
		nodeID: nodeID,
		addr:   addr,
		wakeup: wakeup,
	}
}

// NodeID returns the node owning the channel.
func (c *Channel) NodeID() int {
	return c.nodeID
}

// Addr returns the endpoint of the link owning the channel.
func (c *Channel) Addr() string {
	return c.addr
}

// Poll returns the next inbound item, if any, without blocking.
func (c *Channel) Poll() (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) <= 0 {
		return Item{}, false
	}
	item := c.inbound[0]
	c.inbound[0] = Item{}
	c.inbound = c.inbound[1:]
	return item, true
}

// Send queues a packet for the simulator without blocking. Once
// the link has been cleaned up, packets are dropped and counted.
func (c *Channel) Send(pkt *packet.Packet) {
	c.mu.Lock()
	if c.closed {
		c.dropped++
		c.mu.Unlock()
		return
	}
	c.outbound = append(c.outbound, pkt)
	c.mu.Unlock()

	select {
	case c.wakeup <- struct{}{}:
	default:
		// a wakeup is already pending
	}
}

// Pending returns the number of queued inbound items.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inbound)
}

// Dropped returns the number of outbound packets dropped because
// the link was cleaned up before they could be written.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// deliver queues an inbound item for the node.
func (c *Channel) deliver(item Item) {
	c.mu.Lock()
	c.inbound = append(c.inbound, item)
	c.mu.Unlock()
}

// drain removes and returns all the queued outbound packets.
func (c *Channel) drain() []*packet.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	pkts := slices.Clip(c.outbound)
	c.outbound = nil
	return pkts
}

// requeue puts back packets that drain returned but were not written.
func (c *Channel) requeue(pkts []*packet.Packet) {
	c.mu.Lock()
	c.outbound = append(slices.Clip(pkts), c.outbound...)
	c.mu.Unlock()
}

// terminate stops accepting outbound packets and discards the queued
// ones, returning how many were discarded.
func (c *Channel) terminate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := len(c.outbound)
	c.closed = true
	c.dropped += count
	c.outbound = nil
	return count
}
