// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"errors"
	"net"
	"sync"
)

// Link is a TCP endpoint shared by the nodes that registered
// the same (address, port) pair.
//
// Construct using a [*Registry].
type Link struct {
	// addr is the requested endpoint.
	addr string

	// dial is true when we connect to the simulator.
	dial bool

	// listener is the listening socket or nil for dialing links.
	listener net.Listener

	// conn is the connected socket or nil.
	conn net.Conn

	// channels maps node identifiers to their channels.
	channels map[int]*Channel

	// order contains the node identifiers in registration order.
	order []int

	// acc accumulates inbound bytes not forming a complete frame yet.
	acc []byte

	// connected is true once a peer is connected.
	connected bool

	// eod is true once we received end-of-data from the peer.
	eod bool

	// terminated is true once the link has been cleaned up.
	terminated bool

	// mu protects listener and conn.
	mu sync.Mutex
}

func newLink(addr string, dial bool, listener net.Listener) *Link {
	return &Link{
		addr:     addr,
		dial:     dial,
		listener: listener,
		channels: make(map[int]*Channel),
	}
}

// Addr returns the requested endpoint.
func (lnk *Link) Addr() string {
	return lnk.addr
}

// Dial returns whether the link dials the simulator.
func (lnk *Link) Dial() bool {
	return lnk.dial
}

// ListenAddr returns the address the link is listening on or
// nil for dialing links. Useful when the requested port is zero.
func (lnk *Link) ListenAddr() net.Addr {
	if lnk.listener == nil {
		return nil
	}
	return lnk.listener.Addr()
}

// NodeIDs returns the nodes attached to the link in registration order.
func (lnk *Link) NodeIDs() []int {
	return append([]int(nil), lnk.order...)
}

func (lnk *Link) attach(ch *Channel) error {
	if _, found := lnk.channels[ch.nodeID]; found {
		return ErrNodeRegistered
	}
	lnk.channels[ch.nodeID] = ch
	lnk.order = append(lnk.order, ch.nodeID)
	return nil
}

// broadcast delivers the item to every channel in registration order.
func (lnk *Link) broadcast(item Item) {
	for _, id := range lnk.order {
		lnk.channels[id].deliver(item)
	}
}

// setConn records the connected socket.
func (lnk *Link) setConn(conn net.Conn) {
	lnk.mu.Lock()
	lnk.conn = conn
	lnk.mu.Unlock()
	lnk.connected = true
}

// Close closes the listener and the connection, if any. It is
// safe to call Close more than once.
func (lnk *Link) Close() error {
	lnk.mu.Lock()
	listener, conn := lnk.listener, lnk.conn
	lnk.conn = nil
	lnk.mu.Unlock()

	var errv []error
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errv = append(errv, err)
		}
	}
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errv = append(errv, err)
		}
	}
	return errors.Join(errv...)
}
