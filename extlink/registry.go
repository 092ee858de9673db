// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pktflow-project/pktflow/netipx"
	"github.com/rbmk-project/common/errclass"
)

// Registry maps (address, port) endpoints to [*Link] instances.
//
// The zero value is ready to use.
type Registry struct {
	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	// byAddr maps the requested endpoint to its link.
	byAddr map[string]*Link

	// links contains links in creation order.
	links []*Link

	// wakeup is shared by all the channels.
	wakeup chan struct{}

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// Register attaches a new channel for nodeID to the listening link
// bound to the given address and port, creating the link and binding
// its listener if needed.
func (r *Registry) Register(address string, port int, nodeID int) (*Channel, error) {
	return r.register(address, port, nodeID, false)
}

// RegisterDial is like [*Registry.Register] but the link dials the given
// address and port once the [*Dispatcher] starts.
func (r *Registry) RegisterDial(address string, port int, nodeID int) (*Channel, error) {
	return r.register(address, port, nodeID, true)
}

func (r *Registry) register(address string, port int, nodeID int, dial bool) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()

	addr := netipx.Endpoint(address, port)
	lnk := r.byAddr[addr]
	switch {
	case lnk != nil && lnk.dial != dial:
		return nil, fmt.Errorf("%w: %s", ErrModeMismatch, addr)

	case lnk == nil && dial:
		lnk = newLink(addr, true, nil)
		r.add(lnk)

	case lnk == nil:
		listener, err := newListenConfig().Listen(context.Background(), "tcp", addr)
		if r.Logger != nil {
			r.Logger.Info(
				"listenDone",
				slog.String("addr", addr),
				slog.Any("err", err),
				slog.String("errClass", errclass.New(err)),
			)
		}
		if err != nil {
			return nil, err
		}
		lnk = newLink(addr, false, listener)
		r.add(lnk)
	}

	ch := newChannel(nodeID, addr, r.wakeup)
	if err := lnk.attach(ch); err != nil {
		return nil, fmt.Errorf("%w: node %d on %s", err, nodeID, addr)
	}
	return ch, nil
}

func (r *Registry) init() {
	if r.byAddr == nil {
		r.byAddr = make(map[string]*Link)
	}
	if r.wakeup == nil {
		r.wakeup = make(chan struct{}, 1)
	}
}

func (r *Registry) add(lnk *Link) {
	r.byAddr[lnk.addr] = lnk
	r.links = append(r.links, lnk)
}

// Links returns the registered links in creation order.
func (r *Registry) Links() []*Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Link(nil), r.links...)
}

// Len returns the number of registered links.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// wakeupChan returns the channel signalled by [*Channel.Send].
func (r *Registry) wakeupChan() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()
	return r.wakeup
}
