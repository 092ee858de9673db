// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pktflow-project/pktflow/packet"
	"github.com/pktflow-project/pktflow/wire"
	"github.com/rbmk-project/common/errclass"
	"github.com/rbmk-project/common/runtimex"
)

// DefaultOutboundDelay is the delay written into outbound frames
// when [Dispatcher.OutboundDelay] is zero.
const DefaultOutboundDelay = 10

// DefaultDialRetry is the interval between dial attempts used
// when [Dispatcher.DialRetry] is zero.
const DefaultDialRetry = 250 * time.Millisecond

// readBufferSize is the size of the per-connection read buffer.
const readBufferSize = 4096

// Dispatcher moves data between the sockets of the registered links
// and their channels.
//
// Construct using [NewDispatcher].
type Dispatcher struct {
	// DialRetry is the OPTIONAL interval between attempts to
	// dial the simulator. If zero, we use [DefaultDialRetry].
	DialRetry time.Duration

	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	// OutboundDelay is the OPTIONAL delay written into outbound frames.
	// If zero, we use [DefaultOutboundDelay].
	OutboundDelay uint64

	// events receives events from the helper goroutines.
	events chan event

	// done is closed when the loop exits.
	done chan struct{}

	// links contains the links to serve.
	links []*Link

	// pending is the number of links not connected yet.
	pending int

	// ready is closed when every link is connected.
	ready chan struct{}

	// stop is closed by Stop.
	stop chan struct{}

	// stopOnce ensures we close stop just once.
	stopOnce sync.Once

	// wakeup is signalled when outbound packets are queued.
	wakeup <-chan struct{}

	// wg tracks the helper goroutines.
	wg sync.WaitGroup
}

// NewDispatcher creates a [*Dispatcher] serving the links
// currently registered with the given [*Registry].
func NewDispatcher(reg *Registry) *Dispatcher {
	d := &Dispatcher{
		events: make(chan event),
		done:   make(chan struct{}),
		links:  reg.Links(),
		ready:  make(chan struct{}),
		stop:   make(chan struct{}),
		wakeup: reg.wakeupChan(),
	}
	d.pending = len(d.links)
	if d.pending <= 0 {
		close(d.ready)
	}
	return d
}

// Ready returns a channel closed once every link is connected.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// WaitConnected blocks until every link is connected or the
// context is done, in which case it returns the context error.
func (d *Dispatcher) WaitConnected(ctx context.Context) error {
	select {
	case <-d.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks [*Dispatcher.Run] to flush queued packets, send end-of-data
// to every connected peer, and return. It is safe to call Stop more
// than once and before Run.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// eventKind is the kind of an [event].
type eventKind int

const (
	// eventConnect carries a newly connected socket.
	eventConnect eventKind = iota

	// eventData carries bytes read from a socket.
	eventData

	// eventClosed indicates a read error or EOF.
	eventClosed
)

// event is emitted by helper goroutines.
type event struct {
	kind eventKind
	link *Link
	conn net.Conn
	data []byte
	err  error
}

// emit sends an event to the loop unless the loop has exited.
func (d *Dispatcher) emit(ev event) bool {
	select {
	case d.events <- ev:
		return true
	case <-d.done:
		return false
	}
}

// Run runs the event loop until the context is done or [*Dispatcher.Stop]
// is called, in which case it returns nil, or until a link fails
// fatally, in which case it returns a [*LinkError]. Run must be
// called at most once.
func (d *Dispatcher) Run(ctx context.Context) error {
	hctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, lnk := range d.links {
		d.wg.Add(1)
		if lnk.dial {
			go d.dialLoop(hctx, lnk)
			continue
		}
		go d.acceptLoop(hctx, lnk)
	}

	err := d.loop(ctx)
	d.shutdown(ctx)
	close(d.done)
	cancel()
	d.wg.Wait()
	return err
}

func (d *Dispatcher) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-d.stop:
			return nil

		case <-d.wakeup:
			d.flushAll(ctx)

		case ev := <-d.events:
			if err := d.handle(ctx, ev); err != nil {
				d.logFatal(ctx, ev.link, err)
				return &LinkError{Addr: ev.link.addr, Err: err}
			}
		}
	}
}

func (d *Dispatcher) logFatal(ctx context.Context, lnk *Link, err error) {
	if d.Logger != nil {
		d.Logger.ErrorContext(
			ctx,
			"linkFailed",
			slog.String("addr", lnk.addr),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
		)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev event) error {
	switch ev.kind {
	case eventConnect:
		return d.onConnect(ctx, ev.link, ev.conn)
	case eventData:
		return d.onData(ctx, ev.link, ev.data)
	default:
		d.onClosed(ctx, ev.link, ev.err)
		return nil
	}
}

// acceptLoop accepts connections until the listener is closed.
func (d *Dispatcher) acceptLoop(ctx context.Context, lnk *Link) {
	defer d.wg.Done()
	for {
		conn, err := lnk.listener.Accept()
		if d.Logger != nil {
			d.Logger.InfoContext(
				ctx,
				"acceptDone",
				slog.String("addr", lnk.addr),
				slog.Any("err", err),
				slog.String("errClass", errclass.New(err)),
			)
		}
		if err != nil {
			return
		}
		if !d.emit(event{kind: eventConnect, link: lnk, conn: WrapConn(ctx, d.Logger, conn)}) {
			conn.Close()
			return
		}
	}
}

// dialLoop dials the link endpoint until it succeeds or the context is done.
func (d *Dispatcher) dialLoop(ctx context.Context, lnk *Link) {
	defer d.wg.Done()
	retry := d.DialRetry
	if retry <= 0 {
		retry = DefaultDialRetry
	}
	dialer := &net.Dialer{}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", lnk.addr)
		if d.Logger != nil {
			d.Logger.InfoContext(
				ctx,
				"dialDone",
				slog.String("addr", lnk.addr),
				slog.Any("err", err),
				slog.String("errClass", errclass.New(err)),
			)
		}
		if err == nil {
			if !d.emit(event{kind: eventConnect, link: lnk, conn: WrapConn(ctx, d.Logger, conn)}) {
				conn.Close()
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

// readLoop reads from the connection until it fails.
func (d *Dispatcher) readLoop(lnk *Link, conn net.Conn) {
	defer d.wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		count, err := conn.Read(buf)
		if count > 0 {
			if !d.emit(event{kind: eventData, link: lnk, data: bytes.Clone(buf[:count])}) {
				return
			}
		}
		if err != nil {
			d.emit(event{kind: eventClosed, link: lnk, err: err})
			return
		}
	}
}

func (d *Dispatcher) onConnect(ctx context.Context, lnk *Link, conn net.Conn) error {
	if lnk.connected || lnk.terminated {
		conn.Close()
		return ErrAlreadyConnected
	}
	lnk.setConn(conn)
	d.wg.Add(1)
	go d.readLoop(lnk, conn)

	if d.Logger != nil {
		d.Logger.InfoContext(
			ctx,
			"linkConnected",
			slog.String("addr", lnk.addr),
			slog.String("remoteAddr", addrString(conn.RemoteAddr())),
			slog.Any("nodeIDs", lnk.order),
		)
	}
	d.pending--
	runtimex.Assert(d.pending >= 0, "extlink: more connections than links")
	if d.pending == 0 {
		close(d.ready)
	}

	// packets may have been queued before the peer connected
	d.flush(ctx, lnk)
	return nil
}

func (d *Dispatcher) onData(ctx context.Context, lnk *Link, data []byte) error {
	if lnk.terminated || lnk.eod {
		return nil
	}
	lnk.acc = append(lnk.acc, data...)
	frames, rem, err := wire.DecodeInbound(lnk.acc)
	lnk.acc = rem
	for _, frame := range frames {
		d.route(ctx, lnk, frame)
		if lnk.eod {
			lnk.acc = nil
			return nil
		}
	}
	if err != nil {
		d.cleanup(ctx, lnk, err)
		return err
	}
	return nil
}

// route delivers a decoded frame to the proper channel(s).
func (d *Dispatcher) route(ctx context.Context, lnk *Link, frame wire.Frame) {
	switch frame := frame.(type) {
	case *wire.DataFrame:
		ch := lnk.channels[int(frame.NodeID)]
		if ch == nil {
			if d.Logger != nil {
				d.Logger.WarnContext(
					ctx,
					"frameDropped",
					slog.String("addr", lnk.addr),
					slog.Int("nodeID", int(frame.NodeID)),
					slog.Int("length", len(frame.Payload)),
				)
			}
			return
		}
		pkt := packet.New(frame.Payload, int64(frame.Delay))
		pkt.SetMeta(packet.MetaSourceID, frame.SourceID)
		ch.deliver(Item{Packet: pkt})
		if d.Logger != nil {
			d.Logger.DebugContext(
				ctx,
				"frameDecoded",
				slog.String("addr", lnk.addr),
				slog.Int("nodeID", int(frame.NodeID)),
				slog.Int("sourceID", int(frame.SourceID)),
				slog.Uint64("delay", frame.Delay),
				slog.Int("length", len(frame.Payload)),
			)
		}

	case wire.EndOfData:
		lnk.broadcast(Item{EOD: true})
		lnk.eod = true
		if d.Logger != nil {
			d.Logger.InfoContext(ctx, "endOfData", slog.String("addr", lnk.addr))
		}

	case wire.NoData:
		// nothing to do
	}
}

func (d *Dispatcher) onClosed(ctx context.Context, lnk *Link, err error) {
	if lnk.terminated {
		return
	}
	d.cleanup(ctx, lnk, err)
}

// cleanup terminates the link and tells its nodes no more data is coming.
func (d *Dispatcher) cleanup(ctx context.Context, lnk *Link, reason error) {
	lnk.terminated = true
	lnk.acc = nil
	closeErr := lnk.Close()
	if !lnk.eod {
		lnk.broadcast(Item{EOD: true})
		lnk.eod = true
	}
	for _, id := range lnk.order {
		count := lnk.channels[id].terminate()
		if count > 0 && d.Logger != nil {
			d.Logger.DebugContext(
				ctx,
				"packetDropped",
				slog.String("addr", lnk.addr),
				slog.Int("nodeID", id),
				slog.Int("count", count),
			)
		}
	}
	if d.Logger != nil {
		d.Logger.InfoContext(
			ctx,
			"linkCleanup",
			slog.String("addr", lnk.addr),
			slog.Any("reason", reason),
			slog.String("errClass", errclass.New(reason)),
			slog.Any("err", closeErr),
		)
	}
}

// flushAll writes the queued outbound packets of every link.
func (d *Dispatcher) flushAll(ctx context.Context) {
	for _, lnk := range d.links {
		d.flush(ctx, lnk)
	}
}

// flush writes the queued outbound packets of the link, if connected.
func (d *Dispatcher) flush(ctx context.Context, lnk *Link) {
	if !lnk.connected || lnk.terminated {
		return
	}
	for _, id := range lnk.order {
		ch := lnk.channels[id]
		pkts := ch.drain()
		for idx, pkt := range pkts {
			if err := d.write(lnk, d.encode(pkt)); err != nil {
				ch.requeue(pkts[idx:])
				d.cleanup(ctx, lnk, fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (d *Dispatcher) encode(pkt *packet.Packet) wire.Frame {
	delay := d.OutboundDelay
	if delay == 0 {
		delay = DefaultOutboundDelay
	}
	return &wire.OutboundFrame{
		Delay:   delay,
		Proto:   pkt.EtherType(),
		Payload: pkt.Payload,
	}
}

func (d *Dispatcher) write(lnk *Link, frame wire.Frame) error {
	data, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	lnk.mu.Lock()
	conn := lnk.conn
	lnk.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	_, err = conn.Write(data)
	return err
}

// shutdown flushes pending packets, sends end-of-data, and closes every link.
func (d *Dispatcher) shutdown(ctx context.Context) {
	d.flushAll(ctx)
	for _, lnk := range d.links {
		if lnk.terminated {
			continue
		}
		if lnk.connected {
			if err := d.write(lnk, wire.EndOfData{}); err != nil && !errors.Is(err, net.ErrClosed) && d.Logger != nil {
				d.Logger.WarnContext(
					ctx,
					"endOfDataFailed",
					slog.String("addr", lnk.addr),
					slog.Any("err", err),
					slog.String("errClass", errclass.New(err)),
				)
			}
		}
		lnk.terminated = true
		lnk.Close()
	}
}
