// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/pktflow-project/pktflow/closepool"
	"github.com/pktflow-project/pktflow/extlink"
	"github.com/pktflow-project/pktflow/netipx"
	"golang.org/x/sync/errgroup"
)

// DefaultOnlineIdleBackoff is the idle backoff used when external
// links exist and [Processor.IdleBackoff] is zero.
const DefaultOnlineIdleBackoff = time.Millisecond

// Processor owns the graph and runs it.
//
// Construct using [NewProcessor].
type Processor struct {
	HookableBase

	// ConnectTimeout is the OPTIONAL maximum time to wait for every
	// external link to be connected. If zero, we wait forever.
	ConnectTimeout time.Duration

	// DialAddrs contains OPTIONAL "host:port" endpoints that are
	// dialed rather than listened on.
	DialAddrs []string

	// IdleBackoff is the OPTIONAL sleep after every ready node has
	// processed once without making progress. If zero, we do not
	// sleep when running offline and sleep [DefaultOnlineIdleBackoff]
	// otherwise. A negative value disables sleeping.
	IdleBackoff time.Duration

	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	// OutboundDelay is the OPTIONAL delay written into frames sent
	// to the simulator. If zero, we use [extlink.DefaultOutboundDelay].
	OutboundDelay uint64

	// links is the immutable link table.
	links Links

	// order contains the node IDs in ascending order.
	order []int

	// registry contains the external links.
	registry *extlink.Registry

	// states maps node IDs to their state.
	states map[int]*NodeState
}

// NewProcessor validates the nodes and the links and creates a [*Processor].
func NewProcessor(nodes map[int]Node, links Links) (*Processor, error) {
	p := &Processor{
		links:    links,
		order:    slices.Sorted(maps.Keys(nodes)),
		registry: &extlink.Registry{},
		states:   make(map[int]*NodeState, len(nodes)),
	}
	if p.links == nil {
		p.links = Links{}
	}
	for _, id := range p.order {
		node := nodes[id]
		switch {
		case id <= 0:
			return nil, fmt.Errorf("%w: node ID %d is not positive", ErrContract, id)
		case node == nil:
			return nil, fmt.Errorf("%w: node %d is nil", ErrContract, id)
		case node.ID() != id:
			return nil, fmt.Errorf("%w: node %d reports ID %d", ErrContract, id, node.ID())
		case node.NumInputs() < 0 || node.NumOutputs() < 0:
			return nil, fmt.Errorf("%w: node %d has negative port counts", ErrContract, id)
		}
		p.states[id] = NewNodeState(node)
	}
	if err := p.links.validate(nodes); err != nil {
		return nil, err
	}
	return p, nil
}

// State returns the state of the given node or nil.
func (p *Processor) State(id int) *NodeState {
	return p.states[id]
}

// Stats returns the per-node counters. Do not call concurrently with Drive.
func (p *Processor) Stats() map[int]NodeStats {
	out := make(map[int]NodeStats, len(p.states))
	for id, ns := range p.states {
		out[id] = ns.Stats
	}
	return out
}

// Addrs returns the addresses the external links listen on.
func (p *Processor) Addrs() []net.Addr {
	var addrs []net.Addr
	for _, lnk := range p.registry.Links() {
		if addr := lnk.ListenAddr(); addr != nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// RegisterExternal is the [RegisterFunc] passed to [Node.Setup].
func (p *Processor) RegisterExternal(address string, port int, nodeID int) (*extlink.Channel, error) {
	if slices.Contains(p.DialAddrs, netipx.Endpoint(address, port)) {
		return p.registry.RegisterDial(address, port, nodeID)
	}
	return p.registry.Register(address, port, nodeID)
}

// Setup calls [Node.Setup] for every node in ascending ID order.
func (p *Processor) Setup(ctx context.Context) error {
	p.registry.Logger = p.Logger
	for _, id := range p.order {
		if err := p.states[id].Node.Setup(ctx, p.RegisterExternal); err != nil {
			return &NodeError{NodeID: id, Op: "setup", Err: err}
		}
	}
	return nil
}

// Drive runs the scheduler until no node is ready, the context is
// done, or a fatal error occurs. When external links exist, Drive
// also runs the dispatcher and waits for every link to be connected
// before scheduling.
func (p *Processor) Drive(ctx context.Context) error {
	sel, err := NewSelector(p.states, p.links, p.hooks...)
	if err != nil {
		return err
	}
	sel.Logger = p.Logger

	if p.registry.Len() <= 0 {
		p.logInfo(ctx, "driveStart", slog.Bool("online", false))
		return p.schedule(ctx, sel, p.backoff(0))
	}

	disp := extlink.NewDispatcher(p.registry)
	disp.Logger = p.Logger
	disp.OutboundDelay = p.OutboundDelay
	p.logInfo(ctx, "driveStart", slog.Bool("online", true), slog.Int("links", p.registry.Len()))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return disp.Run(gctx)
	})
	group.Go(func() error {
		defer disp.Stop()
		if err := p.awaitConnected(gctx, disp); err != nil {
			return err
		}
		return p.schedule(gctx, sel, p.backoff(DefaultOnlineIdleBackoff))
	})
	return group.Wait()
}

func (p *Processor) awaitConnected(ctx context.Context, disp *extlink.Dispatcher) error {
	if p.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.ConnectTimeout)
		defer cancel()
	}
	if err := disp.WaitConnected(ctx); err != nil {
		return fmt.Errorf("dataflow: waiting for external peers: %w", err)
	}
	p.logInfo(ctx, "peersConnected")
	return nil
}

func (p *Processor) backoff(fallback time.Duration) time.Duration {
	switch {
	case p.IdleBackoff < 0:
		return 0
	case p.IdleBackoff > 0:
		return p.IdleBackoff
	default:
		return fallback
	}
}

// schedule runs the scheduling loop.
func (p *Processor) schedule(ctx context.Context, sel NodeSelector, backoff time.Duration) error {
	idle := make(map[*NodeState]struct{})
	var seq uint64
	for !sel.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ns := sel.SelectNext()

		// coming back to an idle node means a whole round was idle
		if _, found := idle[ns]; found {
			clear(idle)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}

		p.InvokeHook(HookCtx{Pos: HookPosBeforeProcess, Item: ns})
		before := ns.queued()
		t0 := time.Now()
		if err := ns.Process(); err != nil {
			p.logError(ctx, err, ns.ID())
			return err
		}
		step := StepInfo{
			Seq:      seq,
			NodeID:   ns.ID(),
			Consumed: before - ns.queued(),
			Emitted:  ns.pending(),
			Duration: time.Since(t0),
		}
		seq++
		ns.Stats.Steps++
		ns.Stats.Consumed += uint64(max(step.Consumed, 0))
		ns.Stats.Emitted += uint64(step.Emitted)
		p.InvokeHook(HookCtx{Pos: HookPosAfterProcess, Item: ns, Detail: step})
		if p.Logger != nil {
			p.Logger.LogAttrs(ctx, slog.LevelDebug, "stepDone",
				slog.Uint64("seq", step.Seq),
				slog.Int("nodeID", step.NodeID),
				slog.Int("consumed", step.Consumed),
				slog.Int("emitted", step.Emitted),
				slog.Duration("duration", step.Duration),
			)
		}

		if err := sel.Update(ns); err != nil {
			p.logError(ctx, err, ns.ID())
			return err
		}
		if step.Consumed == 0 && step.Emitted == 0 {
			idle[ns] = struct{}{}
		} else {
			clear(idle)
		}
	}
	p.logInfo(ctx, "driveDone", slog.Uint64("steps", seq))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Teardown calls [Node.Teardown] for every node in descending ID
// order and then closes the external links in reverse creation order.
func (p *Processor) Teardown() error {
	pool := &closepool.Pool{Logger: p.Logger}
	for _, lnk := range p.registry.Links() {
		pool.Add("link "+lnk.Addr(), lnk)
	}
	for _, id := range p.order {
		pool.AddFunc("node "+strconv.Itoa(id), p.states[id].Node.Teardown)
	}
	return pool.Close()
}

// Run is like calling Setup, Drive, and Teardown in sequence.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.Setup(ctx); err != nil {
		return errors.Join(err, p.Teardown())
	}
	err := p.Drive(ctx)
	return errors.Join(err, p.Teardown())
}

func (p *Processor) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if p.Logger != nil {
		p.Logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
	}
}

func (p *Processor) logError(ctx context.Context, err error, nodeID int) {
	if p.Logger != nil {
		p.Logger.ErrorContext(ctx, "nodeFailed", slog.Int("nodeID", nodeID), slog.Any("err", err))
	}
}
