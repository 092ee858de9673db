// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/rbmk-project/common/runtimex"
)

// NodeSelector decides which node processes next.
type NodeSelector interface {
	// SelectNext removes and returns the next node to process. It
	// must only be called when Finished returns false.
	SelectNext() *NodeState

	// Update propagates the outputs of a node that just processed
	// and updates the set of ready nodes.
	Update(ns *NodeState) error

	// Finished returns whether no node is ready.
	Finished() bool
}

// Selector is the FIFO [NodeSelector].
//
// Construct using [NewSelector].
type Selector struct {
	HookableBase

	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	// links is the immutable link table.
	links Links

	// queued tracks the nodes in ready.
	queued map[*NodeState]struct{}

	// ready is the FIFO of ready nodes.
	ready []*NodeState

	// states maps node IDs to their state.
	states map[int]*NodeState
}

var _ NodeSelector = &Selector{}

// NewSelector creates a [*Selector] and enqueues, in ascending node
// ID order, every node that is ready.
func NewSelector(states map[int]*NodeState, links Links, hooks ...Hook) (*Selector, error) {
	s := &Selector{
		links:  links,
		queued: make(map[*NodeState]struct{}),
		states: states,
	}
	for _, hook := range hooks {
		s.AcceptHook(hook)
	}
	for _, id := range slices.Sorted(maps.Keys(states)) {
		if err := s.maybeEnqueue(states[id]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Len returns the number of ready nodes.
func (s *Selector) Len() int {
	return len(s.ready)
}

// Finished implements [NodeSelector].
func (s *Selector) Finished() bool {
	return len(s.ready) <= 0
}

// SelectNext implements [NodeSelector].
func (s *Selector) SelectNext() *NodeState {
	runtimex.Assert(len(s.ready) > 0, "dataflow: SelectNext called on a finished selector")
	ns := s.ready[0]
	s.ready[0] = nil
	s.ready = s.ready[1:]
	delete(s.queued, ns)
	return ns
}

// Update implements [NodeSelector].
func (s *Selector) Update(ns *NodeState) error {
	for port, pkts := range ns.Outputs {
		if len(pkts) <= 0 {
			continue
		}
		dst, found := s.links.Lookup(ns.ID(), port)
		if !found {
			if s.Logger != nil {
				s.Logger.Debug(
					"outputDiscarded",
					slog.Int("nodeID", ns.ID()),
					slog.Int("port", port),
					slog.Int("count", len(pkts)),
				)
			}
			clear(pkts)
			ns.Outputs[port] = pkts[:0]
			continue
		}
		next := s.states[dst.Node]
		next.Inputs[dst.Port].Push(pkts...)
		clear(pkts)
		ns.Outputs[port] = pkts[:0]
		if err := s.maybeEnqueue(next); err != nil {
			return err
		}
	}
	return s.maybeEnqueue(ns)
}

func (s *Selector) maybeEnqueue(ns *NodeState) error {
	if _, found := s.queued[ns]; found {
		return nil
	}
	ready, err := ns.IsReady()
	if err != nil || !ready {
		return err
	}
	s.ready = append(s.ready, ns)
	s.queued[ns] = struct{}{}
	s.InvokeHook(HookCtx{Pos: HookPosEnqueue, Item: ns})
	return nil
}
