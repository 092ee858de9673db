// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"fmt"

	"github.com/pktflow-project/pktflow/packet"
)

// NodeState is the execution state of a [Node].
//
// Construct using [NewNodeState].
type NodeState struct {
	// Node is the wrapped node.
	Node Node

	// Inputs contains one queue per input port.
	Inputs []*Queue

	// Outputs contains one buffer per output port, emptied
	// after every scheduling step.
	Outputs [][]*packet.Packet

	// Stats contains the node counters.
	Stats NodeStats
}

// NodeStats contains per-node counters.
type NodeStats struct {
	// Steps is the number of Process invocations.
	Steps uint64

	// Consumed is the number of packets removed from the input queues.
	Consumed uint64

	// Emitted is the number of packets emitted.
	Emitted uint64
}

// NewNodeState creates a [*NodeState] with empty queues and buffers.
func NewNodeState(node Node) *NodeState {
	ns := &NodeState{
		Node:    node,
		Inputs:  make([]*Queue, node.NumInputs()),
		Outputs: make([][]*packet.Packet, node.NumOutputs()),
	}
	for idx := range ns.Inputs {
		ns.Inputs[idx] = &Queue{}
	}
	return ns
}

// ID returns the node identifier.
func (ns *NodeState) ID() int {
	return ns.Node.ID()
}

// IsReady calls [Node.IsReady]. A panic becomes a [*NodeError].
func (ns *NodeState) IsReady() (ready bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ready, err = false, ns.panicError("isReady", r)
		}
	}()
	return ns.Node.IsReady(ns.Inputs), nil
}

// Process calls [Node.Process]. Errors and panics become a [*NodeError].
func (ns *NodeState) Process() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ns.panicError("process", r)
		}
	}()
	outputs, err := ns.Node.Process(ns.Inputs, ns.Outputs)
	if err != nil {
		return &NodeError{NodeID: ns.ID(), Op: "process", Err: err}
	}
	if len(outputs) != len(ns.Outputs) {
		return &NodeError{
			NodeID: ns.ID(),
			Op:     "process",
			Err:    fmt.Errorf("%w: returned %d output buffers, want %d", ErrContract, len(outputs), len(ns.Outputs)),
		}
	}
	ns.Outputs = outputs
	return nil
}

func (ns *NodeState) panicError(op string, r any) error {
	return &NodeError{NodeID: ns.ID(), Op: op, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
}

// queued returns the number of packets in the input queues.
func (ns *NodeState) queued() (count int) {
	for _, q := range ns.Inputs {
		count += q.Len()
	}
	return
}

// pending returns the number of packets in the output buffers.
func (ns *NodeState) pending() (count int) {
	for _, buf := range ns.Outputs {
		count += len(buf)
	}
	return
}
