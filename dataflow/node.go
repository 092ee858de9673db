// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"context"

	"github.com/pktflow-project/pktflow/extlink"
	"github.com/pktflow-project/pktflow/packet"
)

// RegisterFunc attaches the node with the given ID to the external
// link bound to address and port and returns the node's channel.
type RegisterFunc func(address string, port int, nodeID int) (*extlink.Channel, error)

// Node is a processing block of the graph.
//
// The scheduler invokes a node from a single goroutine.
type Node interface {
	// ID returns the stable node identifier.
	ID() int

	// NumInputs returns the number of input ports.
	NumInputs() int

	// NumOutputs returns the number of output ports.
	NumOutputs() int

	// IsReady returns whether Process may run given the input queues.
	// It must not modify the queues.
	IsReady(inputs []*Queue) bool

	// Process consumes packets from the front of the input queues and
	// appends packets to the output buffers, returning the buffers.
	// Process must not block and any returned error aborts the run.
	Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error)

	// Setup is called once before scheduling.
	Setup(ctx context.Context, register RegisterFunc) error

	// Teardown is called once after scheduling.
	Teardown() error
}

// Base is embeddable by nodes. It implements the ID, NumInputs,
// NumOutputs, Setup, and Teardown methods of [Node].
type Base struct {
	// NodeID is the node identifier.
	NodeID int

	// Inputs is the number of input ports.
	Inputs int

	// Outputs is the number of output ports.
	Outputs int
}

// NewBase returns a [Base] with the given identifier and port counts.
func NewBase(id, inputs, outputs int) Base {
	return Base{NodeID: id, Inputs: inputs, Outputs: outputs}
}

// ID implements [Node].
func (b *Base) ID() int {
	return b.NodeID
}

// NumInputs implements [Node].
func (b *Base) NumInputs() int {
	return b.Inputs
}

// NumOutputs implements [Node].
func (b *Base) NumOutputs() int {
	return b.Outputs
}

// Setup implements [Node].
func (b *Base) Setup(ctx context.Context, register RegisterFunc) error {
	return nil
}

// Teardown implements [Node].
func (b *Base) Teardown() error {
	return nil
}
