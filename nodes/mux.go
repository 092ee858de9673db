// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"fmt"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// DeMuxMode selects how a [*DeMux] distributes packets.
type DeMuxMode string

const (
	// DeMuxAlternate sends each packet to the next output in round-robin order.
	DeMuxAlternate DeMuxMode = "alternate"

	// DeMuxDuplicate sends a clone of each packet to every output.
	DeMuxDuplicate DeMuxMode = "duplicate"
)

// DeMux distributes the packets of its single input across its outputs.
type DeMux struct {
	dataflow.Base
	Mode DeMuxMode

	next int
}

// NewDeMux creates a [*DeMux].
func NewDeMux(id, outputs int, mode DeMuxMode) *DeMux {
	return &DeMux{Base: dataflow.NewBase(id, 1, outputs), Mode: mode}
}

// Setup implements [dataflow.Node].
func (n *DeMux) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if n.Outputs <= 0 {
		return fmt.Errorf("demux needs at least one output")
	}
	switch n.Mode {
	case DeMuxAlternate, DeMuxDuplicate:
		n.next = 0
		return nil
	default:
		return fmt.Errorf("unknown demux mode %q", n.Mode)
	}
}

// IsReady implements [dataflow.Node].
func (n *DeMux) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *DeMux) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	if n.Mode == DeMuxDuplicate {
		outputs[0] = append(outputs[0], pkt)
		for idx := 1; idx < len(outputs); idx++ {
			outputs[idx] = append(outputs[idx], pkt.Clone())
		}
		return outputs, nil
	}
	outputs[n.next] = append(outputs[n.next], pkt)
	n.next = (n.next + 1) % len(outputs)
	return outputs, nil
}

// Mux merges its inputs in round-robin order. It only runs when the
// input whose turn it is has data, so a silent input stalls the others.
type Mux struct {
	dataflow.Base

	active int
}

// NewMux creates a [*Mux].
func NewMux(id, inputs int) *Mux {
	return &Mux{Base: dataflow.NewBase(id, inputs, 1)}
}

// Setup implements [dataflow.Node].
func (n *Mux) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if n.Inputs <= 0 {
		return fmt.Errorf("mux needs at least one input")
	}
	n.active = 0
	return nil
}

// IsReady implements [dataflow.Node].
func (n *Mux) IsReady(inputs []*dataflow.Queue) bool {
	return n.active < len(inputs) && !inputs[n.active].Empty()
}

// Process implements [dataflow.Node].
func (n *Mux) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	outputs[0] = append(outputs[0], inputs[n.active].Pop())
	n.active = (n.active + 1) % len(inputs)
	return outputs, nil
}

// Compare pairs packets from its two inputs and records in both the
// timestamp difference B minus A under [packet.MetaTimeDiff]. The
// packet from input i leaves on output i.
type Compare struct {
	dataflow.Base
}

// NewCompare creates a [*Compare].
func NewCompare(id int) *Compare {
	return &Compare{Base: dataflow.NewBase(id, 2, 2)}
}

// IsReady implements [dataflow.Node].
func (n *Compare) IsReady(inputs []*dataflow.Queue) bool {
	return !inputs[0].Empty() && !inputs[1].Empty()
}

// Process implements [dataflow.Node].
func (n *Compare) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	a, b := inputs[0].Pop(), inputs[1].Pop()
	diff := b.Timestamp - a.Timestamp
	a.SetMeta(packet.MetaTimeDiff, diff)
	b.SetMeta(packet.MetaTimeDiff, diff)
	outputs[0] = append(outputs[0], a)
	outputs[1] = append(outputs[1], b)
	return outputs, nil
}
