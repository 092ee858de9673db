// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"fmt"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// hasInput is the readiness predicate of single-input nodes.
func hasInput(inputs []*dataflow.Queue) bool {
	return !inputs[0].Empty()
}

// NullSink consumes and counts packets.
type NullSink struct {
	dataflow.Base

	// Count is the number of consumed packets.
	Count int
}

// NewNullSink creates a [*NullSink].
func NewNullSink(id int) *NullSink {
	return &NullSink{Base: dataflow.NewBase(id, 1, 0)}
}

// IsReady implements [dataflow.Node].
func (n *NullSink) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *NullSink) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	inputs[0].Pop()
	n.Count++
	return outputs, nil
}

// Counter counts and forwards packets.
type Counter struct {
	dataflow.Base

	// Count is the number of forwarded packets.
	Count int
}

// NewCounter creates a [*Counter].
func NewCounter(id int) *Counter {
	return &Counter{Base: dataflow.NewBase(id, 1, 1)}
}

// IsReady implements [dataflow.Node].
func (n *Counter) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Counter) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	outputs[0] = append(outputs[0], inputs[0].Pop())
	n.Count++
	return outputs, nil
}

// Repeater emits Repeats copies of every packet: the packet itself
// followed by Repeats-1 clones. Zero repeats drop the packet.
type Repeater struct {
	dataflow.Base
	Repeats int
}

// NewRepeater creates a [*Repeater].
func NewRepeater(id, repeats int) *Repeater {
	return &Repeater{Base: dataflow.NewBase(id, 1, 1), Repeats: repeats}
}

// Setup implements [dataflow.Node].
func (n *Repeater) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if n.Repeats < 0 {
		return fmt.Errorf("repeats must not be negative, got %d", n.Repeats)
	}
	return nil
}

// IsReady implements [dataflow.Node].
func (n *Repeater) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Repeater) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	for idx := range n.Repeats {
		if idx == 0 {
			outputs[0] = append(outputs[0], pkt)
			continue
		}
		outputs[0] = append(outputs[0], pkt.Clone())
	}
	return outputs, nil
}

// Delete drops the packets whose zero-based arrival index is in
// Start, Start+Step, ... up to but excluding Stop.
type Delete struct {
	dataflow.Base
	Start int
	Stop  int
	Step  int

	index int
}

// NewDelete creates a [*Delete].
func NewDelete(id, start, stop, step int) *Delete {
	return &Delete{Base: dataflow.NewBase(id, 1, 1), Start: start, Stop: stop, Step: step}
}

// Setup implements [dataflow.Node].
func (n *Delete) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if n.Step <= 0 {
		return fmt.Errorf("step must be positive, got %d", n.Step)
	}
	n.index = 0
	return nil
}

// IsReady implements [dataflow.Node].
func (n *Delete) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Delete) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	idx := n.index
	n.index++
	if idx >= n.Start && idx < n.Stop && (idx-n.Start)%n.Step == 0 {
		return outputs, nil
	}
	outputs[0] = append(outputs[0], pkt)
	return outputs, nil
}
