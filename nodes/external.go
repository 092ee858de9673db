// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/extlink"
	"github.com/pktflow-project/pktflow/packet"
)

// ExternalSource emits the packets the simulator addresses to this
// node. It stays ready until the simulator sends end-of-data, polling
// its channel at every step.
type ExternalSource struct {
	dataflow.Base
	Address string
	Port    int

	ch  *extlink.Channel
	eod bool
}

// NewExternalSource creates an [*ExternalSource].
func NewExternalSource(id int, address string, port int) *ExternalSource {
	return &ExternalSource{Base: dataflow.NewBase(id, 0, 1), Address: address, Port: port}
}

// Setup implements [dataflow.Node].
func (n *ExternalSource) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	ch, err := register(n.Address, n.Port, n.NodeID)
	if err != nil {
		return err
	}
	n.ch, n.eod = ch, false
	return nil
}

// IsReady implements [dataflow.Node].
func (n *ExternalSource) IsReady(inputs []*dataflow.Queue) bool {
	return n.ch != nil && !n.eod
}

// Process implements [dataflow.Node].
func (n *ExternalSource) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	for {
		item, ok := n.ch.Poll()
		if !ok {
			return outputs, nil
		}
		if item.EOD {
			n.eod = true
			return outputs, nil
		}
		outputs[0] = append(outputs[0], item.Packet)
	}
}

// ExternalSink forwards packets to the simulator.
type ExternalSink struct {
	dataflow.Base
	Address string
	Port    int

	ch *extlink.Channel
}

// NewExternalSink creates an [*ExternalSink].
func NewExternalSink(id int, address string, port int) *ExternalSink {
	return &ExternalSink{Base: dataflow.NewBase(id, 1, 0), Address: address, Port: port}
}

// Setup implements [dataflow.Node].
func (n *ExternalSink) Setup(ctx context.Context, register dataflow.RegisterFunc) (err error) {
	n.ch, err = register(n.Address, n.Port, n.NodeID)
	return
}

// IsReady implements [dataflow.Node].
func (n *ExternalSink) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *ExternalSink) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	n.ch.Send(inputs[0].Pop())
	return outputs, nil
}
