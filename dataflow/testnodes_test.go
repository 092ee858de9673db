// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"context"
	"errors"

	"github.com/pktflow-project/pktflow/extlink"
	"github.com/pktflow-project/pktflow/packet"
)

// sourceNode emits count packets whose timestamp is their index.
type sourceNode struct {
	Base
	count   int
	emitted int
}

func newSourceNode(id, count int) *sourceNode {
	return &sourceNode{Base: NewBase(id, 0, 1), count: count}
}

func (n *sourceNode) IsReady(inputs []*Queue) bool {
	return n.emitted < n.count
}

func (n *sourceNode) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	outputs[0] = append(outputs[0], packet.New([]byte{byte(n.emitted)}, int64(n.emitted)))
	n.emitted++
	return outputs, nil
}

// relayNode forwards one packet per step to every output.
type relayNode struct {
	Base
	fail    error
	explode bool
}

func newRelayNode(id, outputs int) *relayNode {
	return &relayNode{Base: NewBase(id, 1, outputs)}
}

func (n *relayNode) IsReady(inputs []*Queue) bool {
	return !inputs[0].Empty()
}

func (n *relayNode) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	if n.explode {
		panic("relay exploded")
	}
	if n.fail != nil {
		return outputs, n.fail
	}
	pkt := inputs[0].Pop()
	for idx := range outputs {
		outputs[idx] = append(outputs[idx], pkt)
	}
	return outputs, nil
}

// sinkNode records what it consumes.
type sinkNode struct {
	Base
	got        []*packet.Packet
	tornDown   bool
	teardownFn func() error
}

func newSinkNode(id int) *sinkNode {
	return &sinkNode{Base: NewBase(id, 1, 0)}
}

func (n *sinkNode) IsReady(inputs []*Queue) bool {
	return !inputs[0].Empty()
}

func (n *sinkNode) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	n.got = append(n.got, inputs[0].Pop())
	return outputs, nil
}

func (n *sinkNode) Teardown() error {
	n.tornDown = true
	if n.teardownFn != nil {
		return n.teardownFn()
	}
	return nil
}

// timestamps returns the timestamps of the consumed packets.
func (n *sinkNode) timestamps() (out []int64) {
	for _, pkt := range n.got {
		out = append(out, pkt.Timestamp)
	}
	return
}

// pollerNode is always ready for a given number of steps without
// ever producing anything.
type pollerNode struct {
	Base
	steps int
}

func (n *pollerNode) IsReady(inputs []*Queue) bool {
	return n.steps > 0
}

func (n *pollerNode) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	n.steps--
	return outputs, nil
}

// externalNode receives packets from an external link until end-of-data.
type externalNode struct {
	Base
	address string
	ch      *extlink.Channel
	eod     bool
}

func (n *externalNode) Setup(ctx context.Context, register RegisterFunc) (err error) {
	n.ch, err = register(n.address, 0, n.NodeID)
	return
}

func (n *externalNode) IsReady(inputs []*Queue) bool {
	return !n.eod
}

func (n *externalNode) Process(inputs []*Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	if n.ch == nil {
		return outputs, errors.New("not registered")
	}
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
