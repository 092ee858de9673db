// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/gopacket/gopacket/layers"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// Default addresses used by [*CountSource].
var (
	DefaultSrcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	DefaultDstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// CountSource emits Count synthetic Ethernet frames. The Timestamp of
// each packet is its sequence number, which is also written big-endian
// at the start of the Ethernet payload.
type CountSource struct {
	dataflow.Base

	// Count is the number of packets to emit.
	Count int

	// EtherType is the OPTIONAL Ethernet type. If zero, we use
	// [layers.EthernetTypeIPv4].
	EtherType layers.EthernetType

	// Size is the OPTIONAL Ethernet payload size, at least 8 bytes.
	Size int

	emitted int
}

// NewCountSource creates a [*CountSource].
func NewCountSource(id, count int) *CountSource {
	return &CountSource{Base: dataflow.NewBase(id, 0, 1), Count: count}
}

// Setup implements [dataflow.Node]. It rewinds the source.
func (n *CountSource) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	n.emitted = 0
	return nil
}

// IsReady implements [dataflow.Node].
func (n *CountSource) IsReady(inputs []*dataflow.Queue) bool {
	return n.emitted < n.Count
}

// Process implements [dataflow.Node].
func (n *CountSource) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	body := make([]byte, max(n.Size, 8))
	binary.BigEndian.PutUint64(body, uint64(n.emitted))
	etype := n.EtherType
	if etype == 0 {
		etype = layers.EthernetTypeIPv4
	}
	frame, err := packet.NewEthernet(&packet.EthernetConfig{
		SrcMAC:       DefaultSrcMAC,
		DstMAC:       DefaultDstMAC,
		EthernetType: etype,
		Payload:      body,
	})
	if err != nil {
		return outputs, err
	}
	pkt := packet.New(frame, int64(n.emitted))
	pkt.SetMeta(packet.MetaSourceID, uint32(n.NodeID))
	outputs[0] = append(outputs[0], pkt)
	n.emitted++
	return outputs, nil
}

// Emitted returns the number of packets emitted so far.
func (n *CountSource) Emitted() int {
	return n.emitted
}
