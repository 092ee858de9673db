// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// pcapSnapLen is the snapshot length written into pcap headers.
const pcapSnapLen = 65536

// PcapSource emits the packets of a pcap file. The packet Timestamp
// is the capture time in nanoseconds since the epoch.
type PcapSource struct {
	dataflow.Base
	Path string

	file   *os.File
	reader *pcapgo.Reader
	next   *packet.Packet
}

// NewPcapSource creates a [*PcapSource].
func NewPcapSource(id int, path string) *PcapSource {
	return &PcapSource{Base: dataflow.NewBase(id, 0, 1), Path: path}
}

// Setup implements [dataflow.Node].
func (n *PcapSource) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	file, err := os.Open(n.Path)
	if err != nil {
		return err
	}
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return err
	}
	n.file, n.reader = file, reader
	return n.advance()
}

// advance reads the next packet, leaving next nil at EOF.
func (n *PcapSource) advance() error {
	data, ci, err := n.reader.ReadPacketData()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		n.next = nil
		return nil
	}
	if err != nil {
		n.next = nil
		return err
	}
	n.next = packet.New(data, ci.Timestamp.UnixNano())
	return nil
}

// IsReady implements [dataflow.Node].
func (n *PcapSource) IsReady(inputs []*dataflow.Queue) bool {
	return n.next != nil
}

// Process implements [dataflow.Node].
func (n *PcapSource) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	outputs[0] = append(outputs[0], n.next)
	return outputs, n.advance()
}

// Teardown implements [dataflow.Node].
func (n *PcapSource) Teardown() error {
	if n.file == nil {
		return nil
	}
	err := n.file.Close()
	n.file, n.reader, n.next = nil, nil, nil
	return err
}

// PcapSink writes packets into a pcap file, interpreting the packet
// Timestamp as nanoseconds since the epoch.
type PcapSink struct {
	dataflow.Base
	Path string

	// Count is the number of written packets.
	Count int

	file   *os.File
	writer *pcapgo.Writer
}

// NewPcapSink creates a [*PcapSink].
func NewPcapSink(id int, path string) *PcapSink {
	return &PcapSink{Base: dataflow.NewBase(id, 1, 0), Path: path}
}

// Setup implements [dataflow.Node].
func (n *PcapSink) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	file, err := os.Create(n.Path)
	if err != nil {
		return err
	}
	writer := pcapgo.NewWriterNanos(file)
	if err := writer.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		file.Close()
		return err
	}
	n.file, n.writer, n.Count = file, writer, 0
	return nil
}

// IsReady implements [dataflow.Node].
func (n *PcapSink) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *PcapSink) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, pkt.Timestamp),
		CaptureLength: len(pkt.Payload),
		Length:        len(pkt.Payload),
	}
	if err := n.writer.WritePacket(ci, pkt.Payload); err != nil {
		return outputs, err
	}
	n.Count++
	return outputs, nil
}

// Teardown implements [dataflow.Node].
func (n *PcapSink) Teardown() error {
	if n.file == nil {
		return nil
	}
	err := n.file.Close()
	n.file, n.writer = nil, nil
	return err
}
