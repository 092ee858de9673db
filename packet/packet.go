// SPDX-License-Identifier: GPL-3.0-or-later

// Package packet contains [*Packet] and the related definitions.
package packet

import (
	"encoding/binary"
	"fmt"
	"maps"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Well-known [Metadata] keys set by the engine.
const (
	// MetaSourceID is the simulator-side source identifier of a
	// packet received from an external link (uint32).
	MetaSourceID = "sourceID"

	// MetaTimeDiff is the timestamp difference computed by
	// nodes pairing packets (int64).
	MetaTimeDiff = "tDiff"
)

// Metadata is the open side-channel nodes use to pass values
// to downstream nodes along with a [*Packet].
type Metadata map[string]any

// Packet is the unit of data flowing along links.
//
// Ownership passes from the producer to each consumer in sequence. A
// node must not assume exclusive ownership of a packet it has queued
// for output, since a duplicating node may clone it.
type Packet struct {
	// Payload is the opaque packet payload, normally an Ethernet frame.
	Payload []byte

	// Timestamp is a producer-defined integer timestamp.
	Timestamp int64

	// Dropped is not interpreted by the engine.
	Dropped bool

	// Metadata contains side-channel values. It may be nil.
	Metadata Metadata
}

// New creates a new [*Packet] with empty [Metadata].
func New(payload []byte, timestamp int64) *Packet {
	return &Packet{
		Payload:   payload,
		Timestamp: timestamp,
		Dropped:   false,
		Metadata:  Metadata{},
	}
}

// Clone returns a copy of the packet owning its payload. The
// metadata map is copied but its values are shared.
func (p *Packet) Clone() *Packet {
	return &Packet{
		Payload:   append([]byte{}, p.Payload...),
		Timestamp: p.Timestamp,
		Dropped:   p.Dropped,
		Metadata:  maps.Clone(p.Metadata),
	}
}

// SetMeta sets a metadata value, allocating the map when needed.
func (p *Packet) SetMeta(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = Metadata{}
	}
	p.Metadata[key] = value
}

// Meta returns a metadata value and whether it was present.
func (p *Packet) Meta(key string) (any, bool) {
	value, found := p.Metadata[key]
	return value, found
}

// Layers decodes the payload as an Ethernet frame.
//
// Decoding is lazy and never fails: a payload that cannot be parsed
// yields a [gopacket.Packet] whose ErrorLayer is not nil.
func (p *Packet) Layers() gopacket.Packet {
	return gopacket.NewPacket(p.Payload, layers.LayerTypeEthernet, gopacket.Lazy)
}

// EtherType returns the Ethernet type field of the payload, or zero
// when the payload is shorter than an Ethernet header.
func (p *Packet) EtherType() uint16 {
	const ethernetHeaderSize = 14
	if len(p.Payload) < ethernetHeaderSize {
		return 0
	}
	return binary.BigEndian.Uint16(p.Payload[12:14])
}

// String returns the string representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf(
		"ts=%d length=%d ethertype=0x%04x dropped=%v meta=%d",
		p.Timestamp,
		len(p.Payload),
		p.EtherType(),
		p.Dropped,
		len(p.Metadata),
	)
}
