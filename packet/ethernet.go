// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// EthernetConfig configures [NewEthernet].
type EthernetConfig struct {
	// SrcMAC is the source hardware address.
	SrcMAC net.HardwareAddr

	// DstMAC is the destination hardware address.
	DstMAC net.HardwareAddr

	// EthernetType is the type of the encapsulated payload.
	EthernetType layers.EthernetType

	// Payload is the encapsulated payload.
	Payload []byte
}

// NewEthernet serializes an Ethernet frame using the given config.
func NewEthernet(config *EthernetConfig) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{
		SrcMAC:       config.SrcMAC,
		DstMAC:       config.DstMAC,
		EthernetType: config.EthernetType,
	}
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(config.Payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
