// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command is the one-byte tag starting each frame.
type Command byte

const (
	// CommandData tags a data frame.
	CommandData Command = 0x01

	// CommandEndOfData tags the end-of-data sentinel.
	CommandEndOfData Command = 0x02

	// CommandNoData tags the simulator "currently no data" NOP.
	CommandNoData Command = 0x03
)

// String returns the string representation of the command.
func (c Command) String() string {
	switch c {
	case CommandData:
		return "Data"
	case CommandEndOfData:
		return "EndOfData"
	case CommandNoData:
		return "NoData"
	default:
		return fmt.Sprintf("Unknown(%#02x)", byte(c))
	}
}

// ErrUnknownCommand indicates a frame starting with an unknown [Command].
var ErrUnknownCommand = errors.New("wire: unknown command")

// errIncomplete indicates that the buffer ends in the middle of a frame.
var errIncomplete = errors.New("wire: incomplete frame")

// Frame is a complete wire-protocol message.
type Frame interface {
	// Command returns the frame tag.
	Command() Command

	// MarshalBinary serializes the frame including its tag.
	MarshalBinary() ([]byte, error)
}

// Field sizes in bytes.
const (
	sizeCommand  = 1
	sizeSourceID = 4
	sizeNodeID   = 4
	sizeDelay    = 8
	sizeMAC      = 17
	sizeProto    = 2
	sizeLength   = 4
)

// DataFrame is the data frame the simulator sends to the engine.
type DataFrame struct {
	// SourceID identifies the sender inside the simulator.
	SourceID uint32

	// NodeID is the graph node that must receive the payload.
	NodeID uint32

	// Delay is the delay in nanoseconds.
	Delay uint64

	// Payload is the raw payload.
	Payload []byte
}

var _ Frame = &DataFrame{}

// Command implements [Frame].
func (f *DataFrame) Command() Command {
	return CommandData
}

// MarshalBinary implements [Frame].
func (f *DataFrame) MarshalBinary() ([]byte, error) {
	size := sizeCommand + sizeSourceID + sizeNodeID + sizeDelay + sizeLength + len(f.Payload)
	buf := make([]byte, 0, size)
	buf = append(buf, byte(CommandData))
	buf = binary.BigEndian.AppendUint32(buf, f.SourceID)
	buf = binary.BigEndian.AppendUint32(buf, f.NodeID)
	buf = binary.BigEndian.AppendUint64(buf, f.Delay)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf, nil
}

// OutboundFrame is the data frame the engine sends to the simulator.
type OutboundFrame struct {
	// Delay is the delay the simulator applies before sending.
	Delay uint64

	// MAC is only populated by [DecodeOutbound] and is never
	// serialized by MarshalBinary.
	MAC []byte

	// Proto is the protocol type, normally the Ethernet type.
	Proto uint16

	// Payload is the raw payload.
	Payload []byte
}

var _ Frame = &OutboundFrame{}

// Command implements [Frame].
func (f *OutboundFrame) Command() Command {
	return CommandData
}

// MarshalBinary implements [Frame].
func (f *OutboundFrame) MarshalBinary() ([]byte, error) {
	size := sizeCommand + sizeDelay + sizeProto + sizeLength + len(f.Payload)
	buf := make([]byte, 0, size)
	buf = append(buf, byte(CommandData))
	buf = binary.BigEndian.AppendUint64(buf, f.Delay)
	buf = binary.BigEndian.AppendUint16(buf, f.Proto)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf, nil
}

// EndOfData is the end-of-data sentinel.
type EndOfData struct{}

var _ Frame = EndOfData{}

// Command implements [Frame].
func (EndOfData) Command() Command {
	return CommandEndOfData
}

// MarshalBinary implements [Frame].
func (EndOfData) MarshalBinary() ([]byte, error) {
	return []byte{byte(CommandEndOfData)}, nil
}

// NoData is the "currently no data" NOP.
type NoData struct{}

var _ Frame = NoData{}

// Command implements [Frame].
func (NoData) Command() Command {
	return CommandNoData
}

// MarshalBinary implements [Frame].
func (NoData) MarshalBinary() ([]byte, error) {
	return []byte{byte(CommandNoData)}, nil
}
