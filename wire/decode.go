// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// reader reads big endian fields from a buffer.
type reader struct {
	buf []byte
	off int
}

// take returns the next count bytes or [errIncomplete].
func (r *reader) take(count int) ([]byte, error) {
	if count < 0 || len(r.buf)-r.off < count {
		return nil, errIncomplete
	}
	data := r.buf[r.off : r.off+count]
	r.off += count
	return data, nil
}

func (r *reader) uint16() (uint16, error) {
	data, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

func (r *reader) uint32() (uint32, error) {
	data, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(data), nil
}

func (r *reader) uint64() (uint64, error) {
	data, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// payload reads a length-prefixed payload and copies it.
func (r *reader) payload() ([]byte, error) {
	length, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(length) > uint64(len(r.buf)-r.off) {
		return nil, errIncomplete
	}
	data, err := r.take(int(length))
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

// dataDecoder decodes the body of a [CommandData] frame.
type dataDecoder func(r *reader) (Frame, error)

// DecodeInbound decodes the frames sent by the simulator to the engine.
//
// The returned remainder holds the bytes of an incomplete trailing frame,
// which must be prepended to the next read. On [ErrUnknownCommand], the
// frames decoded before the offending one are also returned.
func DecodeInbound(buf []byte) ([]Frame, []byte, error) {
	return decode(buf, decodeDataFrame)
}

// DecodeOutbound decodes the frames sent by the engine to the simulator
// using the layout carrying the MAC field (see the package docs).
func DecodeOutbound(buf []byte) ([]Frame, []byte, error) {
	return decode(buf, decodeOutboundFrame)
}

func decode(buf []byte, fx dataDecoder) ([]Frame, []byte, error) {
	var frames []Frame
	off := 0
	for off < len(buf) {
		r := &reader{buf: buf, off: off + sizeCommand}
		var (
			frame Frame
			err   error
		)
		switch cmd := Command(buf[off]); cmd {
		case CommandData:
			frame, err = fx(r)
		case CommandEndOfData:
			frame = EndOfData{}
		case CommandNoData:
			frame = NoData{}
		default:
			return frames, bytes.Clone(buf[off:]), fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		}
		if err != nil {
			// The only possible error here is errIncomplete.
			break
		}
		frames = append(frames, frame)
		off = r.off
	}
	return frames, bytes.Clone(buf[off:]), nil
}

func decodeDataFrame(r *reader) (Frame, error) {
	var (
		frame DataFrame
		err   error
	)
	if frame.SourceID, err = r.uint32(); err != nil {
		return nil, err
	}
	if frame.NodeID, err = r.uint32(); err != nil {
		return nil, err
	}
	if frame.Delay, err = r.uint64(); err != nil {
		return nil, err
	}
	if frame.Payload, err = r.payload(); err != nil {
		return nil, err
	}
	return &frame, nil
}

func decodeOutboundFrame(r *reader) (Frame, error) {
	var (
		frame OutboundFrame
		err   error
	)
	if frame.Delay, err = r.uint64(); err != nil {
		return nil, err
	}
	mac, err := r.take(sizeMAC)
	if err != nil {
		return nil, err
	}
	frame.MAC = bytes.Clone(mac)
	if frame.Proto, err = r.uint16(); err != nil {
		return nil, err
	}
	if frame.Payload, err = r.payload(); err != nil {
		return nil, err
	}
	return &frame, nil
}
