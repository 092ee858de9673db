// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package wire implements the binary protocol spoken with an external
network simulator over a TCP byte stream.

# Framing

Every frame starts with a one-byte [Command]. All the integers are
big endian. A [*DataFrame] travels from the simulator to the engine:

	| 0x01 | source id | node id | delay | length | payload |
	| 1    | 4         | 4       | 8     | 4      | length  |

An [*OutboundFrame] travels from the engine to the simulator:

	| 0x01 | delay | protocol | length | payload |
	| 1    | 8     | 2        | 4      | length  |

[EndOfData] (0x02) and [NoData] (0x03) carry no further bytes.

# Resumable Decoding

[DecodeInbound] and [DecodeOutbound] consume as many complete frames
as the buffer holds and return the undecoded remainder, which the
caller must prepend to the next read. An incomplete trailing frame is
not an error. An unknown command yields [ErrUnknownCommand].

# Known Asymmetry

[DecodeOutbound] expects a 17-byte textual MAC address between the
delay and the protocol fields, which [*OutboundFrame.MarshalBinary]
never writes. The simulator application reads frames without the MAC,
hence the encoder is authoritative and the decoder only exists to
inspect captures produced by older engines. Both layouts are kept.
*/
package wire
