// SPDX-License-Identifier: GPL-3.0-or-later

// Package netipx contains [net/netip] extensions used to name
// external link endpoints.
package netipx

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// ErrInvalidPort indicates a port outside the 0..65535 range.
var ErrInvalidPort = errors.New("invalid port")

// AddrToAddrPort converts a [net.Addr] to a [netip.AddrPort].
//
// If the input is nil or neither a [*net.TCPAddr] nor [*net.UDPAddr],
// returns an unspecified IPv6 address with port 0. IPv4-mapped IPv6
// addresses are unmapped, so 127.0.0.1 prints as such.
func AddrToAddrPort(addr net.Addr) netip.AddrPort {
	var ap netip.AddrPort
	switch v := addr.(type) {
	case *net.TCPAddr:
		ap = v.AddrPort()
	case *net.UDPAddr:
		ap = v.AddrPort()
	default:
		return netip.AddrPortFrom(netip.IPv6Unspecified(), 0)
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// Endpoint returns the "host:port" key identifying an external link.
func Endpoint(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}

// ParseEndpoint splits a "host:port" string and validates the port.
func ParseEndpoint(endpoint string) (string, int, error) {
	host, portstr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portstr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPort, portstr)
	}
	return host, port, nil
}
