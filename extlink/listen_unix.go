// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package extlink

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// newListenConfig returns a [*net.ListenConfig] setting SO_REUSEADDR
// such that consecutive runs can bind the same port immediately.
func newListenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(network, address string, conn syscall.RawConn) error {
			var soerr error
			err := conn.Control(func(fd uintptr) {
				soerr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return soerr
		},
	}
}
