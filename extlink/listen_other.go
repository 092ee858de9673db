// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package extlink

import "net"

// newListenConfig returns the default [*net.ListenConfig].
func newListenConfig() *net.ListenConfig {
	return &net.ListenConfig{}
}
