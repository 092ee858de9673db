// SPDX-License-Identifier: GPL-3.0-or-later

package extlink

import (
	"errors"
	"fmt"
)

// ErrAlreadyConnected indicates that a peer tried to connect to
// a listening link that already accepted a connection.
var ErrAlreadyConnected = errors.New("extlink: already connected")

// ErrNodeRegistered indicates that a node registered twice on the same link.
var ErrNodeRegistered = errors.New("extlink: node already registered")

// ErrModeMismatch indicates that the same endpoint was registered
// both for listening and for dialing.
var ErrModeMismatch = errors.New("extlink: listen/dial mode mismatch")

// LinkError is a fatal error associated with a specific link.
type LinkError struct {
	// Addr is the endpoint the link was registered with.
	Addr string

	// Err is the underlying error.
	Err error
}

var _ error = &LinkError{}

// Error implements error.
func (e *LinkError) Error() string {
	return fmt.Sprintf("extlink: link %s: %s", e.Addr, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Err
}
