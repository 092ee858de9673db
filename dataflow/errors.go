// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"errors"
	"fmt"
)

// ErrContract indicates that a node violates the [Node] contract.
var ErrContract = errors.New("dataflow: node contract violation")

// ErrInvalidLink indicates that the [Links] table references
// nodes or ports that do not exist.
var ErrInvalidLink = errors.New("dataflow: invalid link")

// ErrPanic indicates that a node panicked.
var ErrPanic = errors.New("dataflow: node panicked")

// NodeError is a fatal error raised by a specific node.
type NodeError struct {
	// NodeID is the failing node.
	NodeID int

	// Op is the failing operation (e.g., "process").
	Op string

	// Err is the underlying error.
	Err error
}

var _ error = &NodeError{}

// Error implements error.
func (e *NodeError) Error() string {
	return fmt.Sprintf("dataflow: node %d: %s: %s", e.NodeID, e.Op, e.Err.Error())
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
