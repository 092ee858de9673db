// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import (
	"fmt"
	"maps"
	"slices"
)

// PortID identifies a port of a node.
type PortID struct {
	Node int
	Port int
}

// String returns the "node.port" representation.
func (p PortID) String() string {
	return fmt.Sprintf("%d.%d", p.Node, p.Port)
}

// Links maps a source node ID and output port to the destination input port.
type Links map[int]map[int]PortID

// Connect links the from output port to the to input port. It fails
// with [ErrInvalidLink] if the output port is already connected.
func (l Links) Connect(from, to PortID) error {
	ports := l[from.Node]
	if ports == nil {
		ports = make(map[int]PortID)
		l[from.Node] = ports
	}
	if dst, found := ports[from.Port]; found {
		return fmt.Errorf("%w: output %s already feeds %s", ErrInvalidLink, from, dst)
	}
	ports[from.Port] = to
	return nil
}

// Lookup returns the destination of the given output port.
func (l Links) Lookup(node, port int) (PortID, bool) {
	dst, found := l[node][port]
	return dst, found
}

// validate checks that every link references existing ports.
func (l Links) validate(nodes map[int]Node) error {
	for _, src := range slices.Sorted(maps.Keys(l)) {
		srcNode := nodes[src]
		if srcNode == nil {
			return fmt.Errorf("%w: unknown source node %d", ErrInvalidLink, src)
		}
		for port, dst := range l[src] {
			from := PortID{Node: src, Port: port}
			if port < 0 || port >= srcNode.NumOutputs() {
				return fmt.Errorf("%w: %s: no such output port", ErrInvalidLink, from)
			}
			dstNode := nodes[dst.Node]
			if dstNode == nil {
				return fmt.Errorf("%w: %s: unknown destination node %d", ErrInvalidLink, from, dst.Node)
			}
			if dst.Port < 0 || dst.Port >= dstNode.NumInputs() {
				return fmt.Errorf("%w: %s: %s: no such input port", ErrInvalidLink, from, dst)
			}
		}
	}
	return nil
}
