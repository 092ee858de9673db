// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package dataflow executes a directed graph of packet-processing nodes.

# Nodes and Links

A [Node] declares a fixed number of input and output ports. The
[Links] table maps each output port to at most one destination
[PortID]. For each node, the engine keeps a [*NodeState] holding one
unbounded FIFO [*Queue] per input port and one output buffer per
output port.

# Scheduling

The [*Selector] keeps a FIFO of ready nodes. At each step it pops the
head, runs [Node.Process], moves the emitted packets into the input
queues of the destinations, enqueues destinations that became ready,
and finally re-checks the processed node. The run ends when no node
is ready. Packets may remain queued at nodes that are waiting for
data on other inputs.

There is no backpressure: input queues grow without bounds.

# External Links

Nodes may call the [RegisterFunc] passed to [Node.Setup] to exchange
packets with an external simulator using the extlink package. When
any link exists, [*Processor.Drive] runs the extlink dispatcher in a
separate goroutine, waits for every link to be connected, runs the
scheduler, and finally stops the dispatcher.

# Design Documents

This package has no design documents for now.
*/
package dataflow
