// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package extlink connects graph nodes to an external network simulator
over TCP.

# Links and Channels

A [*Link] is a TCP endpoint shared by every node that registered the
same (address, port) pair with a [*Registry]. Each registering node
obtains its own [*Channel], which is an unbounded queue in each
direction: the dispatcher pushes inbound [Item] values the node reads
using [*Channel.Poll], and the node queues outbound packets using
[*Channel.Send]. Neither operation blocks, so the single-threaded
scheduler can use channels from inside a node's processing step.

By default a link listens and accepts exactly one peer during its
lifetime. Links created with [*Registry.RegisterDial] instead dial
the simulator, retrying until the context is done.

# Dispatcher

The [*Dispatcher] is an event loop running in its own goroutine. Helper
goroutines (one accepting or dialing per link, one reading per connected
link) feed a single event channel, and every [*Channel] shares a wakeup
signal with the loop. All link state is owned by the loop goroutine.

Inbound bytes are decoded using [wire.DecodeInbound]. A data frame
becomes a packet routed to the channel of the destination node, an
end-of-data frame is broadcast to every channel of the link, and
after that the link ignores further inbound data while its outbound
direction remains open until shutdown.

When the peer closes the connection, only that link is cleaned up. An
unknown command or a second connection to an already connected link
is fatal and [*Dispatcher.Run] returns a [*LinkError].

# Design Documents

This package has no design documents for now.
*/
package extlink
