// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package nodes contains the reference node kinds.

Sources ([*CountSource], [*PcapSource], [*ExternalSource]) generate
packets, sinks ([*NullSink], [*PcapSink], [*ExternalSink]) consume them,
and the remaining kinds transform, duplicate, drop, or route packets.
Every kind processes at most one packet per input per step.

Use [Register] to make the kinds available to a [graphconf.Registry].
*/
package nodes
