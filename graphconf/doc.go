// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package graphconf loads headless run files describing a graph.

A run file is written in HCL:

	node "src" {
	  id      = 1
	  kind    = "count_source"
	  packets = 5
	}

	node "sink" {
	  id   = 2
	  kind = "null_sink"
	}

	link {
	  from = "src.0"
	  to   = "sink.0"
	}

	run {
	  connect_timeout = "30s"
	}

Each node block names a kind. The [*Registry] maps kinds to [Builder]
functions, which decode the kind-specific attributes. Expressions may
reference environment variables through the env object, for example
env.SIM_HOST.
*/
package graphconf
