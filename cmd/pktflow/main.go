// SPDX-License-Identifier: GPL-3.0-or-later

// Command pktflow runs packet dataflow graphs described by HCL run files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pktflow:", err)
		os.Exit(1)
	}
}
