// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/pktflow-project/pktflow/graphconf"
	"github.com/pktflow-project/pktflow/nodes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// version is overridden at link time.
var version = "dev"

// newRootCmd creates the command tree writing output to stdout and
// logs to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "pktflow",
		Short: "Run packet dataflow graphs",
		Long: `pktflow routes packets through a graph of processing nodes described ` +
			`by an HCL run file, optionally exchanging packets with an external ` +
			`network simulator over TCP.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading env file: %w", err)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this dotenv file")

	root.AddCommand(newRunCmd(stdout, stderr))
	root.AddCommand(newKindsCmd(stdout))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, version)
		},
	})
	return root
}

func newKindsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the node kinds usable in run files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := newKindRegistry(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			for _, kind := range kinds.Kinds() {
				fmt.Fprintln(stdout, kind)
			}
			return nil
		},
	}
}

func newKindRegistry(registerer prometheus.Registerer) (*graphconf.Registry, error) {
	kinds := &graphconf.Registry{}
	if err := nodes.Register(kinds, registerer); err != nil {
		return nil, err
	}
	return kinds, nil
}
