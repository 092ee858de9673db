// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/graphconf"
	"github.com/pktflow-project/pktflow/metrics"
	"github.com/pktflow-project/pktflow/netipx"
	"github.com/pktflow-project/pktflow/steptrace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/spf13/cobra"
)

// runOptions contains the settings of the run command.
type runOptions struct {
	ConnectTimeout time.Duration
	Dial           []string
	Graph          string
	LogFormat      string
	LogLevel       string
	MetricsAddr    string
	TraceDB        string
}

// envDefaults maps flag names to the environment variables
// used when the flag is not set.
var envDefaults = map[string]string{
	"connect-timeout": "PKTFLOW_CONNECT_TIMEOUT",
	"graph":           "PKTFLOW_GRAPH",
	"log-format":      "PKTFLOW_LOG_FORMAT",
	"log-level":       "PKTFLOW_LOG_LEVEL",
	"metrics-addr":    "PKTFLOW_METRICS_ADDR",
	"trace-db":        "PKTFLOW_TRACE_DB",
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [--graph FILE]",
		Short: "Run a graph until no node is runnable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := applyEnvDefaults(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runGraph(ctx, opts, stdout, stderr)
		},
	}
	flags := cmd.Flags()
	flags.DurationVar(&opts.ConnectTimeout, "connect-timeout", 0, "maximum time to wait for external peers (0 waits forever)")
	flags.StringSliceVar(&opts.Dial, "dial", nil, "host:port external endpoints to dial instead of listen on")
	flags.StringVarP(&opts.Graph, "graph", "g", "", "HCL run file describing the graph")
	flags.StringVar(&opts.LogFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn, or error")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics and /api/stats on this address")
	flags.StringVar(&opts.TraceDB, "trace-db", "", "record every scheduling step into this SQLite database")
	return cmd
}

// applyEnvDefaults sets flags the user did not pass from the environment.
func applyEnvDefaults(cmd *cobra.Command) error {
	for _, name := range slices.Sorted(maps.Keys(envDefaults)) {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}
		value, found := os.LookupEnv(envDefaults[name])
		if !found {
			continue
		}
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("%s: %w", envDefaults[name], err)
		}
	}
	return nil
}

// runGraph loads, runs, and tears down the graph described by opts.
func runGraph(ctx context.Context, opts *runOptions, stdout, stderr io.Writer) (err error) {
	if opts.Graph == "" {
		return errors.New("no graph file: use --graph or PKTFLOW_GRAPH")
	}
	for _, endpoint := range opts.Dial {
		if _, _, err := netipx.ParseEndpoint(endpoint); err != nil {
			return fmt.Errorf("--dial %s: %w", endpoint, err)
		}
	}
	logger := newLogger(opts.LogLevel, opts.LogFormat, stderr).With(slog.String("runID", xid.New().String()))

	file, err := graphconf.Load(opts.Graph)
	if err != nil {
		return err
	}
	promReg := prometheus.NewRegistry()
	kinds, err := newKindRegistry(promReg)
	if err != nil {
		return err
	}
	graph, links, err := file.Build(kinds)
	if err != nil {
		return err
	}
	proc, err := dataflow.NewProcessor(graph, links)
	if err != nil {
		return err
	}
	proc.Logger = logger
	if err := file.Apply(proc); err != nil {
		return err
	}
	if opts.ConnectTimeout > 0 {
		proc.ConnectTimeout = opts.ConnectTimeout
	}
	proc.DialAddrs = append(proc.DialAddrs, opts.Dial...)

	collector, err := metrics.NewCollector(promReg)
	if err != nil {
		return err
	}
	proc.AcceptHook(collector)
	if opts.MetricsAddr != "" {
		server := metrics.NewServer(promReg, collector)
		server.Logger = logger
		if err := server.Start(opts.MetricsAddr); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// shutdown failures are logged as metricsShutdownDone
			server.Shutdown(shutdownCtx)
		}()
	}

	if opts.TraceDB != "" {
		rec, openErr := steptrace.Open(opts.TraceDB)
		if openErr != nil {
			return openErr
		}
		rec.Logger = logger
		proc.AcceptHook(rec)
		logger.Info("traceOpened", slog.String("path", opts.TraceDB), slog.String("traceRunID", rec.RunID()))
		defer func() {
			err = errors.Join(err, rec.Close())
		}()
	}

	if err := proc.Setup(ctx); err != nil {
		return errors.Join(err, proc.Teardown())
	}
	for _, addr := range proc.Addrs() {
		logger.Info("linkListening", slog.String("addr", netipx.AddrToAddrPort(addr).String()))
	}
	err = errors.Join(proc.Drive(ctx), proc.Teardown())

	stats := proc.Stats()
	for _, id := range slices.Sorted(maps.Keys(stats)) {
		entry := stats[id]
		fmt.Fprintf(stdout, "node %d: steps=%d consumed=%d emitted=%d\n", id, entry.Steps, entry.Consumed, entry.Emitted)
	}
	return err
}
