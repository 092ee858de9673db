// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exports scheduler counters using Prometheus.
package metrics

import (
	"strconv"
	"sync"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/prometheus/client_golang/prometheus"
)

// NodeCounters is a snapshot of the counters of a node.
type NodeCounters struct {
	Steps    uint64 `json:"steps"`
	Consumed uint64 `json:"consumed"`
	Emitted  uint64 `json:"emitted"`
}

// Collector is a [dataflow.Hook] counting steps and emitted packets
// per node.
//
// Construct using [NewCollector].
type Collector struct {
	steps    *prometheus.CounterVec
	emitted  *prometheus.CounterVec
	consumed *prometheus.CounterVec

	// snapshot mirrors the counters for the JSON API.
	snapshot map[int]NodeCounters
	mu       sync.Mutex
}

var _ dataflow.Hook = &Collector{}

// NewCollector creates a [*Collector] and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pktflow",
			Name:      "node_steps_total",
			Help:      "Number of scheduling steps per node.",
		}, []string{"node"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pktflow",
			Name:      "node_emitted_total",
			Help:      "Number of packets emitted per node.",
		}, []string{"node"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pktflow",
			Name:      "node_consumed_total",
			Help:      "Number of packets consumed per node.",
		}, []string{"node"}),
		snapshot: make(map[int]NodeCounters),
	}
	for _, collector := range []prometheus.Collector{c.steps, c.emitted, c.consumed} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Func implements [dataflow.Hook].
func (c *Collector) Func(ctx dataflow.HookCtx) {
	if ctx.Pos != dataflow.HookPosAfterProcess {
		return
	}
	info, ok := ctx.Detail.(dataflow.StepInfo)
	if !ok {
		return
	}
	label := strconv.Itoa(info.NodeID)
	c.steps.WithLabelValues(label).Inc()
	c.emitted.WithLabelValues(label).Add(float64(info.Emitted))
	c.consumed.WithLabelValues(label).Add(float64(max(info.Consumed, 0)))

	c.mu.Lock()
	entry := c.snapshot[info.NodeID]
	entry.Steps++
	entry.Emitted += uint64(info.Emitted)
	entry.Consumed += uint64(max(info.Consumed, 0))
	c.snapshot[info.NodeID] = entry
	c.mu.Unlock()
}

// Snapshot returns a copy of the per-node counters.
func (c *Collector) Snapshot() map[int]NodeCounters {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]NodeCounters, len(c.snapshot))
	for id, entry := range c.snapshot {
		out[id] = entry
	}
	return out
}
