// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"errors"
	"strconv"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLengthBuckets are the payload length buckets used by
// [*Histogram] when Buckets is empty.
var DefaultLengthBuckets = []float64{64, 128, 256, 512, 1024, 1518, 9000}

// Histogram observes the payload length of every packet and
// forwards the packet unchanged.
type Histogram struct {
	dataflow.Base

	// Buckets contains the OPTIONAL upper bounds.
	Buckets []float64

	// Registerer is the OPTIONAL registry where the histogram
	// is registered during Setup.
	Registerer prometheus.Registerer

	hist prometheus.Histogram
}

// NewHistogram creates a [*Histogram].
func NewHistogram(id int, registerer prometheus.Registerer) *Histogram {
	return &Histogram{Base: dataflow.NewBase(id, 1, 1), Registerer: registerer}
}

// Setup implements [dataflow.Node].
func (n *Histogram) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	buckets := n.Buckets
	if len(buckets) <= 0 {
		buckets = DefaultLengthBuckets
	}
	n.hist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "pktflow",
		Name:        "payload_length_bytes",
		Help:        "Length of the payloads observed by histogram nodes.",
		Buckets:     buckets,
		ConstLabels: prometheus.Labels{"node": strconv.Itoa(n.NodeID)},
	})
	if n.Registerer == nil {
		return nil
	}
	err := n.Registerer.Register(n.hist)
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		// the processor is running again with the same registry
		n.hist = already.ExistingCollector.(prometheus.Histogram)
		return nil
	}
	return err
}

// IsReady implements [dataflow.Node].
func (n *Histogram) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Histogram) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	if n.hist != nil {
		n.hist.Observe(float64(len(pkt.Payload)))
	}
	outputs[0] = append(outputs[0], pkt)
	return outputs, nil
}

// Collector returns the underlying histogram, nil before Setup.
func (n *Histogram) Collector() prometheus.Histogram {
	return n.hist
}
