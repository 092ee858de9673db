// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
)

// Jitter adds to each packet Timestamp a sample drawn from a normal
// distribution, clamped at zero so packets are never moved back.
type Jitter struct {
	dataflow.Base
	Mean   float64
	StdDev float64
	Seed   uint64

	rng *rand.Rand
}

// NewJitter creates a [*Jitter].
func NewJitter(id int, mean, stddev float64, seed uint64) *Jitter {
	return &Jitter{Base: dataflow.NewBase(id, 1, 1), Mean: mean, StdDev: stddev, Seed: seed}
}

// Setup implements [dataflow.Node].
func (n *Jitter) Setup(ctx context.Context, register dataflow.RegisterFunc) error {
	if n.StdDev < 0 {
		return fmt.Errorf("stddev must not be negative, got %v", n.StdDev)
	}
	n.rng = rand.New(rand.NewPCG(n.Seed, n.Seed^0x9e3779b97f4a7c15))
	return nil
}

// IsReady implements [dataflow.Node].
func (n *Jitter) IsReady(inputs []*dataflow.Queue) bool {
	return hasInput(inputs)
}

// Process implements [dataflow.Node].
func (n *Jitter) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	pkt := inputs[0].Pop()
	sample := n.Mean + n.StdDev*n.rng.NormFloat64()
	pkt.Timestamp += int64(max(sample, 0))
	outputs[0] = append(outputs[0], pkt)
	return outputs, nil
}
