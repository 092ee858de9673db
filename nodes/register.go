// SPDX-License-Identifier: GPL-3.0-or-later

package nodes

import (
	"errors"

	"github.com/gopacket/gopacket/layers"
	"github.com/hashicorp/hcl/v2"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/graphconf"
	"github.com/prometheus/client_golang/prometheus"
)

type countSourceConfig struct {
	Packets   int    `hcl:"packets"`
	Size      int    `hcl:"size,optional"`
	EtherType uint16 `hcl:"ether_type,optional"`
}

type repeaterConfig struct {
	Repeats int `hcl:"repeats"`
}

type deleteConfig struct {
	Start int `hcl:"start,optional"`
	Stop  int `hcl:"stop"`
	Step  int `hcl:"step,optional"`
}

type demuxConfig struct {
	Outputs int    `hcl:"outputs"`
	Mode    string `hcl:"mode,optional"`
}

type muxConfig struct {
	Inputs int `hcl:"inputs"`
}

type switchConfig struct {
	Layer    string   `hcl:"layer"`
	Field    string   `hcl:"field"`
	Matchers []string `hcl:"matchers"`
}

type histogramConfig struct {
	Buckets []float64 `hcl:"buckets,optional"`
}

type jitterConfig struct {
	Mean   float64 `hcl:"mean,optional"`
	StdDev float64 `hcl:"stddev"`
	Seed   int64   `hcl:"seed,optional"`
}

type pathConfig struct {
	Path string `hcl:"path"`
}

type externalConfig struct {
	Address string `hcl:"address,optional"`
	Port    int    `hcl:"port"`
}

// defaultAddress is the address external nodes bind when none is configured.
const defaultAddress = "127.0.0.1"

// noConfig rejects any kind-specific attribute.
type noConfig struct{}

// build returns a [graphconf.Builder] decoding the body into a new
// value of type T before calling create.
func build[T any](create func(id int, cfg *T) (dataflow.Node, error)) graphconf.Builder {
	return func(id int, body hcl.Body, ectx *hcl.EvalContext) (dataflow.Node, error) {
		cfg := new(T)
		if err := graphconf.DecodeBody(body, ectx, cfg); err != nil {
			return nil, err
		}
		return create(id, cfg)
	}
}

// Register installs the reference kinds into reg. Histogram nodes
// register their collectors with registerer, which may be nil.
func Register(reg *graphconf.Registry, registerer prometheus.Registerer) error {
	builders := map[string]graphconf.Builder{
		"count_source": build(func(id int, cfg *countSourceConfig) (dataflow.Node, error) {
			node := NewCountSource(id, cfg.Packets)
			node.Size = cfg.Size
			node.EtherType = layers.EthernetType(cfg.EtherType)
			return node, nil
		}),
		"null_sink": build(func(id int, _ *noConfig) (dataflow.Node, error) {
			return NewNullSink(id), nil
		}),
		"counter": build(func(id int, _ *noConfig) (dataflow.Node, error) {
			return NewCounter(id), nil
		}),
		"repeater": build(func(id int, cfg *repeaterConfig) (dataflow.Node, error) {
			return NewRepeater(id, cfg.Repeats), nil
		}),
		"delete": build(func(id int, cfg *deleteConfig) (dataflow.Node, error) {
			step := cfg.Step
			if step == 0 {
				step = 1
			}
			return NewDelete(id, cfg.Start, cfg.Stop, step), nil
		}),
		"demux": build(func(id int, cfg *demuxConfig) (dataflow.Node, error) {
			mode := DeMuxMode(cfg.Mode)
			if mode == "" {
				mode = DeMuxAlternate
			}
			return NewDeMux(id, cfg.Outputs, mode), nil
		}),
		"mux": build(func(id int, cfg *muxConfig) (dataflow.Node, error) {
			return NewMux(id, cfg.Inputs), nil
		}),
		"compare": build(func(id int, _ *noConfig) (dataflow.Node, error) {
			return NewCompare(id), nil
		}),
		"switch": build(func(id int, cfg *switchConfig) (dataflow.Node, error) {
			if len(cfg.Matchers) <= 0 {
				return nil, ErrEmptyMatcher
			}
			return NewSwitch(id, normalizeLayer(cfg.Layer), cfg.Field, cfg.Matchers), nil
		}),
		"histogram": build(func(id int, cfg *histogramConfig) (dataflow.Node, error) {
			node := NewHistogram(id, registerer)
			node.Buckets = cfg.Buckets
			return node, nil
		}),
		"jitter": build(func(id int, cfg *jitterConfig) (dataflow.Node, error) {
			return NewJitter(id, cfg.Mean, cfg.StdDev, uint64(cfg.Seed)), nil
		}),
		"pcap_source": build(func(id int, cfg *pathConfig) (dataflow.Node, error) {
			return NewPcapSource(id, cfg.Path), nil
		}),
		"pcap_sink": build(func(id int, cfg *pathConfig) (dataflow.Node, error) {
			return NewPcapSink(id, cfg.Path), nil
		}),
		"external_source": build(func(id int, cfg *externalConfig) (dataflow.Node, error) {
			return NewExternalSource(id, addressOrDefault(cfg.Address), cfg.Port), nil
		}),
		"external_sink": build(func(id int, cfg *externalConfig) (dataflow.Node, error) {
			return NewExternalSink(id, addressOrDefault(cfg.Address), cfg.Port), nil
		}),
	}
	var errv []error
	for kind, builder := range builders {
		if err := reg.Register(kind, builder); err != nil {
			errv = append(errv, err)
		}
	}
	return errors.Join(errv...)
}

func addressOrDefault(address string) string {
	if address == "" {
		return defaultAddress
	}
	return address
}
