// SPDX-License-Identifier: GPL-3.0-or-later

package graphconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/pktflow-project/pktflow/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNode is a node with configurable ports that is never ready.
type stubNode struct {
	dataflow.Base
	Label string
}

func (n *stubNode) IsReady(inputs []*dataflow.Queue) bool { return false }

func (n *stubNode) Process(inputs []*dataflow.Queue, outputs [][]*packet.Packet) ([][]*packet.Packet, error) {
	return outputs, nil
}

type stubConfig struct {
	Inputs  int    `hcl:"inputs,optional"`
	Outputs int    `hcl:"outputs,optional"`
	Label   string `hcl:"label,optional"`
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := &Registry{}
	require.NoError(t, reg.Register("stub", func(id int, body hcl.Body, ectx *hcl.EvalContext) (dataflow.Node, error) {
		var cfg stubConfig
		if err := DecodeBody(body, ectx, &cfg); err != nil {
			return nil, err
		}
		return &stubNode{Base: dataflow.NewBase(id, cfg.Inputs, cfg.Outputs), Label: cfg.Label}, nil
	}))
	return reg
}

const sample = `
node "a" {
  id      = 10
  kind    = "stub"
  outputs = 2
  label   = env.GRAPH_LABEL
}

node "b.with.dots" {
  id     = 20
  kind   = "stub"
  inputs = 1
}

link {
  from = "a.1"
  to   = "b.with.dots.0"
}

run {
  connect_timeout = "3s"
  idle_backoff    = "2ms"
  dial            = ["127.0.0.1:9000"]
  outbound_delay  = 25
}
`

func TestParseAndBuild(t *testing.T) {
	file, err := Parse([]byte(sample), "sample.hcl", []string{"GRAPH_LABEL=from-env", "=ignored", "NOT-IDENT?=x"})
	require.NoError(t, err)
	require.Len(t, file.Nodes, 2)
	assert.Equal(t, "a", file.Nodes[0].Name)
	assert.Equal(t, 10, file.Nodes[0].ID)

	nodes, links, err := file.Build(newTestRegistry(t))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "from-env", nodes[10].(*stubNode).Label)

	dst, found := links.Lookup(10, 1)
	require.True(t, found)
	assert.Equal(t, dataflow.PortID{Node: 20, Port: 0}, dst)

	proc, err := dataflow.NewProcessor(nodes, links)
	require.NoError(t, err)
	require.NoError(t, file.Apply(proc))
	assert.Equal(t, 3*time.Second, proc.ConnectTimeout)
	assert.Equal(t, 2*time.Millisecond, proc.IdleBackoff)
	assert.Equal(t, []string{"127.0.0.1:9000"}, proc.DialAddrs)
	assert.Equal(t, uint64(25), proc.OutboundDelay)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.hcl")
	t.Setenv("GRAPH_LABEL", "loaded")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	file, err := Load(path)
	require.NoError(t, err)
	nodes, _, err := file.Build(newTestRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, "loaded", nodes[10].(*stubNode).Label)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	type testCase struct {
		name string
		src  string
		err  error
	}
	cases := []testCase{{
		name: "unknown kind",
		src:  `node "a" {
  id   = 1
  kind = "nope"
}`,
		err:  ErrUnknownKind,
	}, {
		name: "duplicate id",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
node "b" {
  id   = 1
  kind = "stub"
}`,
		err: ErrInvalidGraph,
	}, {
		name: "duplicate name",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
node "a" {
  id   = 2
  kind = "stub"
}`,
		err: ErrInvalidGraph,
	}, {
		name: "unknown node in link",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
link {
  from = "a.0"
  to   = "z.0"
}`,
		err: ErrInvalidGraph,
	}, {
		name: "malformed port",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
link {
  from = "a"
  to   = "a.0"
}`,
		err: ErrInvalidGraph,
	}, {
		name: "port is not a number",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
link {
  from = "a.x"
  to   = "a.0"
}`,
		err: ErrInvalidGraph,
	}, {
		name: "output linked twice",
		src: `node "a" {
  id   = 1
  kind = "stub"
}
link {
  from = "a.0"
  to   = "a.0"
}
link {
  from = "a.0"
  to   = "a.1"
}`,
		err: dataflow.ErrInvalidLink,
	}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file, err := Parse([]byte(tc.src), "bad.hcl", nil)
			require.NoError(t, err)
			_, _, err = file.Build(newTestRegistry(t))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`node "a" {`), "broken.hcl", nil)
	assert.Error(t, err)

	_, err = Parse([]byte(`node "a" { kind = "stub" }`), "noid.hcl", nil)
	assert.Error(t, err)
}

func TestApplyErrors(t *testing.T) {
	proc, err := dataflow.NewProcessor(nil, nil)
	require.NoError(t, err)
	for _, src := range []string{
		`run { connect_timeout = "soon" }`,
		`run { idle_backoff = "often" }`,
		`run { outbound_delay = -1 }`,
	} {
		file, err := Parse([]byte(src), "run.hcl", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, file.Apply(proc), ErrInvalidGraph)
	}
}

func TestRegistry(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Equal(t, []string{"stub"}, reg.Kinds())
	assert.ErrorIs(t, reg.Register("stub", nil), ErrDuplicateKind)
}
