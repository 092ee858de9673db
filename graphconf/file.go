// SPDX-License-Identifier: GPL-3.0-or-later

package graphconf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/zclconf/go-cty/cty"
)

// ErrInvalidGraph indicates a semantically invalid run file.
var ErrInvalidGraph = errors.New("graphconf: invalid graph")

// File is a decoded run file.
type File struct {
	// Nodes contains the node blocks.
	Nodes []*NodeBlock `hcl:"node,block"`

	// Links contains the link blocks.
	Links []*LinkBlock `hcl:"link,block"`

	// Run contains the OPTIONAL run settings.
	Run *RunBlock `hcl:"run,block"`

	// ectx is the context used to evaluate expressions.
	ectx *hcl.EvalContext
}

// NodeBlock is a node "name" { ... } block.
type NodeBlock struct {
	Name   string   `hcl:"name,label"`
	ID     int      `hcl:"id"`
	Kind   string   `hcl:"kind"`
	Remain hcl.Body `hcl:",remain"`
}

// LinkBlock connects the from output port to the to input port,
// both written as "name.port".
type LinkBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

// RunBlock contains processor settings.
type RunBlock struct {
	ConnectTimeout string   `hcl:"connect_timeout,optional"`
	IdleBackoff    string   `hcl:"idle_backoff,optional"`
	Dial           []string `hcl:"dial,optional"`
	OutboundDelay  int64    `hcl:"outbound_delay,optional"`
}

// Load reads and decodes the run file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path, os.Environ())
}

// Parse decodes a run file from memory. The environ entries, in the
// "KEY=value" format of [os.Environ], are visible as the env object.
func Parse(src []byte, filename string, environ []string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	file := &File{ectx: newEvalContext(environ)}
	if diags := gohcl.DecodeBody(hclFile.Body, file.ectx, file); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	return file, nil
}

func newEvalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || !hclsyntax.ValidIdentifier(key) {
			continue
		}
		vars[key] = cty.StringVal(value)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

// Build creates the nodes using reg and resolves the links.
func (f *File) Build(reg *Registry) (map[int]dataflow.Node, dataflow.Links, error) {
	nodes := make(map[int]dataflow.Node, len(f.Nodes))
	byName := make(map[string]int, len(f.Nodes))
	for _, block := range f.Nodes {
		if _, found := byName[block.Name]; found {
			return nil, nil, fmt.Errorf("%w: duplicate node name %q", ErrInvalidGraph, block.Name)
		}
		if _, found := nodes[block.ID]; found {
			return nil, nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidGraph, block.ID)
		}
		node, err := reg.Build(block.Kind, block.ID, block.Remain, f.ectx)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", block.Name, err)
		}
		nodes[block.ID] = node
		byName[block.Name] = block.ID
	}

	links := dataflow.Links{}
	for _, block := range f.Links {
		from, err := resolvePort(byName, block.From)
		if err != nil {
			return nil, nil, err
		}
		to, err := resolvePort(byName, block.To)
		if err != nil {
			return nil, nil, err
		}
		if err := links.Connect(from, to); err != nil {
			return nil, nil, err
		}
	}
	return nodes, links, nil
}

// resolvePort converts "name.port" into a [dataflow.PortID].
func resolvePort(byName map[string]int, ref string) (dataflow.PortID, error) {
	name, portstr, found := cutLast(ref, ".")
	if !found {
		return dataflow.PortID{}, fmt.Errorf("%w: %q: expected name.port", ErrInvalidGraph, ref)
	}
	id, found := byName[name]
	if !found {
		return dataflow.PortID{}, fmt.Errorf("%w: %q: unknown node %q", ErrInvalidGraph, ref, name)
	}
	port, err := strconv.Atoi(portstr)
	if err != nil {
		return dataflow.PortID{}, fmt.Errorf("%w: %q: %w", ErrInvalidGraph, ref, err)
	}
	return dataflow.PortID{Node: id, Port: port}, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// Apply copies the run settings into the processor.
func (f *File) Apply(proc *dataflow.Processor) error {
	if f.Run == nil {
		return nil
	}
	if f.Run.ConnectTimeout != "" {
		d, err := time.ParseDuration(f.Run.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("%w: connect_timeout: %w", ErrInvalidGraph, err)
		}
		proc.ConnectTimeout = d
	}
	if f.Run.IdleBackoff != "" {
		d, err := time.ParseDuration(f.Run.IdleBackoff)
		if err != nil {
			return fmt.Errorf("%w: idle_backoff: %w", ErrInvalidGraph, err)
		}
		proc.IdleBackoff = d
	}
	if f.Run.OutboundDelay < 0 {
		return fmt.Errorf("%w: outbound_delay must not be negative", ErrInvalidGraph)
	}
	proc.OutboundDelay = uint64(f.Run.OutboundDelay)
	proc.DialAddrs = append(proc.DialAddrs, f.Run.Dial...)
	return nil
}
