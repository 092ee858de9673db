// SPDX-License-Identifier: GPL-3.0-or-later

package graphconf

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/pktflow-project/pktflow/dataflow"
)

// ErrUnknownKind indicates that no [Builder] exists for a kind.
var ErrUnknownKind = errors.New("graphconf: unknown node kind")

// ErrDuplicateKind indicates that a kind was registered twice.
var ErrDuplicateKind = errors.New("graphconf: duplicate node kind")

// Builder creates a node from the kind-specific attributes in body.
type Builder func(id int, body hcl.Body, ectx *hcl.EvalContext) (dataflow.Node, error)

// Registry maps node kinds to their [Builder].
//
// The zero value is ready to use.
type Registry struct {
	builders map[string]Builder
	mu       sync.Mutex
}

// Register associates kind with builder.
func (r *Registry) Register(kind string, builder Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builders == nil {
		r.builders = make(map[string]Builder)
	}
	if _, found := r.builders[kind]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.builders[kind] = builder
	return nil
}

// Kinds returns the registered kinds in lexicographic order.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.builders))
}

// Build creates a node of the given kind.
func (r *Registry) Build(kind string, id int, body hcl.Body, ectx *hcl.EvalContext) (dataflow.Node, error) {
	r.mu.Lock()
	builder := r.builders[kind]
	r.mu.Unlock()
	if builder == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return builder(id, body, ectx)
}

// DecodeBody decodes body into the struct pointed by cfg using gohcl
// struct tags and converts diagnostics into an error.
func DecodeBody(body hcl.Body, ectx *hcl.EvalContext, cfg any) error {
	if body == nil {
		return nil
	}
	if diags := gohcl.DecodeBody(body, ectx, cfg); diags.HasErrors() {
		return diags
	}
	return nil
}
