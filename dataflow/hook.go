// SPDX-License-Identifier: GPL-3.0-or-later

package dataflow

import "time"

// HookPos identifies where a hook fires.
type HookPos struct {
	Name string
}

var (
	// HookPosBeforeProcess fires before a node processes. The
	// [HookCtx] Item is the [*NodeState].
	HookPosBeforeProcess = &HookPos{Name: "BeforeProcess"}

	// HookPosAfterProcess fires after a node processes. The Item
	// is the [*NodeState] and Detail is a [StepInfo].
	HookPosAfterProcess = &HookPos{Name: "AfterProcess"}

	// HookPosEnqueue fires when a node enters the ready set. The
	// Item is the [*NodeState].
	HookPosEnqueue = &HookPos{Name: "Enqueue"}
)

// HookCtx describes the site where a hook fires.
type HookCtx struct {
	// Pos is the firing position.
	Pos *HookPos

	// Item is the subject of the hook.
	Item any

	// Detail holds optional auxiliary data.
	Detail any
}

// Hook observes the scheduler.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function to the [Hook] interface.
type HookFunc func(ctx HookCtx)

// Func implements [Hook].
func (fx HookFunc) Func(ctx HookCtx) {
	fx(ctx)
}

// StepInfo summarizes a scheduling step.
type StepInfo struct {
	// Seq is the zero-based step number within the run.
	Seq uint64

	// NodeID is the node that processed.
	NodeID int

	// Consumed is the number of packets removed from the input queues.
	Consumed int

	// Emitted is the number of packets appended to the output buffers.
	Emitted int

	// Duration is the time spent inside Process.
	Duration time.Duration
}

// HookableBase provides hook registration and invocation.
//
// The zero value is ready to use.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook calls every hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
