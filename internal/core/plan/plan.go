// SPDX-License-Identifier: Apache-2.0

// Package plan holds the execution tree: plans produced by verbs, their
// statuses, and the arena that owns them.
package plan

import (
	"context"
	"fmt"
	"sync"
)

// Intents is the opaque payload a plan hands down to the plans built by
// later verbs. It flows strictly parent to child.
type Intents map[string]interface{}

// Clone returns a shallow copy safe to extend without touching the parent's
// payload.
func (i Intents) Clone() Intents {
	out := make(Intents, len(i))
	for k, v := range i {
		out[k] = v
	}
	return out
}

// Func executes one plan. The context is cancelled when a second interrupt
// asks running work to stop; implementations must thread it into any
// external I/O they start.
type Func func(ctx context.Context, p *Plan) error

// Plan is one scheduled unit of work in a module's execution tree. Parent
// and Children are arena IDs; NoParent marks a root.
type Plan struct {
	ID     int
	Verb   string
	Module string
	Run    Func

	Intents Intents
	Args    interface{}

	Parent   int
	Children []int

	Status *ExecutionStatus

	mu        sync.Mutex
	artifacts []string
}

// NoParent is the Parent value of a root plan.
const NoParent = -1

// New creates an unscheduled plan. The arena assigns its ID.
func New(verb, module string, run Func, intents Intents, args interface{}) *Plan {
	if intents == nil {
		intents = Intents{}
	}
	return &Plan{
		Verb:    verb,
		Module:  module,
		Run:     run,
		Intents: intents,
		Args:    args,
		Parent:  NoParent,
		Status:  NewStatus(),
	}
}

// AddArtifact records a produced artifact, e.g. a resolved image reference.
func (p *Plan) AddArtifact(a string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifacts = append(p.artifacts, a)
}

// Artifacts returns a copy of the produced artifacts.
func (p *Plan) Artifacts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.artifacts))
	copy(out, p.artifacts)
	return out
}

// String is used by the --show-plans tree dump.
func (p *Plan) String() string {
	return fmt.Sprintf("Plan(id=%d, verb=%s, module=%s, args=%v)", p.ID, p.Verb, p.Module, p.Args)
}
