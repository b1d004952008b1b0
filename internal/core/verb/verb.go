// SPDX-License-Identifier: Apache-2.0

// Package verb defines the operation registry, the positional-argument
// classifier, and the plan tree builder that chains verbs together.
package verb

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
)

// Argument declares one typed token pattern of a verb's grammar.
type Argument struct {
	Type     string
	Patterns []*regexp.Regexp
}

// NewArgument builds an Argument from one or more patterns.
func NewArgument(argType string, patterns ...*regexp.Regexp) Argument {
	return Argument{Type: argType, Patterns: patterns}
}

// Value is a classified CLI token.
type Value struct {
	Type   string
	Raw    string
	Groups []string
}

// Func builds plans for one module. Returning an error aborts the whole run
// before anything executes; returning no plans ends the verb chain for the
// module.
type Func func(ctx context.Context, rc *config.RunConfig, args []Value, module string, intents plan.Intents) ([]*plan.Plan, error)

// Definition describes a registered verb.
type Definition struct {
	Name        string
	Aliases     []string
	Description string
	Priority    int
	Args        []Argument
	Func        Func
}

// Registry maps verb names (and aliases) to definitions. It is built once
// per invocation and read-only afterwards.
type Registry struct {
	defs  map[string]*Definition
	names []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition under its name and aliases.
func (r *Registry) Register(d *Definition) error {
	if d.Name == "" {
		return fmt.Errorf("verb name is required")
	}

	for _, name := range append([]string{d.Name}, d.Aliases...) {
		if _, exists := r.defs[name]; exists {
			return fmt.Errorf("verb already registered: %s", name)
		}
		r.defs[name] = d
	}

	r.names = append(r.names, d.Name)
	return nil
}

// Get looks up a verb by name or alias.
func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Has reports whether a token names a registered verb.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Definitions returns all registered definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	names := append([]string(nil), r.names...)
	sort.Strings(names)

	out := make([]*Definition, 0, len(names))
	for _, n := range names {
		out = append(out, r.defs[n])
	}
	return out
}

// Active resolves the requested verb names and orders them for execution:
// highest priority first, command-line order among equals.
func (r *Registry) Active(requested []string) []*Definition {
	out := make([]*Definition, 0, len(requested))
	for _, name := range requested {
		if d, ok := r.defs[name]; ok {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})

	return out
}
