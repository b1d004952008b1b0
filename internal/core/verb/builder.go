// SPDX-License-Identifier: Apache-2.0

package verb

import (
	"context"
	"fmt"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
)

// BuildTree invokes the active verbs in order for one module, growing the
// execution tree inside the arena. Each verb may produce several plans; the
// remaining verbs are then expanded once per plan, with that plan's own
// intents as the inbound payload. A verb that produces no plans ends the
// chain for this module.
//
// Any error from a verb is fatal to the whole run: nothing has been
// scheduled yet, so the caller aborts with no partial side effects.
func BuildTree(ctx context.Context, arena *plan.Arena, rc *config.RunConfig, verbs []*Definition, module string, args map[string][]Value, intents plan.Intents) ([]int, error) {
	if len(verbs) == 0 {
		return nil, nil
	}
	if intents == nil {
		intents = plan.Intents{}
	}

	def := verbs[0]
	plans, err := def.Func(ctx, rc, args[def.Name], module, intents)
	if err != nil {
		return nil, fmt.Errorf("building plan for verb %q on module %q: %w", def.Name, module, err)
	}

	if len(plans) == 0 {
		// no plans from this verb, the branch ends here
		return nil, nil
	}

	ids := make([]int, 0, len(plans))
	for _, p := range plans {
		id := arena.Add(p)
		ids = append(ids, id)

		children, err := BuildTree(ctx, arena, rc, verbs[1:], module, args, p.Intents)
		if err != nil {
			return nil, err
		}

		p.Children = children
		for _, c := range children {
			arena.Get(c).Parent = id
		}
	}

	return ids, nil
}
