// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"fmt"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/variant"
	"github.com/dbuild-io/dbuild/internal/core/verb"
)

func (d *Deps) resolveDefinition() *verb.Definition {
	return &verb.Definition{
		Name:        "resolve",
		Description: "print the tags the arguments resolve to, without building",
		Priority:    0,
		Args:        []verb.Argument{argTag, argVariant, argAppend},
		Func:        d.resolveVerb,
	}
}

func (d *Deps) resolveVerb(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
	cfg, err := d.Config.Load(module)
	if err != nil {
		return nil, err
	}
	groups, err := variant.Resolve(cfg, args, true)
	if err != nil {
		return nil, err
	}

	fmt.Printf("resolved tags for %s:\n", module)
	for _, group := range groups {
		name := group.VariantTag
		if name == "" {
			name = "<none>"
		}
		fmt.Printf("  variant %s:\n", name)
		for _, t := range group.Tags {
			fmt.Printf("    %s\n", t.Full())
		}
	}
	return nil, nil
}
