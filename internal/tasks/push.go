// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/variant"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/output"
)

func (d *Deps) pushDefinition() *verb.Definition {
	return &verb.Definition{
		Name:        "push",
		Description: "push built or named images to their registry",
		Priority:    0,
		Args:        []verb.Argument{argTag, argVariant, argAppend},
		Func:        d.pushVerb,
	}
}

func (d *Deps) pushVerb(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
	var images []string
	if set := imagesFrom(intents); len(set) > 0 {
		output.Debug("pushing images collected from build intents", "module", module)
		images = sortedImages(set)
	} else {
		output.Debug("pushing images resolved from arguments", "module", module)
		cfg, err := d.Config.Load(module)
		if err != nil {
			return nil, err
		}
		groups, err := variant.Resolve(cfg, args, true)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{})
		for _, group := range groups {
			for _, t := range group.Tags {
				set[t.Full()] = struct{}{}
			}
		}
		images = sortedImages(set)
	}

	plans := make([]*plan.Plan, 0, len(images))
	for _, image := range images {
		plans = append(plans, plan.New("push", module, d.runPush(image), intents, image))
	}
	return plans, nil
}

func (d *Deps) runPush(image string) plan.Func {
	return func(ctx context.Context, p *plan.Plan) error {
		p.Status.SetDescription("push " + image)
		if err := d.Docker.Push(ctx, image); err != nil {
			return err
		}
		p.AddArtifact(image)
		return nil
	}
}
