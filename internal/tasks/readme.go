// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/variant"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/hub"
	"github.com/dbuild-io/dbuild/internal/output"
)

func (d *Deps) readmeDefinition() *verb.Definition {
	return &verb.Definition{
		Name:        "readme",
		Description: "publish the module README to Docker Hub",
		Priority:    0,
		Args:        []verb.Argument{argTag, argVariant, argAppend},
		Func:        d.readmeVerb,
	}
}

func (d *Deps) readmeVerb(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
	readmePath := filepath.Join(rc.BasePath, module, "README.md")
	if _, err := os.Stat(readmePath); err != nil {
		output.Info("module has no README.md, nothing to publish", "module", module)
		return []*plan.Plan{skipReadme(module, intents)}, nil
	}

	client, err := d.hub(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		output.Warn("no Docker Hub credentials configured, skipping README update", "module", module)
		return []*plan.Plan{skipReadme(module, intents)}, nil
	}

	cfg, err := d.Config.Load(module)
	if err != nil {
		return nil, err
	}
	// Tags are optional here, the README belongs to the repository.
	groups, err := variant.Resolve(cfg, args, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var plans []*plan.Plan
	for _, group := range groups {
		for _, t := range group.Tags {
			if t.Registry != "" {
				output.Debug("private registries carry no README, skipping", "tag", t.Full())
				continue
			}
			repository := t.Repository()
			if _, ok := seen[repository]; ok {
				continue
			}
			seen[repository] = struct{}{}
			plans = append(plans, plan.New("readme", module, d.runReadme(client, repository, readmePath), intents, repository))
		}
	}
	if len(plans) == 0 {
		output.Debug("no Docker Hub repositories resolved for README update", "module", module)
		return []*plan.Plan{skipReadme(module, intents)}, nil
	}
	return plans, nil
}

func skipReadme(module string, intents plan.Intents) *plan.Plan {
	return plan.New("readme", module, func(ctx context.Context, p *plan.Plan) error {
		p.Status.SetDescription("readme skipped")
		return nil
	}, intents, "skip")
}

func (d *Deps) runReadme(client *hub.Client, repository, readmePath string) plan.Func {
	return func(ctx context.Context, p *plan.Plan) error {
		p.Status.SetDescription("readme " + repository)
		data, err := os.ReadFile(readmePath)
		if err != nil {
			return err
		}
		if err := client.UpdateReadme(ctx, repository, string(data)); err != nil {
			// A rejected metadata update must not fail the build.
			output.Warn("Docker Hub rejected README update", "repository", repository, "error", err)
			return nil
		}
		output.Info("updated README", "repository", repository)
		return nil
	}
}
