// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/docker"
)

func (d *Deps) infoDefinition() *verb.Definition {
	return &verb.Definition{
		Name:        "info",
		Description: "print the build configuration of a module",
		Priority:    10,
		Func:        d.infoVerb,
	}
}

func (d *Deps) infoVerb(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
	cfg, err := d.Config.Load(module)
	if err != nil {
		return nil, err
	}
	dockerfile, err := docker.LoadDockerfile(rc.BasePath, module)
	if err != nil {
		return nil, err
	}

	fmt.Printf("module %s:\n", module)
	fmt.Printf("  instructions: %d\n", dockerfile.Steps())
	if targets := dockerfile.RebuildTargets(); len(targets) > 0 {
		fmt.Printf("  rebuild targets: %s\n", strings.Join(targets, ", "))
	}
	if cfg.Repository != "" {
		fmt.Printf("  repository: %s\n", cfg.Repository)
	}
	for key, value := range cfg.Args {
		fmt.Printf("  arg %s=%s\n", key, value)
	}
	for _, v := range cfg.Variants {
		line := "  variant " + v.Tag
		if len(v.Aliases) > 0 {
			line += " (" + strings.Join(v.Aliases, ", ") + ")"
		}
		fmt.Println(line)
	}
	return nil, nil
}
