// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/tag"
	"github.com/dbuild-io/dbuild/internal/core/variant"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/docker"
	"github.com/dbuild-io/dbuild/internal/output"
)

func (d *Deps) buildDefinition() *verb.Definition {
	return &verb.Definition{
		Name:        "build",
		Description: "build module images, one plan per variant",
		Priority:    1,
		Args:        []verb.Argument{argTag, argBuildArg, argVariant, argRebuild, argAppend},
		Func:        d.buildVerb,
	}
}

// buildArgs is the payload of a single build plan.
type buildArgs struct {
	Dir    string
	Tags   []tag.Tag
	Args   map[string]string
	Log    string
	Stream bool
}

func (a *buildArgs) String() string {
	images := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		images[i] = t.Full()
	}
	return strings.Join(images, ", ")
}

func (d *Deps) buildVerb(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
	if err := d.Docker.VerifyVersion(ctx); err != nil {
		return nil, err
	}
	cfg, err := d.Config.Load(module)
	if err != nil {
		return nil, err
	}
	dockerfile, err := docker.LoadDockerfile(rc.BasePath, module)
	if err != nil {
		return nil, err
	}

	baseArgs := docker.ProxyArgs()
	for key, value := range cfg.Args {
		baseArgs[key] = value
	}
	var rebuildTargets []string
	for _, value := range verb.ValuesOf(args, argTypeRebuild) {
		rebuildTargets = append(rebuildTargets, value.Groups[0])
	}
	for _, value := range verb.ValuesOf(args, argTypeBuildArg) {
		baseArgs[value.Groups[0]] = value.Groups[1]
	}
	output.Debug("resolved build parameters", "module", module, "build_args", baseArgs, "rebuild_targets", rebuildTargets)

	if len(rebuildTargets) > 0 {
		if err := applyRebuilds(dockerfile, module, rebuildTargets, baseArgs); err != nil {
			return nil, err
		}
	}

	groups, err := variant.Resolve(cfg, args, true)
	if err != nil {
		return nil, err
	}

	var plans []*plan.Plan
	for _, group := range groups {
		effective := make(map[string]string)
		if declared := cfg.Variant(group.VariantTag); declared != nil {
			for key, value := range declared.Args {
				effective[key] = value
			}
		}
		for key, value := range baseArgs {
			effective[key] = value
		}

		variantIntents := intents.Clone()
		images := imagesFrom(variantIntents)
		if images == nil {
			images = make(map[string]struct{})
			variantIntents[intentImages] = images
		}
		for _, t := range group.Tags {
			images[t.Full()] = struct{}{}
		}

		logFile := ""
		if rc.BuildLogDir != "" {
			name := fmt.Sprintf("%s-%s", time.Now().Format("2006-01-02-15-04-05"), module)
			if group.VariantTag != "" {
				name += "-" + group.VariantTag
			}
			logFile = filepath.Join(rc.BuildLogDir, name+".log")
		}

		payload := &buildArgs{
			Dir:    filepath.Join(rc.BasePath, module),
			Tags:   group.Tags,
			Args:   effective,
			Log:    logFile,
			Stream: rc.BuildLog,
		}
		p := plan.New("build", module, d.runBuild(payload), variantIntents, payload)
		p.Status.SetTotal(int64(dockerfile.Steps()))
		plans = append(plans, p)
	}
	return plans, nil
}

// applyRebuilds validates the requested @target tokens against the ARG
// instructions of the Dockerfile and sets a fresh timestamp for each so the
// matching layer cache is invalidated.
func applyRebuilds(dockerfile *docker.Dockerfile, module string, targets []string, buildArgs map[string]string) error {
	valid := dockerfile.RebuildTargets()
	if len(valid) == 0 {
		return fmt.Errorf("module %s declares no rebuild targets, cannot rebuild: %s", module, strings.Join(targets, ", "))
	}
	known := make(map[string]struct{}, len(valid))
	for _, target := range valid {
		known[target] = struct{}{}
	}
	stamp := time.Now().Format(time.RFC3339)
	for _, target := range targets {
		canonical := strings.ToLower(target)
		if _, ok := known[canonical]; !ok {
			return fmt.Errorf("invalid rebuild target %q for module %s, valid targets: %s", target, module, strings.Join(valid, ", "))
		}
		buildArgs["REBUILD_"+strings.ToUpper(canonical)] = stamp
	}
	return nil
}

func (d *Deps) runBuild(a *buildArgs) plan.Func {
	return func(ctx context.Context, p *plan.Plan) error {
		// Sibling verbs of the same module may run while an image bakes.
		p.Status.SetBlocking(false)

		primary := a.Tags[0].Full()
		p.Status.SetDescription("build " + primary)

		var logWriter io.Writer
		if a.Log != "" {
			f, err := os.Create(a.Log)
			if err != nil {
				return fmt.Errorf("creating build log: %w", err)
			}
			defer f.Close()
			logWriter = f
		}
		var onLine func(string)
		if a.Stream {
			module := p.Module
			onLine = func(line string) {
				output.Info("docker: "+line, "module", module)
			}
		}

		opts := docker.BuildOptions{
			Dir:       a.Dir,
			Tag:       primary,
			BuildArgs: a.Args,
			LogWriter: logWriter,
			OnLine:    onLine,
			OnStep: func(step, total int, instruction, snippet string) {
				p.Status.SetCurrent(int64(step))
				p.Status.SetDescription(fmt.Sprintf("build %s %s%s", primary, instruction, snippet))
			},
		}
		if err := d.Docker.Build(ctx, opts); err != nil {
			return err
		}
		p.AddArtifact(primary)
		p.Status.SetCurrent(p.Status.Total())

		for _, extra := range a.Tags[1:] {
			full := extra.Full()
			p.Status.SetDescription("tag " + full)
			if err := d.Docker.Tag(ctx, primary, full); err != nil {
				return err
			}
			p.AddArtifact(full)
		}
		return nil
	}
}
