// SPDX-License-Identifier: Apache-2.0

// Package tasks registers the build/push/resolve/info/readme verbs and the
// plan functions they produce.
package tasks

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/tag"
	"github.com/dbuild-io/dbuild/internal/core/variant"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/docker"
	"github.com/dbuild-io/dbuild/internal/hub"
)

// Argument types owned by this package; variant/tag/append types are shared
// with the variant resolver.
const (
	argTypeBuildArg = "build_arg"
	argTypeRebuild  = "rebuild"
)

// The shared argument grammars of the verbs.
var (
	argTag      = verb.NewArgument(variant.ArgTag, tag.Patterns()...)
	argBuildArg = verb.NewArgument(argTypeBuildArg, regexp.MustCompile(`^([\w_]+)=(.*)$`))
	argVariant  = verb.NewArgument(variant.ArgVariant, regexp.MustCompile(`^(\w[\w_.-]*)$`))
	argRebuild  = verb.NewArgument(argTypeRebuild, regexp.MustCompile(`^@(\w[\w_.-]*)$`))
	argAppend   = verb.NewArgument(variant.ArgAppend, regexp.MustCompile(`^\+$`))
)

// Deps carries the external collaborators injected into every verb.
type Deps struct {
	Docker docker.Backend
	Config *config.Loader

	// HubFactory builds the Docker Hub client on first use. It may return
	// (nil, nil) when no credentials are configured.
	HubFactory func(ctx context.Context) (*hub.Client, error)

	hubOnce   sync.Once
	hubClient *hub.Client
	hubErr    error
}

// NewDeps wires the default collaborators: the docker CLI backend, a config
// loader rooted at basePath, and an environment-driven hub client.
func NewDeps(basePath string) *Deps {
	return &Deps{
		Docker:     docker.NewCLI(),
		Config:     config.NewLoader(basePath),
		HubFactory: hub.NewFromEnv,
	}
}

// hub returns the memoized Docker Hub client.
func (d *Deps) hub(ctx context.Context) (*hub.Client, error) {
	d.hubOnce.Do(func() {
		d.hubClient, d.hubErr = d.HubFactory(ctx)
	})
	return d.hubClient, d.hubErr
}

// Register adds every verb to the registry.
func (d *Deps) Register(reg *verb.Registry) error {
	for _, def := range []*verb.Definition{
		d.infoDefinition(),
		d.buildDefinition(),
		d.pushDefinition(),
		d.resolveDefinition(),
		d.readmeDefinition(),
	} {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// intentImages is the intents key carrying the image set a build produces,
// read by push to avoid re-resolving tags.
const intentImages = "images"

func imagesFrom(intents plan.Intents) map[string]struct{} {
	if set, ok := intents[intentImages].(map[string]struct{}); ok {
		return set
	}
	return nil
}

func sortedImages(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for image := range set {
		out = append(out, image)
	}
	sort.Strings(out)
	return out
}
