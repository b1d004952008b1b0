// SPDX-License-Identifier: Apache-2.0

// Package variant expands requested variant names against a module's
// configuration and resolves the image tags of each expansion.
package variant

import (
	"errors"
	"fmt"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/tag"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/output"
)

// Argument types shared by the verbs that resolve variants.
const (
	ArgTag     = "tag"
	ArgVariant = "variant"
	ArgAppend  = "append"
)

// All expands to every declared variant of the module.
const All = "all"

// Group is the resolution result for one variant. VariantTag is empty for
// the anonymous group produced when no variants were requested.
type Group struct {
	VariantTag string
	Tags       []tag.Tag
}

// ErrVariantNotFound is wrapped by canonicalization failures.
var ErrVariantNotFound = errors.New("variant not found")

// Canonical maps requested variant names to declared variant tags: "all"
// expands to every declared tag, any other name must equal a declared tag or
// one of its aliases. Unknown names are each logged before the lookup fails,
// so a bad invocation surfaces every mistake at once.
func Canonical(cfg *config.Module, requested []string) ([]string, error) {
	var canonical []string
	seen := make(map[string]bool)

	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			canonical = append(canonical, tag)
		}
	}

	var missing []string
	for _, name := range requested {
		if name == All {
			for _, declared := range cfg.Variants {
				add(declared.Tag)
			}
			continue
		}

		found := false
		for _, declared := range cfg.Variants {
			if name == declared.Tag {
				add(name)
				found = true
				continue
			}

			for _, alias := range declared.Aliases {
				if name == alias {
					add(declared.Tag)
					found = true
					break
				}
			}
		}

		if !found {
			output.Error("variant not found in build.yml, note that the same "+
				"variants must exist in all modules",
				"repository", cfg.Repository, "variant", name)
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrVariantNotFound, missing)
	}

	return canonical, nil
}

// Resolve expands the verb's classified arguments into resolved tag groups.
// requireTag is relaxed (false) by callers that only need a repository, e.g.
// metadata updates.
func Resolve(cfg *config.Module, args []verb.Value, requireTag bool) ([]Group, error) {
	base := tag.Tag{}.Mutate(tag.Fields{Repository: cfg.Repository})

	var requested []string
	for _, v := range verb.ValuesOf(args, ArgVariant) {
		requested = append(requested, v.Groups[0])
	}

	if len(requested) > 0 && !cfg.HasVariants() {
		return nil, fmt.Errorf("no variants defined in %s", config.ConfigFileName)
	}

	tagTokens := rawValues(verb.ValuesOf(args, ArgTag))
	appendMode := len(verb.ValuesOf(args, ArgAppend)) > 0

	canonical, err := Canonical(cfg, requested)
	if err != nil {
		return nil, err
	}

	if len(canonical) == 0 {
		output.Info("no variant given, using inferred base tag", "base", base.Full())

		tags, err := tag.Resolve(tagTokens, base, requireTag)
		if err != nil {
			return nil, err
		}
		if len(tags) == 0 {
			return nil, fmt.Errorf("no valid image tag given in arguments")
		}

		return []Group{{VariantTag: "", Tags: tags}}, nil
	}

	groups := make([]Group, 0, len(canonical))
	for _, variantTag := range canonical {
		declared := cfg.Variant(variantTag)

		variantBase := base.Mutate(tag.Fields{Tag: variantTag})
		if declared.Repository != "" {
			variantBase = variantBase.Mutate(tag.Fields{Repository: declared.Repository})
		}

		var tags []tag.Tag
		if variantBase.IsComplete(true) {
			tags = append(tags, variantBase)
		}

		aliasTags, err := tag.Resolve(declared.Aliases, variantBase, true)
		if err != nil {
			return nil, fmt.Errorf("resolving aliases of variant %q: %w", variantTag, err)
		}
		tags = append(tags, aliasTags...)

		if len(tagTokens) > 0 {
			resolved, err := tag.Resolve(tagTokens, variantBase, requireTag)
			if err != nil {
				return nil, err
			}

			if appendMode {
				tags = append(tags, resolved...)
			} else {
				tags = resolved
			}
		}

		if len(tags) == 0 {
			return nil, fmt.Errorf("at least one complete tag is required for "+
				"variant %q, base: %s", variantTag, variantBase.Full())
		}

		groups = append(groups, Group{VariantTag: variantTag, Tags: tags})
	}

	return groups, nil
}

func rawValues(values []verb.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Raw)
	}
	return out
}
