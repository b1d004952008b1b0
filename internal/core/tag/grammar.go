// SPDX-License-Identifier: Apache-2.0

package tag

import (
	"fmt"
	"regexp"
)

// The token grammar. Patterns are tried in this exact order and the first
// match wins; some later patterns are structurally ambiguous supersets of
// earlier ones (full vs. full-implicit), so the order is load-bearing.
var (
	// only a registry, e.g. repo.example.com:1234
	reRegistry = regexp.MustCompile(`^([\w.-]+:\d+)$`)

	// only a namespace, e.g. someuser/
	reNamespace = regexp.MustCompile(`^(\w[\w.-]*)/$`)

	// only an image, e.g. /someimage
	reImage = regexp.MustCompile(`^/(\w[\w_.-]*)$`)

	// a repository (namespace + image, no tag), e.g. someuser/someimage
	reRepository = regexp.MustCompile(`^(\w[\w.-]*)/(\w[\w.-]*)$`)

	// only a tag, e.g. :tag
	reTag = regexp.MustCompile(`^:(\w[\w_.-]*)$`)

	// an image with a tag, e.g. /someimage:tag
	reTaggedImage = regexp.MustCompile(`^/(\w[\w_.-]*):(\w[\w_.-]*)$`)

	// an untagged registry and namespace, e.g. repo.example.com:1234/ns
	reRegistryNamespace = regexp.MustCompile(`^([\w.-]+:\d+)/(\w[\w.-]*)$`)

	// an untagged registry and repository, e.g. repo.example.com:1234/ns/image
	reRegistryRepository = regexp.MustCompile(`^([\w.-]+:\d+)/(\w[\w.-]*)/(\w[\w.-]*)$`)

	// a full tag expression, e.g. hub.registry.com:1234/ns/image:tag
	reFull = regexp.MustCompile(`^([\w.-]+(?::\d+)?)/(\w[\w.-]*)/(\w[\w.-]*):(\w[\w_.-]*)$`)

	// a full tag with implicit registry (docker hub), e.g. ns/image:tag
	reFullImplicit = regexp.MustCompile(`^(\w[\w.-]*)/(\w[\w.-]*):(\w[\w_.-]*)$`)
)

type pattern struct {
	re     *regexp.Regexp
	fields func(groups []string) Fields
}

var patterns = []pattern{
	{reRegistry, func(g []string) Fields { return Fields{Registry: g[0]} }},
	{reNamespace, func(g []string) Fields { return Fields{Namespace: g[0]} }},
	{reImage, func(g []string) Fields { return Fields{Image: g[0]} }},
	{reRepository, func(g []string) Fields { return Fields{Namespace: g[0], Image: g[1]} }},
	{reTag, func(g []string) Fields { return Fields{Tag: g[0]} }},
	{reTaggedImage, func(g []string) Fields { return Fields{Image: g[0], Tag: g[1]} }},
	{reRegistryNamespace, func(g []string) Fields { return Fields{Registry: g[0], Namespace: g[1]} }},
	{reRegistryRepository, func(g []string) Fields { return Fields{Registry: g[0], Namespace: g[1], Image: g[2]} }},
	{reFull, func(g []string) Fields { return Fields{Registry: g[0], Namespace: g[1], Image: g[2], Tag: g[3]} }},
	{reFullImplicit, func(g []string) Fields { return Fields{Namespace: g[0], Image: g[1], Tag: g[2]} }},
}

// Patterns returns the grammar's regular expressions in matching order, for
// use in verb argument classification.
func Patterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = p.re
	}
	return out
}

// ParseError reports a token that no grammar pattern matched.
type ParseError struct {
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid tag argument: %q", e.Token)
}

// Apply mutates base with the fields captured from token by the first
// matching grammar pattern. An unmatched token is a *ParseError.
func Apply(base Tag, token string) (Tag, error) {
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(token); m != nil {
			return base.Mutate(p.fields(m[1:])), nil
		}
	}

	return Tag{}, &ParseError{Token: token}
}
