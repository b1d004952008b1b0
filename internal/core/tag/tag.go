// SPDX-License-Identifier: Apache-2.0

// Package tag models container image identifiers and the positional-argument
// grammar that mutates them.
package tag

import (
	"strings"
)

// Tag is an immutable image identifier. Every field may be empty; methods
// that change fields return a new value.
type Tag struct {
	Registry  string
	Namespace string
	Image     string
	Tag       string
}

// Fields carries overrides for Mutate. Repository is a shorthand that is
// decomposed into namespace and image (plus a registry when the leading
// component carries a port).
type Fields struct {
	Registry   string
	Namespace  string
	Image      string
	Tag        string
	Repository string
}

// Repository joins registry, namespace and image with slashes, omitting
// empty parts. An explicit default HTTPS port on the registry is dropped.
func (t Tag) Repository() string {
	var parts []string

	if t.Registry != "" {
		r := t.Registry
		if host, port, ok := strings.Cut(r, ":"); ok && port == "443" {
			r = host
		}
		parts = append(parts, r)
	}

	if t.Namespace != "" {
		parts = append(parts, t.Namespace)
	}

	parts = append(parts, t.Image)

	return strings.Join(parts, "/")
}

// Full returns the repository with the tag appended when one is set.
func (t Tag) Full() string {
	if t.Tag != "" {
		return t.Repository() + ":" + t.Tag
	}
	return t.Repository()
}

// Mutate returns a copy of t with the non-empty fields of f applied.
// Explicit fields win over fields derived from the Repository shorthand.
func (t Tag) Mutate(f Fields) Tag {
	var registry, namespace, image string

	if f.Repository != "" {
		if i := strings.LastIndex(f.Repository, "/"); i >= 0 {
			namespace, image = f.Repository[:i], f.Repository[i+1:]
			if j := strings.Index(namespace, "/"); j >= 0 {
				if head := namespace[:j]; strings.Contains(head, ":") {
					registry, namespace = head, namespace[j+1:]
				}
			}
		} else {
			image = f.Repository
		}
	}

	if f.Registry != "" {
		registry = f.Registry
	}
	if f.Namespace != "" {
		namespace = f.Namespace
	}
	if f.Image != "" {
		image = f.Image
	}

	out := Tag{Registry: registry, Namespace: namespace, Image: image, Tag: f.Tag}
	return t.Merge(out)
}

// Merge returns a new Tag preferring other's non-empty fields.
func (t Tag) Merge(other Tag) Tag {
	merged := t
	if other.Registry != "" {
		merged.Registry = other.Registry
	}
	if other.Namespace != "" {
		merged.Namespace = other.Namespace
	}
	if other.Image != "" {
		merged.Image = other.Image
	}
	if other.Tag != "" {
		merged.Tag = other.Tag
	}
	return merged
}

// IsComplete reports whether enough is known for a push to succeed: a
// namespace+image or registry+image pair, plus a tag when requireTag is set.
// An implicit "latest" tag would work, but we stay strict for simplicity.
func (t Tag) IsComplete(requireTag bool) bool {
	if requireTag && t.Tag == "" {
		return false
	}

	if t.Namespace != "" && t.Image != "" {
		return true
	}

	if t.Registry != "" && t.Image != "" {
		return true
	}

	return false
}

// Parse splits a full image reference back into its components. It is the
// inverse of Full for any complete tag.
func Parse(text string) Tag {
	var t Tag

	sections := strings.Split(text, "/")
	switch len(sections) {
	case 3:
		// registry.example.com:1234/namespace/image:tag
		t.Registry = sections[0]
		t.Namespace = sections[1]
		t.Image = sections[2]
	case 2:
		if strings.Contains(sections[0], ":") {
			// registry.example.com:1234/image:tag
			t.Registry = sections[0]
		} else {
			// namespace/image:tag
			t.Namespace = sections[0]
		}
		t.Image = sections[1]
	case 1:
		t.Image = sections[0]
	}

	if image, tg, ok := strings.Cut(t.Image, ":"); ok {
		t.Image = image
		t.Tag = tg
	}

	return t
}
