// SPDX-License-Identifier: Apache-2.0

package tag_test

import (
	"testing"

	"github.com/dbuild-io/dbuild/internal/core/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryDropsDefaultHTTPSPort(t *testing.T) {
	full := tag.Tag{Registry: "registry.example.com:443", Namespace: "ns", Image: "img"}
	assert.Equal(t, "registry.example.com/ns/img", full.Repository(), "explicit :443 should be dropped")

	custom := tag.Tag{Registry: "registry.example.com:5000", Namespace: "ns", Image: "img"}
	assert.Equal(t, "registry.example.com:5000/ns/img", custom.Repository(), "other ports must survive")
}

func TestFull(t *testing.T) {
	tg := tag.Tag{Namespace: "acme", Image: "app", Tag: "1.0"}
	assert.Equal(t, "acme/app:1.0", tg.Full())

	untagged := tag.Tag{Namespace: "acme", Image: "app"}
	assert.Equal(t, "acme/app", untagged.Full(), "no colon without a tag")
}

func TestMutateRepositoryShorthand(t *testing.T) {
	tests := []struct {
		name       string
		repository string
		want       tag.Tag
	}{
		{
			name:       "image only",
			repository: "app",
			want:       tag.Tag{Image: "app"},
		},
		{
			name:       "namespace and image",
			repository: "acme/app",
			want:       tag.Tag{Namespace: "acme", Image: "app"},
		},
		{
			name:       "registry with port",
			repository: "registry.example.com:5000/acme/app",
			want:       tag.Tag{Registry: "registry.example.com:5000", Namespace: "acme", Image: "app"},
		},
		{
			name:       "leading component without port stays in namespace",
			repository: "registry.example.com/acme/app",
			want:       tag.Tag{Namespace: "registry.example.com/acme", Image: "app"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tag.Tag{}.Mutate(tag.Fields{Repository: tc.repository})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMutateExplicitFieldsWinOverRepository(t *testing.T) {
	got := tag.Tag{}.Mutate(tag.Fields{
		Repository: "acme/app",
		Image:      "other",
	})
	assert.Equal(t, tag.Tag{Namespace: "acme", Image: "other"}, got)
}

func TestMutateMergesOntoReceiver(t *testing.T) {
	base := tag.Tag{Namespace: "acme", Image: "app", Tag: "1.0"}
	got := base.Mutate(tag.Fields{Tag: "2.0"})
	assert.Equal(t, tag.Tag{Namespace: "acme", Image: "app", Tag: "2.0"}, got, "untouched fields must survive mutation")
	assert.Equal(t, "1.0", base.Tag, "the receiver must not change")
}

func TestMergePrefersOther(t *testing.T) {
	base := tag.Tag{Namespace: "acme", Image: "app"}
	got := base.Merge(tag.Tag{Image: "other", Tag: "1.0"})
	assert.Equal(t, tag.Tag{Namespace: "acme", Image: "other", Tag: "1.0"}, got)
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name       string
		tg         tag.Tag
		requireTag bool
		want       bool
	}{
		{"namespace and image", tag.Tag{Namespace: "ns", Image: "img"}, false, true},
		{"registry and image", tag.Tag{Registry: "reg:5000", Image: "img"}, false, true},
		{"image only", tag.Tag{Image: "img"}, false, false},
		{"missing required tag", tag.Tag{Namespace: "ns", Image: "img"}, true, false},
		{"complete with tag", tag.Tag{Namespace: "ns", Image: "img", Tag: "1.0"}, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tg.IsComplete(tc.requireTag))
		})
	}
}

func TestParseInvertsFull(t *testing.T) {
	tags := []tag.Tag{
		{Namespace: "acme", Image: "app", Tag: "1.0"},
		{Registry: "registry.example.com:5000", Namespace: "acme", Image: "app", Tag: "1.0"},
		{Registry: "registry.example.com:5000", Image: "app", Tag: "1.0"},
		{Image: "app", Tag: "1.0"},
	}

	for _, want := range tags {
		got := tag.Parse(want.Full())
		assert.Equal(t, want, got, "Parse(%q)", want.Full())
	}
}

func TestApplyGrammar(t *testing.T) {
	tests := []struct {
		token string
		want  tag.Tag
	}{
		{"registry.example.com:5000", tag.Tag{Registry: "registry.example.com:5000"}},
		{"acme/", tag.Tag{Namespace: "acme"}},
		{"/app", tag.Tag{Image: "app"}},
		{"acme/app", tag.Tag{Namespace: "acme", Image: "app"}},
		{":1.0", tag.Tag{Tag: "1.0"}},
		{"/app:1.0", tag.Tag{Image: "app", Tag: "1.0"}},
		{"registry.example.com:5000/acme", tag.Tag{Registry: "registry.example.com:5000", Namespace: "acme"}},
		{"registry.example.com:5000/acme/app", tag.Tag{Registry: "registry.example.com:5000", Namespace: "acme", Image: "app"}},
		{"registry.example.com:5000/acme/app:1.0", tag.Tag{Registry: "registry.example.com:5000", Namespace: "acme", Image: "app", Tag: "1.0"}},
		{"acme/app:1.0", tag.Tag{Namespace: "acme", Image: "app", Tag: "1.0"}},
	}

	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			got, err := tag.Apply(tag.Tag{}, tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyMergesCapturedFieldsOnly(t *testing.T) {
	base := tag.Tag{Registry: "registry.example.com:5000", Namespace: "acme", Image: "app", Tag: "1.0"}

	got, err := tag.Apply(base, "other/img:2.0")
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com:5000", got.Registry, "the registry was not captured and must survive")
	assert.Equal(t, tag.Tag{Registry: "registry.example.com:5000", Namespace: "other", Image: "img", Tag: "2.0"}, got)
}

func TestApplyRejectsUnknownToken(t *testing.T) {
	_, err := tag.Apply(tag.Tag{}, "not a token")
	var parseErr *tag.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not a token", parseErr.Token)
}

func TestResolveSingleFullToken(t *testing.T) {
	tags, err := tag.Resolve([]string{"acme/app:1.0"}, tag.Tag{}, true)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "acme/app:1.0", tags[0].Full())
}

func TestResolveSnapshotsEveryCompleteState(t *testing.T) {
	base := tag.Tag{Namespace: "myns", Image: "img", Tag: "1.0"}

	tags, err := tag.Resolve([]string{":2.0", "/other"}, base, true)
	require.NoError(t, err)
	require.Len(t, tags, 2, "a complete base stays complete, one snapshot per token")
	assert.Equal(t, "myns/img:2.0", tags[0].Full())
	assert.Equal(t, "myns/other:2.0", tags[1].Full())
}

func TestResolveDoesNotMutateBase(t *testing.T) {
	base := tag.Tag{Namespace: "myns", Image: "img", Tag: "1.0"}
	_, err := tag.Resolve([]string{":2.0"}, base, true)
	require.NoError(t, err)
	assert.Equal(t, "1.0", base.Tag)
}

func TestResolveNoTokens(t *testing.T) {
	tags, err := tag.Resolve(nil, tag.Tag{Namespace: "ns", Image: "img", Tag: "1.0"}, true)
	require.NoError(t, err, "no tokens is not an error")
	assert.Empty(t, tags, "no tokens yields no tags even for a complete base")
}

func TestResolveIncompleteTokensFail(t *testing.T) {
	_, err := tag.Resolve([]string{":1.0"}, tag.Tag{}, true)
	var resErr *tag.ResolutionError
	require.ErrorAs(t, err, &resErr, "a tag alone never completes an empty base")
	assert.Equal(t, []string{":1.0"}, resErr.Tokens)
}

func TestResolveRequireTagRelaxed(t *testing.T) {
	tags, err := tag.Resolve([]string{"acme/app"}, tag.Tag{}, false)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "acme/app", tags[0].Full())
}
