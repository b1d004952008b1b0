// SPDX-License-Identifier: Apache-2.0

package verb_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reWord     = regexp.MustCompile(`^(\w+)$`)
	reKeyValue = regexp.MustCompile(`^([\w_]+)=(.*)$`)
)

func definition(name string, priority int, args ...verb.Argument) *verb.Definition {
	return &verb.Definition{
		Name:     name,
		Priority: priority,
		Args:     args,
		Func: func(ctx context.Context, rc *config.RunConfig, args []verb.Value, module string, intents plan.Intents) ([]*plan.Plan, error) {
			return nil, nil
		},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := verb.NewRegistry()
	def := definition("build", 1)
	def.Aliases = []string{"b"}
	require.NoError(t, reg.Register(def))

	assert.True(t, reg.Has("build"))
	assert.True(t, reg.Has("b"), "aliases resolve too")
	assert.False(t, reg.Has("push"))

	got, ok := reg.Get("b")
	require.True(t, ok)
	assert.Same(t, def, got)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := verb.NewRegistry()
	require.NoError(t, reg.Register(definition("build", 1)))
	assert.Error(t, reg.Register(definition("build", 2)))
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	reg := verb.NewRegistry()
	assert.Error(t, reg.Register(definition("", 0)))
}

func TestActiveOrdersByPriorityThenCLI(t *testing.T) {
	reg := verb.NewRegistry()
	require.NoError(t, reg.Register(definition("push", 0)))
	require.NoError(t, reg.Register(definition("build", 1)))
	require.NoError(t, reg.Register(definition("info", 10)))
	require.NoError(t, reg.Register(definition("resolve", 0)))

	active := reg.Active([]string{"push", "resolve", "info", "build"})
	names := make([]string, len(active))
	for i, d := range active {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"info", "build", "push", "resolve"}, names,
		"priority wins, command-line order breaks ties")
}

func TestClassifySharedTokens(t *testing.T) {
	build := definition("build", 1, verb.NewArgument("word", reWord), verb.NewArgument("kv", reKeyValue))
	push := definition("push", 0, verb.NewArgument("word", reWord))

	classified, err := verb.Classify([]string{"alpha", "K=V"}, []*verb.Definition{build, push})
	require.NoError(t, err)

	buildValues := classified["build"]
	require.Len(t, buildValues, 2)
	assert.Equal(t, "word", buildValues[0].Type)
	assert.Equal(t, []string{"alpha"}, buildValues[0].Groups)
	assert.Equal(t, "kv", buildValues[1].Type)
	assert.Equal(t, []string{"K", "V"}, buildValues[1].Groups)

	pushValues := classified["push"]
	require.Len(t, pushValues, 1, "overlapping grammars share tokens")
	assert.Equal(t, "alpha", pushValues[0].Raw)
}

func TestClassifyUnhandledTokenIsFatal(t *testing.T) {
	build := definition("build", 1, verb.NewArgument("kv", reKeyValue))

	_, err := verb.Classify([]string{"K=V", "not handled"}, []*verb.Definition{build})
	var unhandled *verb.UnhandledArgumentError
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, []string{"not handled"}, unhandled.Tokens)
}

func TestValuesOfPreservesOrder(t *testing.T) {
	values := []verb.Value{
		{Type: "tag", Raw: "a"},
		{Type: "variant", Raw: "b"},
		{Type: "tag", Raw: "c"},
	}
	tags := verb.ValuesOf(values, "tag")
	require.Len(t, tags, 2)
	assert.Equal(t, "a", tags[0].Raw)
	assert.Equal(t, "c", tags[1].Raw)
}
