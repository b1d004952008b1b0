// SPDX-License-Identifier: Apache-2.0

package plan_test

import (
	"context"
	"testing"

	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, p *plan.Plan) error { return nil }

// tree builds root -> (left, right), right -> grandchild.
func tree(t *testing.T) (*plan.Arena, *plan.Plan, *plan.Plan, *plan.Plan, *plan.Plan) {
	t.Helper()
	arena := plan.NewArena()

	root := plan.New("build", "app", noop, nil, nil)
	left := plan.New("push", "app", noop, nil, nil)
	right := plan.New("push", "app", noop, nil, nil)
	grand := plan.New("readme", "app", noop, nil, nil)

	rootID := arena.Add(root)
	leftID := arena.Add(left)
	rightID := arena.Add(right)
	grandID := arena.Add(grand)

	root.Children = []int{leftID, rightID}
	left.Parent = rootID
	right.Parent = rootID
	right.Children = []int{grandID}
	grand.Parent = rightID

	return arena, root, left, right, grand
}

func TestIntentsCloneIsIndependent(t *testing.T) {
	original := plan.Intents{"images": "a"}
	clone := original.Clone()
	clone["images"] = "b"
	assert.Equal(t, "a", original["images"], "mutating the clone must not touch the original")
}

func TestNewPlanDefaults(t *testing.T) {
	p := plan.New("build", "app", noop, nil, "args")
	assert.Equal(t, plan.NoParent, p.Parent)
	assert.NotNil(t, p.Intents, "nil intents are replaced with an empty payload")
	assert.True(t, p.Status.Blocking(), "plans block their siblings by default")
	assert.EqualValues(t, 1, p.Status.Total())
}

func TestArenaAssignsDenseIDs(t *testing.T) {
	arena := plan.NewArena()
	for i := 0; i < 3; i++ {
		p := plan.New("build", "app", noop, nil, nil)
		assert.Equal(t, i, arena.Add(p))
		assert.Same(t, p, arena.Get(i))
	}
	assert.Equal(t, 3, arena.Len())
}

func TestStepsCountsSubtree(t *testing.T) {
	arena, root, _, right, _ := tree(t)
	assert.Equal(t, 4, arena.Steps(root.ID))
	assert.Equal(t, 2, arena.Steps(right.ID))
}

func TestProgressAggregation(t *testing.T) {
	arena, root, left, right, grand := tree(t)

	root.Status.SetTotal(10)
	root.Status.SetCurrent(10)
	left.Status.SetCurrent(1)
	right.Status.SetCurrent(0)
	grand.Status.SetCurrent(0)

	assert.EqualValues(t, 11, arena.CurrentProgress(root.ID))
	assert.EqualValues(t, 13, arena.TotalProgress(root.ID), "10 build steps plus three single-step plans")
	assert.LessOrEqual(t, arena.CurrentProgress(root.ID), arena.TotalProgress(root.ID))
}

func TestReadyRootsAlways(t *testing.T) {
	arena, root, _, _, _ := tree(t)
	assert.True(t, arena.Ready(root))
}

func TestReadyRequiresFinishedParent(t *testing.T) {
	arena, root, left, _, _ := tree(t)

	assert.False(t, arena.Ready(left), "parent has not finished")

	root.Status.MarkStarted()
	root.Status.MarkFinished()
	assert.True(t, arena.Ready(left))
}

func TestReadyBlockedByBlockingSibling(t *testing.T) {
	arena, root, left, right, _ := tree(t)
	root.Status.MarkStarted()
	root.Status.MarkFinished()

	left.Status.MarkStarted()
	assert.False(t, arena.Ready(right), "a started blocking sibling holds the slot")

	left.Status.MarkFinished()
	assert.True(t, arena.Ready(right))
}

func TestReadyNonBlockingSiblingDoesNotBlock(t *testing.T) {
	arena, root, left, right, _ := tree(t)
	root.Status.MarkStarted()
	root.Status.MarkFinished()

	left.Status.MarkStarted()
	left.Status.SetBlocking(false)
	assert.True(t, arena.Ready(right), "non-blocking siblings may overlap")
}

func TestDead(t *testing.T) {
	arena, root, left, _, _ := tree(t)

	assert.False(t, arena.Dead(left))

	root.Status.MarkFailed()
	assert.True(t, arena.Dead(left), "children of a failed parent are dead on arrival")

	other := plan.New("push", "app", noop, nil, nil)
	arena.Add(other)
	other.Status.MarkCancelled()
	assert.True(t, arena.Dead(other))
}

func TestFlattenLevelOrder(t *testing.T) {
	arena, root, left, right, grand := tree(t)

	flat := arena.Flatten([]int{root.ID})
	require.Len(t, flat, 4)
	assert.Same(t, root, flat[0])
	assert.Same(t, left, flat[1])
	assert.Same(t, right, flat[2])
	assert.Same(t, grand, flat[3])
}

func TestArtifactsAreCopied(t *testing.T) {
	p := plan.New("build", "app", noop, nil, nil)
	p.AddArtifact("acme/app:1.0")

	got := p.Artifacts()
	got[0] = "tampered"
	assert.Equal(t, []string{"acme/app:1.0"}, p.Artifacts())
}

func TestStatusLifecycle(t *testing.T) {
	s := plan.NewStatus()
	assert.False(t, s.Started())

	s.MarkStarted()
	s.SetDescription("build acme/app:1.0")
	assert.True(t, s.Started())
	assert.Equal(t, "build acme/app:1.0", s.Description())

	s.MarkFinished()
	assert.True(t, s.Finished())
	assert.True(t, s.Success(), "finished without failure or cancellation is success")

	failed := plan.NewStatus()
	failed.MarkStarted()
	failed.MarkFailed()
	failed.MarkFinished()
	assert.False(t, failed.Success())
}
