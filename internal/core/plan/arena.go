// SPDX-License-Identifier: Apache-2.0

package plan

// Arena owns every plan of a run in a dense list indexed by plan ID. Tree
// navigation goes through IDs, so there is no ownership ambiguity between
// parent and child references. The structure is built single-threaded and is
// read-only during execution; only statuses change after that.
type Arena struct {
	plans []*Plan
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add assigns the next ID to p and stores it.
func (a *Arena) Add(p *Plan) int {
	p.ID = len(a.plans)
	a.plans = append(a.plans, p)
	return p.ID
}

// Get returns the plan with the given ID.
func (a *Arena) Get(id int) *Plan {
	return a.plans[id]
}

// Len returns the number of plans in the arena.
func (a *Arena) Len() int {
	return len(a.plans)
}

// All returns the backing list. Callers must not modify it.
func (a *Arena) All() []*Plan {
	return a.plans
}

// Steps counts the plans in the subtree rooted at id, itself included.
func (a *Arena) Steps(id int) int {
	n := 1
	for _, c := range a.Get(id).Children {
		n += a.Steps(c)
	}
	return n
}

// CurrentProgress sums the subtree's completed progress counters.
func (a *Arena) CurrentProgress(id int) int64 {
	p := a.Get(id)
	n := p.Status.Current()
	for _, c := range p.Children {
		n += a.CurrentProgress(c)
	}
	return n
}

// TotalProgress sums the subtree's expected progress counters.
func (a *Arena) TotalProgress(id int) int64 {
	p := a.Get(id)
	n := p.Status.Total()
	for _, c := range p.Children {
		n += a.TotalProgress(c)
	}
	return n
}

// ActiveInTree returns the subtree's plans that have started and not yet
// finished.
func (a *Arena) ActiveInTree(id int) []*Plan {
	p := a.Get(id)

	var active []*Plan
	if p.Status.Started() && !p.Status.Finished() {
		active = append(active, p)
	}

	for _, c := range p.Children {
		active = append(active, a.ActiveInTree(c)...)
	}

	return active
}

// Dead reports a plan that must not run: its parent failed, or it was
// cancelled before submission. Dead plans finish instantly as failed.
func (a *Arena) Dead(p *Plan) bool {
	if p.Parent != NoParent && a.Get(p.Parent).Status.Failed() {
		return true
	}

	return p.Status.Cancelled()
}

// Ready reports whether a plan may be submitted: roots always, children only
// once the parent finished and no blocking sibling is mid-flight.
func (a *Arena) Ready(p *Plan) bool {
	if p.Parent == NoParent {
		return true
	}

	parent := a.Get(p.Parent)
	if !parent.Status.Finished() {
		return false
	}

	for _, sid := range parent.Children {
		if sid == p.ID {
			continue
		}

		sibling := a.Get(sid)
		if sibling.Status.Started() && sibling.Status.Blocking() && !sibling.Status.Finished() {
			return false
		}
	}

	return true
}

// Flatten collapses the trees rooted at the given IDs into one list, level
// by level: all roots first, then all of their children, and so on. The
// scheduler submits in this order.
func (a *Arena) Flatten(roots []int) []*Plan {
	var out []*Plan

	level := roots
	for len(level) > 0 {
		var next []int
		for _, id := range level {
			p := a.Get(id)
			out = append(out, p)
			next = append(next, p.Children...)
		}
		level = next
	}

	return out
}
