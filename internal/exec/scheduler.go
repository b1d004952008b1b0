// SPDX-License-Identifier: Apache-2.0

// Package exec runs a flattened plan forest on a bounded worker pool with
// two-stage cancellation and live progress reporting.
package exec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/output"
)

// DefaultInterval is the fallback wake-up period of the coordinator and the
// refresh period of the progress display. Worker completions and
// cancellation wake the coordinator immediately; the ticker only bounds the
// latency of readiness changes it could otherwise miss.
const DefaultInterval = 500 * time.Millisecond

// Summary is the terminal tally of a run. Only Failed affects the exit code;
// cancelled plans are not failures.
type Summary struct {
	Success   int
	Failed    int
	Cancelled int
}

// Scheduler submits ready plans to a bounded worker pool. One coordinator
// goroutine owns the pending list; workers own the statuses of the plans
// they execute; cancellation touches only plans that are not running.
type Scheduler struct {
	arena    *plan.Arena
	workers  int
	interval time.Duration

	cancelled atomic.Bool
	killed    atomic.Bool

	wake   chan struct{}
	done   chan struct{}
	submit chan *plan.Plan

	mu      sync.Mutex
	pending []*plan.Plan
	running map[int]context.CancelFunc
}

// New creates a Scheduler over the flattened plan list. Plans are submitted
// in list order as they become ready.
func New(arena *plan.Arena, flat []*plan.Plan, workers int, interval time.Duration) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		arena:    arena,
		workers:  workers,
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}, arena.Len()+1),
		submit:   make(chan *plan.Plan, arena.Len()+1),
		pending:  append([]*plan.Plan(nil), flat...),
		running:  make(map[int]context.CancelFunc),
	}
}

// Run executes every plan and blocks until all submitted work is finished.
func (s *Scheduler) Run(ctx context.Context) Summary {
	var g errgroup.Group
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}

	s.coordinate(ctx)

	g.Wait()
	return s.summary()
}

// coordinate scans the pending list for ready or dead plans and hands them
// to the pool, waking on worker completions, cancellation, or the interval
// tick, whichever comes first.
func (s *Scheduler) coordinate(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	submitted := 0
	for {
		s.mu.Lock()
		if s.cancelled.Load() {
			remaining := len(s.pending)
			s.pending = nil
			s.mu.Unlock()

			output.Info("cancelling submission", "not_scheduled", remaining)
			break
		}

		var rest []*plan.Plan
		for _, p := range s.pending {
			if s.arena.Ready(p) || s.arena.Dead(p) {
				p.Status.MarkStarted()
				s.submit <- p
				submitted++
				continue
			}
			rest = append(rest, p)
		}
		s.pending = rest
		empty := len(s.pending) == 0
		s.mu.Unlock()

		if empty {
			break
		}

		select {
		case <-s.done:
		case <-s.wake:
		case <-ticker.C:
		case <-ctx.Done():
			s.Cancel()
		}
	}

	close(s.submit)
	output.Debug("plan submission finished", "submitted", submitted)
}

func (s *Scheduler) worker(ctx context.Context) {
	for p := range s.submit {
		s.execute(ctx, p)
		s.done <- struct{}{}
	}
}

// execute runs one plan to completion, recording failure on the plan's
// status instead of propagating it. A plan revoked while queued is skipped;
// a dead plan finishes as failed without its function ever running.
func (s *Scheduler) execute(ctx context.Context, p *plan.Plan) {
	s.mu.Lock()
	if p.Status.Cancelled() {
		s.mu.Unlock()
		return
	}

	if s.arena.Dead(p) {
		s.mu.Unlock()
		p.Status.MarkFailed()
		finish(p)
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running[p.ID] = cancel
	if s.killed.Load() {
		p.Status.RequestCancel()
		cancel()
	}
	s.mu.Unlock()

	err := runPlan(runCtx, p)
	cancel()

	s.mu.Lock()
	delete(s.running, p.ID)
	s.mu.Unlock()

	if err != nil {
		output.Error("error executing plan", "plan", p.String(), "error", err)
		p.Status.MarkFailed()
	}
	finish(p)
}

func runPlan(ctx context.Context, p *plan.Plan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plan panicked: %v", r)
		}
	}()

	return p.Run(ctx, p)
}

func finish(p *plan.Plan) {
	p.Status.SetCurrent(p.Status.Total())
	p.Status.SetDescription("")
	p.Status.MarkFinished()
}

// Signal handles one external interrupt: the first cancels everything not
// yet running, the second asks running plans to stop, the rest are noted.
func (s *Scheduler) Signal() {
	if !s.cancelled.Load() {
		output.Info("caught signal, cancelling remaining tasks")
		s.Cancel()
		return
	}

	if !s.killed.Load() {
		output.Info("caught second signal, asking ongoing tasks to stop...")
		s.Kill()
		return
	}

	output.Info("got signal, still waiting on running tasks...")
}

// Cancel stops submission and marks every plan that has not started running
// as finished and cancelled. Running plans are left alone.
func (s *Scheduler) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}

	s.mu.Lock()
	cancelledCount, runningCount := 0, 0
	for _, p := range s.arena.All() {
		if p.Status.Finished() {
			continue
		}

		if _, isRunning := s.running[p.ID]; isRunning {
			runningCount++
			continue
		}

		p.Status.MarkCancelled()
		p.Status.SetCurrent(p.Status.Total())
		p.Status.MarkFinished()
		cancelledCount++
	}
	s.mu.Unlock()

	s.notify()
	output.Info("submitted plans cancelled", "cancelled", cancelledCount, "still_active", runningCount)
}

// Kill flags every running plan with a cancel request and cancels its
// context. The flag is advisory; the context reaches any external process
// the plan started.
func (s *Scheduler) Kill() {
	if s.killed.Swap(true) {
		return
	}

	s.mu.Lock()
	requested := 0
	for id, cancel := range s.running {
		s.arena.Get(id).Status.RequestCancel()
		cancel()
		requested++
	}
	s.mu.Unlock()

	s.notify()
	output.Info("asked ongoing plans to stop", "count", requested)
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) summary() Summary {
	var sum Summary
	for _, p := range s.arena.All() {
		switch {
		case p.Status.Success():
			sum.Success++
		case p.Status.Failed():
			sum.Failed++
		case p.Status.Finished() && p.Status.Cancelled():
			sum.Cancelled++
		}
	}
	return sum
}
