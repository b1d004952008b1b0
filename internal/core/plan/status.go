// SPDX-License-Identifier: Apache-2.0

package plan

import "sync/atomic"

// ExecutionStatus tracks one plan's progress and terminal state. Fields are
// atomics: the worker that owns the plan writes them, the display loop reads
// them without coordination. The boolean flags are monotonic — once set they
// are never cleared, so a stale read is only ever behind, never wrong.
type ExecutionStatus struct {
	current atomic.Int64
	total   atomic.Int64

	description atomic.Value // string

	started         atomic.Bool
	finished        atomic.Bool
	failed          atomic.Bool
	cancelled       atomic.Bool
	cancelRequested atomic.Bool
	blocking        atomic.Bool
}

// NewStatus returns a pending status: one step of progress, blocking.
func NewStatus() *ExecutionStatus {
	s := &ExecutionStatus{}
	s.total.Store(1)
	s.blocking.Store(true)
	return s
}

// Current returns the completed progress steps.
func (s *ExecutionStatus) Current() int64 { return s.current.Load() }

// SetCurrent records completed progress steps.
func (s *ExecutionStatus) SetCurrent(n int64) { s.current.Store(n) }

// Total returns the expected progress steps.
func (s *ExecutionStatus) Total() int64 { return s.total.Load() }

// SetTotal records the expected progress steps.
func (s *ExecutionStatus) SetTotal(n int64) { s.total.Store(n) }

// Description returns the human-readable activity line.
func (s *ExecutionStatus) Description() string {
	if v, ok := s.description.Load().(string); ok {
		return v
	}
	return ""
}

// SetDescription records the human-readable activity line.
func (s *ExecutionStatus) SetDescription(d string) { s.description.Store(d) }

// Started reports whether the plan was submitted for execution.
func (s *ExecutionStatus) Started() bool { return s.started.Load() }

// MarkStarted flags the plan as submitted.
func (s *ExecutionStatus) MarkStarted() { s.started.Store(true) }

// Finished reports whether the plan reached a terminal state.
func (s *ExecutionStatus) Finished() bool { return s.finished.Load() }

// MarkFinished flags the plan as terminal.
func (s *ExecutionStatus) MarkFinished() { s.finished.Store(true) }

// Failed reports whether the plan's function returned an error.
func (s *ExecutionStatus) Failed() bool { return s.failed.Load() }

// MarkFailed flags the plan as failed.
func (s *ExecutionStatus) MarkFailed() { s.failed.Store(true) }

// Cancelled reports whether the plan was cancelled before it could run.
func (s *ExecutionStatus) Cancelled() bool { return s.cancelled.Load() }

// MarkCancelled flags the plan as cancelled.
func (s *ExecutionStatus) MarkCancelled() { s.cancelled.Store(true) }

// CancelRequested reports whether a running plan was asked to stop early.
// Honoring it is up to the plan's function; nothing is terminated forcibly.
func (s *ExecutionStatus) CancelRequested() bool { return s.cancelRequested.Load() }

// RequestCancel asks a running plan to stop early.
func (s *ExecutionStatus) RequestCancel() { s.cancelRequested.Store(true) }

// Blocking reports whether siblings must wait for this plan once started.
func (s *ExecutionStatus) Blocking() bool { return s.blocking.Load() }

// SetBlocking changes the sibling-blocking behavior.
func (s *ExecutionStatus) SetBlocking(b bool) { s.blocking.Store(b) }

// Success reports a finished plan that neither failed nor was cancelled.
func (s *ExecutionStatus) Success() bool {
	return s.Finished() && !s.Failed() && !s.Cancelled()
}

// String names the terminal state for summaries.
func (s *ExecutionStatus) String() string {
	switch {
	case s.Success():
		return "success"
	case s.Failed():
		return "failed"
	case s.Cancelled():
		return "cancelled"
	default:
		return "other"
	}
}
