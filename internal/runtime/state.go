// Package runtime holds the per-instance notification state behind the
// spectate facade: call depth, the transaction frame stack, the view
// registry and inbound link edges.
package runtime

import (
	"io"
	"log/slog"

	"github.com/aretw0/spectate/pkg/domain"
)

// Reducer rewrites the events buffered by a frame before they are flushed.
type Reducer func(origin any, events []domain.Event) []domain.Event

// Undo reverses the effects recorded by a failed rollback frame.
type Undo func(origin any, events []domain.Event, cause error) error

// View receives every batch delivered to the state it is subscribed to.
type View func(origin any, batch domain.Batch) error

// State is the notification state of one observable instance.
// It is not safe for concurrent use.
type State struct {
	owner  any
	logger func() *slog.Logger

	depth   int
	frames  []*frame
	subs    []*Subscription
	parents []*State
}

// NewState creates the state for owner. logger is consulted each time a
// diagnostic is written; nil discards diagnostics.
func NewState(owner any, logger func() *slog.Logger) *State {
	if logger == nil {
		nop := slog.New(slog.NewTextHandler(io.Discard, nil))
		logger = func() *slog.Logger { return nop }
	}
	return &State{owner: owner, logger: logger}
}

// Owner returns the instance this state belongs to.
func (s *State) Owner() any { return s.owner }

// Depth returns the number of controlled calls currently executing on the owner.
func (s *State) Depth() int { return s.depth }

// Logger returns the diagnostic logger.
func (s *State) Logger() *slog.Logger { return s.logger() }

// Emit pushes one event into the innermost open frame, or delivers it as a
// singleton batch when no frame is open.
func (s *State) Emit(e domain.Event) error {
	if f := s.top(); f != nil {
		f.push(e)
		return nil
	}
	return s.deliver(domain.NewBatch(e))
}

// Call runs body as one controlled invocation. The outermost invocation on
// the owner opens a call frame so that everything emitted while it runs,
// including by nested invocations, is flushed as one batch.
// An error returned by body is returned unchanged. The depth is back to
// zero by the time views run, so a view calling into the owner starts a
// fresh invocation.
func (s *State) Call(body func() error) error {
	if s.depth > 0 {
		return s.enter(body)
	}
	return s.Run(ModeCall, FrameOptions{}, func() error { return s.enter(body) })
}

func (s *State) enter(body func() error) error {
	s.depth++
	defer func() { s.depth-- }()
	return body()
}
