package runtime

import (
	"runtime/debug"

	"github.com/aretw0/spectate/pkg/domain"
)

// Mode selects how a frame treats the events emitted while it is innermost.
type Mode int

const (
	// ModeHold buffers events and flushes them when the frame closes.
	ModeHold Mode = iota
	// ModeRollback buffers like ModeHold but discards the buffer and runs
	// the undo function when the frame closes with an error.
	ModeRollback
	// ModeMute drops every event.
	ModeMute
	// ModeCall is the implicit hold opened by an outermost controlled call.
	ModeCall
)

func (m Mode) String() string {
	switch m {
	case ModeHold:
		return "hold"
	case ModeRollback:
		return "rollback"
	case ModeMute:
		return "mute"
	case ModeCall:
		return "call"
	default:
		return "unknown"
	}
}

// FrameOptions configures a frame. Undo is only used by ModeRollback.
type FrameOptions struct {
	Reducer Reducer
	Undo    Undo
}

type frame struct {
	mode   Mode
	opts   FrameOptions
	buffer []domain.Event
}

func (f *frame) push(e domain.Event) {
	if f.mode == ModeMute {
		return
	}
	f.buffer = append(f.buffer, e)
}

// Pending returns a copy of the events buffered by the innermost frame. It
// reports false when no frame is open.
func (s *State) Pending() ([]domain.Event, bool) {
	f := s.top()
	if f == nil {
		return nil, false
	}
	return append([]domain.Event(nil), f.buffer...), true
}

// Rewrite replaces the buffer of the innermost frame with the result of fn,
// which receives a copy. It reports false when no frame is open. A mute
// frame stays empty.
func (s *State) Rewrite(fn func([]domain.Event) []domain.Event) bool {
	f := s.top()
	if f == nil {
		return false
	}
	events := fn(append([]domain.Event(nil), f.buffer...))
	if f.mode == ModeMute {
		return true
	}
	f.buffer = append([]domain.Event(nil), events...)
	return true
}

func (s *State) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Frames returns the modes of the open frames, innermost last.
func (s *State) Frames() []Mode {
	modes := make([]Mode, len(s.frames))
	for i, f := range s.frames {
		modes[i] = f.mode
	}
	return modes
}

// Run opens a frame, runs body and closes the frame on every exit path,
// including panics, which are re-raised once the frame is closed.
//
// When body fails, its error is returned unchanged, except that a rollback
// whose undo also fails returns a *domain.RollbackError. Errors raised while
// flushing after a failed body are logged, not returned.
func (s *State) Run(mode Mode, opts FrameOptions, body func() error) error {
	f := &frame{mode: mode, opts: opts}
	s.frames = append(s.frames, f)

	// closed is set before the frame is closed on the normal path, so a
	// panic raised while closing (a reducer, say) unwinds without closing
	// the frame a second time.
	closed := false
	defer func() {
		if closed {
			return
		}
		r := recover()
		if r == nil {
			return
		}
		closed = true
		cause := &domain.PanicError{Value: r, Stack: debug.Stack()}
		flushErr, undoErr := s.close(f, cause)
		if flushErr != nil {
			s.Logger().Error("flush failed while unwinding panic", "mode", mode.String(), "err", flushErr)
		}
		if undoErr != nil {
			s.Logger().Error("undo failed while unwinding panic", "mode", mode.String(), "err", undoErr)
		}
		panic(r)
	}()

	bodyErr := body()
	closed = true
	flushErr, undoErr := s.close(f, bodyErr)

	if bodyErr == nil {
		return flushErr
	}
	if undoErr != nil {
		return &domain.RollbackError{Undo: undoErr, Cause: bodyErr}
	}
	if flushErr != nil {
		s.Logger().Warn("flush failed after body error", "mode", mode.String(), "err", flushErr)
	}
	return bodyErr
}

// close pops f and performs its exit action. cause is non-nil on an
// exceptional exit.
func (s *State) close(f *frame, cause error) (flushErr, undoErr error) {
	s.pop(f)

	switch f.mode {
	case ModeMute:
		return nil, nil
	case ModeRollback:
		if cause != nil {
			if f.opts.Undo != nil {
				undoErr = s.undo(f.opts.Undo, f.buffer, cause)
			}
			return nil, undoErr
		}
	}

	events := f.buffer
	if f.opts.Reducer != nil {
		events = f.opts.Reducer(s.owner, append([]domain.Event(nil), events...))
	}
	return s.flush(events), nil
}

func (s *State) pop(f *frame) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i] == f {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

// undo runs fn with every emission muted.
func (s *State) undo(fn Undo, events []domain.Event, cause error) error {
	events = append([]domain.Event(nil), events...)
	return s.Run(ModeMute, FrameOptions{}, func() error {
		return Protect(func() error { return fn(s.owner, events, cause) })
	})
}

// flush hands the output of a closed frame to the enclosing frame, or
// delivers it when none is open.
func (s *State) flush(events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if f := s.top(); f != nil {
		for _, e := range events {
			f.push(e)
		}
		return nil
	}
	return s.deliver(domain.NewBatch(events...))
}

// Protect runs fn, converting a panic into a *domain.PanicError.
func Protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
