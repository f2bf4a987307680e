package spectate

import (
	"github.com/aretw0/spectate/internal/runtime"
	"github.com/aretw0/spectate/pkg/domain"
)

// Reducer rewrites the events buffered by a hold or rollback frame before
// they are delivered. It receives its own copy of the events.
type Reducer func(origin Observable, events []domain.Event) []domain.Event

// Undo restores an instance after a rollback frame failed. Events emitted
// while it runs are muted.
type Undo func(origin Observable, events []domain.Event, cause error) error

// FrameOption configures Hold and Rollback.
type FrameOption func(*runtime.FrameOptions)

// WithReducer transforms the buffered events on exit.
func WithReducer(r Reducer) FrameOption {
	return func(o *runtime.FrameOptions) {
		o.Reducer = func(origin any, events []domain.Event) []domain.Event {
			return r(origin.(Observable), events)
		}
	}
}

// WithUndo sets the function a rollback runs when its body fails.
// Hold ignores it.
func WithUndo(u Undo) FrameOption {
	return func(o *runtime.FrameOptions) {
		o.Undo = func(origin any, events []domain.Event, cause error) error {
			return u(origin.(Observable), events, cause)
		}
	}
}

// DiffReducer returns a reducer collapsing repeated changes of the same slot
// into one event carrying the net change. See domain.Diff.
func DiffReducer(keys domain.DiffKeys) Reducer {
	return func(_ Observable, events []domain.Event) []domain.Event {
		return domain.Diff(events, keys)
	}
}

// Hold withholds the events emitted on obj while body runs and delivers them
// as one batch when it returns, even if it fails or panics.
func (n *Notifier) Hold(body func() error, opts ...FrameOption) error {
	return n.state.Run(runtime.ModeHold, frameOptions(opts, false), body)
}

// Rollback behaves like Hold when body succeeds. When body fails, the
// withheld events are discarded, the undo function (if any) runs muted, and
// body's error is returned. If undo fails as well, a *domain.RollbackError
// carrying both errors is returned.
func (n *Notifier) Rollback(body func() error, opts ...FrameOption) error {
	return n.state.Run(runtime.ModeRollback, frameOptions(opts, true), body)
}

// Pending returns a copy of the events withheld by the innermost open frame
// of the owner. It fails with domain.ErrNoFrame when no frame is open.
func (n *Notifier) Pending() ([]domain.Event, error) {
	events, ok := n.state.Pending()
	if !ok {
		return nil, domain.ErrNoFrame
	}
	return events, nil
}

// Rewrite replaces the events withheld by the innermost open frame with what
// fn returns, so a body can drop or amend events before the frame closes.
// fn receives a copy. It fails with domain.ErrNoFrame when no frame is open.
func (n *Notifier) Rewrite(fn func(events []domain.Event) []domain.Event) error {
	if !n.state.Rewrite(fn) {
		return domain.ErrNoFrame
	}
	return nil
}

// Mute drops every event emitted on obj while body runs.
func (n *Notifier) Mute(body func() error) error {
	return n.state.Run(runtime.ModeMute, runtime.FrameOptions{}, body)
}

func frameOptions(opts []FrameOption, undo bool) runtime.FrameOptions {
	var o runtime.FrameOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !undo {
		o.Undo = nil
	}
	return o
}

// Hold runs body inside a hold frame on obj. See Notifier.Hold.
func Hold(obj Observable, body func() error, opts ...FrameOption) error {
	return Attach(obj).Hold(body, opts...)
}

// Rollback runs body inside a rollback frame on obj. See Notifier.Rollback.
func Rollback(obj Observable, body func() error, opts ...FrameOption) error {
	return Attach(obj).Rollback(body, opts...)
}

// Mute runs body inside a mute frame on obj. See Notifier.Mute.
func Mute(obj Observable, body func() error) error {
	return Attach(obj).Mute(body)
}
