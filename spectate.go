package spectate

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/spectate/internal/runtime"
	"github.com/aretw0/spectate/pkg/domain"
)

var logger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used for diagnostics that cannot be returned to
// a caller, such as a before-hook failure on a control without an
// after-hook. A nil logger restores slog.Default().
func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

func currentLogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Observable is implemented by every type that embeds Model.
type Observable interface {
	spectateModel() *Model
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Model makes the embedding type Observable. The zero value is ready to use;
// its notification state is created on first use. A Model must not be copied
// after first use.
type Model struct {
	_     noCopy
	state *runtime.State
}

func (m *Model) spectateModel() *Model { return m }

func stateOf(obj Observable) *runtime.State {
	m := obj.spectateModel()
	if m.state == nil {
		m.state = runtime.NewState(obj, currentLogger)
	}
	return m.state
}

// NotifyFunc emits one event built from args, as domain.NewEvent does.
type NotifyFunc func(args ...any)

// ViewFunc receives every batch delivered to the instance it is registered
// on. origin is the instance that emitted the batch, which differs from that
// instance when the batch arrives through a link.
type ViewFunc func(origin Observable, batch domain.Batch) error

// BatchView adapts a view that does not need the originating instance.
func BatchView(fn func(batch domain.Batch) error) ViewFunc {
	return func(_ Observable, batch domain.Batch) error { return fn(batch) }
}

// ViewOption configures a view registration.
type ViewOption func(*viewConfig)

type viewConfig struct {
	name string
}

// ViewName names the view in failure reports.
func ViewName(name string) ViewOption {
	return func(c *viewConfig) {
		c.name = name
	}
}

// Subscription is the handle returned when a view is registered.
type Subscription struct {
	sub *runtime.Subscription
	n   *Notifier
}

// Name returns the name failures of this view are reported under.
func (s *Subscription) Name() string { return s.sub.Name() }

// Active reports whether the view is still registered.
func (s *Subscription) Active() bool { return s.sub.Active() }

// Cancel unregisters the view. Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if s.sub.Active() {
		_ = s.n.state.Unsubscribe(s.sub)
	}
}

// Notifier is the notification state of one instance.
type Notifier struct {
	state *runtime.State
	owner Observable
}

// Attach returns the notifier of obj, creating its state if needed.
func Attach(obj Observable) *Notifier {
	return &Notifier{state: stateOf(obj), owner: obj}
}

// Owner returns the instance the notifier belongs to.
func (n *Notifier) Owner() Observable { return n.owner }

// Depth returns the number of controlled calls currently running on the owner.
func (n *Notifier) Depth() int { return n.state.Depth() }

// Frames returns the names of the open transaction frames, innermost last.
func (n *Notifier) Frames() []string {
	modes := n.state.Frames()
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = m.String()
	}
	return out
}

// Notify emits one event. With no frame open the event is delivered
// immediately and the views' failures are returned.
func (n *Notifier) Notify(args ...any) error {
	return n.state.Emit(domain.NewEvent(args...))
}

// View registers v and returns its subscription.
func (n *Notifier) View(v ViewFunc, opts ...ViewOption) *Subscription {
	var cfg viewConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	sub := n.state.Subscribe(cfg.name, func(origin any, batch domain.Batch) error {
		o, _ := origin.(Observable)
		return v(o, batch)
	})
	return &Subscription{sub: sub, n: n}
}

// Views returns the subscriptions registered on the owner, in order.
func (n *Notifier) Views() []*Subscription {
	subs := n.state.Subscriptions()
	out := make([]*Subscription, len(subs))
	for i, s := range subs {
		out[i] = &Subscription{sub: s, n: n}
	}
	return out
}

// Unview unregisters sub. It fails with domain.ErrViewNotFound when sub is
// not registered on the owner.
func (n *Notifier) Unview(sub *Subscription) error {
	return n.state.Unsubscribe(sub.sub)
}

// Link makes the owner's views receive the batches emitted by child.
func (n *Notifier) Link(child Observable) {
	n.state.Link(stateOf(child))
}

// Unlink removes the edge created by Link(child).
func (n *Notifier) Unlink(child Observable) {
	n.state.Unlink(stateOf(child))
}

// Parents returns the instances the owner is linked under, in link order.
func (n *Notifier) Parents() []Observable {
	states := n.state.Parents()
	out := make([]Observable, 0, len(states))
	for _, p := range states {
		if o, ok := p.Owner().(Observable); ok {
			out = append(out, o)
		}
	}
	return out
}

// Notify emits one event on obj. See Notifier.Notify.
func Notify(obj Observable, args ...any) error {
	return Attach(obj).Notify(args...)
}

// WithNotifier runs fn with a notify function bound to obj. Each call to
// notify targets whatever frame is innermost at that moment, or delivers
// immediately when none is open. Delivery failures are collected and
// returned together with fn's error.
func WithNotifier(obj Observable, fn func(notify NotifyFunc) error) error {
	st := stateOf(obj)
	var errs []error
	notify := func(args ...any) {
		if err := st.Emit(domain.NewEvent(args...)); err != nil {
			errs = append(errs, err)
		}
	}
	err := fn(notify)
	if len(errs) == 0 {
		return err
	}
	return errors.Join(append([]error{err}, errs...)...)
}

// View registers v on obj. See Notifier.View.
func View(obj Observable, v ViewFunc, opts ...ViewOption) *Subscription {
	return Attach(obj).View(v, opts...)
}

// Views returns the subscriptions registered on obj.
func Views(obj Observable) []*Subscription {
	return Attach(obj).Views()
}

// Unview unregisters sub from obj.
func Unview(obj Observable, sub *Subscription) error {
	return Attach(obj).Unview(sub)
}

// Link makes views registered on parent also receive every batch emitted by
// child, reported with child as the origin. Links are transitive: views of
// anything linked to parent see child's batches too.
func Link(parent Observable, children ...Observable) {
	n := Attach(parent)
	for _, c := range children {
		n.Link(c)
	}
}

// Unlink removes exactly the parent-child edges named.
func Unlink(parent Observable, children ...Observable) {
	n := Attach(parent)
	for _, c := range children {
		n.Unlink(c)
	}
}
