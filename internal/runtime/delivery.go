package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/aretw0/spectate/pkg/domain"
)

var subscriptionIDs atomic.Uint64

// Subscription is a view registered on one State. Its identity is used to
// invoke a view at most once per batch.
type Subscription struct {
	id    uint64
	name  string
	view  View
	state *State
}

// ID returns the process-unique id of the subscription.
func (sub *Subscription) ID() uint64 { return sub.id }

// Name returns the name used to attribute view failures.
func (sub *Subscription) Name() string { return sub.name }

// Active reports whether the subscription is still registered.
func (sub *Subscription) Active() bool { return sub.state != nil }

func (sub *Subscription) invoke(origin any, batch domain.Batch) error {
	return Protect(func() error { return sub.view(origin, batch) })
}

// Subscribe registers v. An empty name defaults to "view-<id>".
func (s *State) Subscribe(name string, v View) *Subscription {
	sub := &Subscription{id: subscriptionIDs.Add(1), view: v, state: s}
	sub.name = name
	if sub.name == "" {
		sub.name = fmt.Sprintf("view-%d", sub.id)
	}
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe removes sub from s.
func (s *State) Unsubscribe(sub *Subscription) error {
	for i, x := range s.subs {
		if x == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			sub.state = nil
			return nil
		}
	}
	return fmt.Errorf("%s: %w", sub.name, domain.ErrViewNotFound)
}

// Subscriptions returns the registered subscriptions in registration order.
func (s *State) Subscriptions() []*Subscription {
	return append([]*Subscription(nil), s.subs...)
}

// Link makes the views of s receive the batches emitted by child.
// Linking the same pair twice has no further effect.
func (s *State) Link(child *State) {
	for _, p := range child.parents {
		if p == s {
			return
		}
	}
	child.parents = append(child.parents, s)
}

// Unlink removes the edge created by Link(child). It reports whether the
// edge existed.
func (s *State) Unlink(child *State) bool {
	for i, p := range child.parents {
		if p == s {
			child.parents = append(child.parents[:i:i], child.parents[i+1:]...)
			return true
		}
	}
	return false
}

// Parents returns the states whose views receive the batches of s.
func (s *State) Parents() []*State {
	return append([]*State(nil), s.parents...)
}

// deliver runs every view reachable from s once, in order, and aggregates
// their failures.
func (s *State) deliver(batch domain.Batch) error {
	var failures []domain.ViewFailure
	for _, sub := range s.audience() {
		if !sub.Active() {
			continue
		}
		if err := sub.invoke(s.owner, batch); err != nil {
			failures = append(failures, domain.ViewFailure{View: sub.name, Err: err})
		}
	}
	if len(failures) > 0 {
		return &domain.ViewError{Failures: failures}
	}
	return nil
}

// audience walks s and its inbound links breadth first. A subscription
// belongs to exactly one state, so visiting each state once invokes each view
// once however many paths reach it. The visited set also keeps cyclic link
// graphs finite.
func (s *State) audience() []*Subscription {
	visited := map[*State]bool{s: true}
	queue := []*State{s}

	var out []*Subscription
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur.subs...)
		for _, p := range cur.parents {
			if !visited[p] {
				visited[p] = true
				queue = append(queue, p)
			}
		}
	}
	return out
}
