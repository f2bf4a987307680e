package domain

import (
	"fmt"
	"reflect"
	"strings"
)

// DiffKeys names the fields Diff uses to merge a run of change events.
type DiffKeys struct {
	// Identity fields select which events describe the same logical slot
	// (e.g. "key" for a mapping, "index" for a sequence).
	Identity []string
	// Old and New name the before/after value fields. Defaults: "old", "new".
	Old string
	New string
}

func (k DiffKeys) withDefaults() DiffKeys {
	if k.Old == "" {
		k.Old = "old"
	}
	if k.New == "" {
		k.New = "new"
	}
	return k
}

// Diff collapses events that describe the same slot into a single event
// carrying the net change: the first event's old value and the last event's
// fields otherwise. The merged event takes the position of the first event
// of its group. Merged events whose old and new values are deeply equal
// describe no net change and are dropped.
//
// Events that carry none of the identity fields are passed through untouched.
func Diff(events []Event, keys DiffKeys) []Event {
	keys = keys.withDefaults()
	if len(keys.Identity) == 0 {
		return append([]Event(nil), events...)
	}

	type group struct {
		first  Event
		last   Event
		merged bool
	}
	groups := make(map[string]*group)
	order := make([]any, 0, len(events)) // *group or Event

	for _, e := range events {
		id, ok := identity(e, keys.Identity)
		if !ok {
			order = append(order, e)
			continue
		}
		if g, seen := groups[id]; seen {
			g.last = e
			g.merged = true
			continue
		}
		g := &group{first: e, last: e}
		groups[id] = g
		order = append(order, g)
	}

	out := make([]Event, 0, len(order))
	for _, item := range order {
		switch x := item.(type) {
		case Event:
			out = append(out, x)
		case *group:
			if !x.merged {
				out = append(out, x.first)
				continue
			}
			old, _ := x.first.Get(keys.Old)
			merged := x.last.With(keys.Old, old)
			if reflect.DeepEqual(merged.Value(keys.Old), merged.Value(keys.New)) {
				continue
			}
			out = append(out, merged)
		}
	}
	return out
}

func identity(e Event, keys []string) (string, bool) {
	var b strings.Builder
	found := false
	for _, k := range keys {
		v, ok := e.Get(k)
		if ok {
			found = true
		}
		fmt.Fprintf(&b, "%s=%#v\x00", k, v)
	}
	return b.String(), found
}
