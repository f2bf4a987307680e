/*
Package spectate lets plain Go types announce their own mutations to interested observers.

A type opts in by embedding Model and routing the methods that mutate it through a Method wrapper. Each wrapped method belongs to a Control, which pairs a before-hook (capturing what the method is about to change) with an after-hook (describing what it did). The hooks emit events: small, ordered sets of key/value fields. Views registered on an instance receive those events in batches.

# Concept

Instrumentation is kept beside the type, not inside it. The method body does the work; the control describes it.

	type List struct {
		spectate.Model
		items []int
	}

	var listType = spectate.MustType("List",
		spectate.NewControl[*List]("Append").
			Before(func(l *List, _ domain.Call, _ spectate.NotifyFunc) (any, error) {
				return len(l.items), nil
			}).
			After(func(l *List, a domain.Answer, notify spectate.NotifyFunc) error {
				i := a.Before.(int)
				notify("index", i, "new", l.items[i])
				return nil
			}),
	)

	var listAppend = listType.MustMethod("Append", "value")

	func (l *List) Append(v int) error {
		_, err := listAppend.Call(l, func() (any, error) {
			l.items = append(l.items, v)
			return nil, nil
		}, v)
		return err
	}

# Batches and transactions

Everything emitted during one outermost controlled call on an instance is delivered as a single batch once the call returns, so a method built from other controlled methods produces one batch, not many.

Callers widen that window with transaction frames:

  - Hold delivers everything emitted inside it as one batch on exit, optionally passed through a Reducer such as DiffReducer.
  - Rollback behaves like Hold, but on failure discards the batch and runs an undo function with notifications muted.
  - Mute drops everything emitted inside it.

Frames nest. A closed frame hands its events to the enclosing frame, and only the outermost one delivers.

# Views and links

A view is any ViewFunc. Views run in registration order; a failing or panicking view does not stop the others, and their failures are returned to the code that triggered delivery as a *domain.ViewError.

Link connects instances into a graph: views registered on a parent also receive the batches of its children, transitively, with the child reported as the origin. Each view runs at most once per batch, even when the graph has diamonds or cycles.

# Concurrency

An instance's notification state is not synchronized. Like the instance itself, it must be confined to one goroutine at a time or guarded by the caller. Re-entrant calls from hooks and views on the same goroutine are supported.
*/
package spectate
