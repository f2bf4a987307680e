package spectate_test

import (
	"fmt"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
)

// List is a minimal observable sequence of ints used across the tests.
type List struct {
	spectate.Model
	items []int
}

type slot struct {
	index int
	old   any
}

var listType = spectate.MustType("List",
	spectate.NewControl[*List]("Append").
		Before(func(l *List, _ domain.Call, _ spectate.NotifyFunc) (any, error) {
			return len(l.items), nil
		}).
		After(func(l *List, a domain.Answer, notify spectate.NotifyFunc) error {
			i := a.Before.(int)
			notify("index", i, "old", nil, "new", l.items[i])
			return nil
		}),
	spectate.NewControl[*List]("Set").
		Before(func(l *List, c domain.Call, _ spectate.NotifyFunc) (any, error) {
			p, err := c.Parameters()
			if err != nil {
				return nil, err
			}
			i := p["index"].(int)
			if i < 0 || i >= len(l.items) {
				return nil, fmt.Errorf("no slot %d", i)
			}
			return slot{index: i, old: l.items[i]}, nil
		}).
		After(func(l *List, a domain.Answer, notify spectate.NotifyFunc) error {
			s := a.Before.(slot)
			notify("index", s.index, "old", s.old, "new", l.items[s.index])
			return nil
		}),
	spectate.NewControl[*List]("Pop").
		After(func(l *List, a domain.Answer, notify spectate.NotifyFunc) error {
			notify("index", len(l.items), "old", a.Value, "new", nil)
			return nil
		}),
	spectate.NewControl[*List]("Extend").
		Before(func(l *List, _ domain.Call, _ spectate.NotifyFunc) (any, error) {
			return nil, nil
		}),
)

var (
	listAppend = listType.MustMethod("Append", "value")
	listSet    = listType.MustMethod("Set", "index", "value")
	listPop    = listType.MustMethod("Pop")
	listExtend = listType.MustMethod("Extend", "values")
)

func NewList(items ...int) *List {
	return &List{items: append([]int(nil), items...)}
}

func (l *List) Items() []int { return append([]int(nil), l.items...) }

func (l *List) Append(v int) error {
	_, err := listAppend.Call(l, func() (any, error) {
		l.items = append(l.items, v)
		return nil, nil
	}, v)
	return err
}

func (l *List) Set(i, v int) error {
	_, err := listSet.Call(l, func() (any, error) {
		if i < 0 || i >= len(l.items) {
			return nil, fmt.Errorf("index %d out of range", i)
		}
		l.items[i] = v
		return nil, nil
	}, i, v)
	return err
}

func (l *List) Pop() (int, error) {
	return spectate.Invoke(listPop, l, func() (int, error) {
		if len(l.items) == 0 {
			return 0, fmt.Errorf("pop from empty list")
		}
		v := l.items[len(l.items)-1]
		l.items = l.items[:len(l.items)-1]
		return v, nil
	})
}

// Extend appends through the controlled Append, so one Extend call
// delivers a single batch.
func (l *List) Extend(values ...int) error {
	_, err := listExtend.Call(l, func() (any, error) {
		for _, v := range values {
			if err := l.Append(v); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}, values)
	return err
}

// recorder is a view keeping every batch it sees.
type recorder struct {
	batches []domain.Batch
	origins []spectate.Observable
}

func (r *recorder) View(origin spectate.Observable, b domain.Batch) error {
	r.batches = append(r.batches, b)
	r.origins = append(r.origins, origin)
	return nil
}

func record(obj spectate.Observable) *recorder {
	r := &recorder{}
	spectate.View(obj, r.View, spectate.ViewName("recorder"))
	return r
}

func values(b domain.Batch, key string) []any {
	out := make([]any, 0, b.Len())
	for _, e := range b.All() {
		out = append(out, e.Value(key))
	}
	return out
}
