package spectate_test

import (
	"errors"
	"testing"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControl_SplitsMethodLists(t *testing.T) {
	c := spectate.NewControl[*List]("Set, Delete", "Pop", "Set", " ")
	assert.Equal(t, []string{"Set", "Delete", "Pop"}, c.Methods())
	assert.Equal(t, "Set,Delete,Pop", c.Name())
	assert.Equal(t, "edits", c.Named("edits").Name())
}

func TestControl_BuildersCopy(t *testing.T) {
	base := spectate.NewControl[*List]("Set")
	withAfter := base.After(func(*List, domain.Answer, spectate.NotifyFunc) error { return nil })

	b, a := base.Hooks()
	assert.Nil(t, b)
	assert.Nil(t, a, "After must not modify the receiver")

	_, a = withAfter.Hooks()
	assert.NotNil(t, a)
}

func TestNewType_Validation(t *testing.T) {
	noop := func(*List, domain.Answer, spectate.NotifyFunc) error { return nil }

	tests := []struct {
		name     string
		controls []spectate.Control[*List]
		want     error
	}{
		{
			name:     "no methods",
			controls: []spectate.Control[*List]{spectate.NewControl[*List]().After(noop)},
			want:     domain.ErrInvalidControl,
		},
		{
			name:     "no hooks",
			controls: []spectate.Control[*List]{spectate.NewControl[*List]("Set")},
			want:     domain.ErrInvalidControl,
		},
		{
			name: "conflict",
			controls: []spectate.Control[*List]{
				spectate.NewControl[*List]("Set, Pop").After(noop).Named("first"),
				spectate.NewControl[*List]("Pop").After(noop).Named("second"),
			},
			want: domain.ErrControlConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := spectate.NewType("List", tt.controls...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewType_ConflictDetails(t *testing.T) {
	noop := func(*List, domain.Answer, spectate.NotifyFunc) error { return nil }
	_, err := spectate.NewType("List",
		spectate.NewControl[*List]("Set").After(noop).Named("first"),
		spectate.NewControl[*List]("Set").After(noop).Named("second"),
	)

	var conflict *domain.ControlConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Set", conflict.Method)
	assert.Equal(t, "first", conflict.First)
	assert.Equal(t, "second", conflict.Second)

	assert.Panics(t, func() {
		spectate.MustType("List",
			spectate.NewControl[*List]("Set").After(noop),
			spectate.NewControl[*List]("Set").After(noop),
		)
	})
}

func TestType_Methods(t *testing.T) {
	assert.Equal(t, "List", listType.Name())
	assert.Equal(t, []string{"Append", "Set", "Pop", "Extend"}, listType.Methods())

	_, err := listType.Method("Clear")
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)
	assert.Equal(t, "List.Set", listSet.String())
}

func TestMethod_CallArguments(t *testing.T) {
	var got domain.Call
	typ := spectate.MustType("List",
		spectate.NewControl[*List]("Insert").
			Before(func(_ *List, c domain.Call, _ spectate.NotifyFunc) (any, error) {
				got = c
				return nil, nil
			}),
	)
	insert := typ.MustMethod("Insert", "index", "value")

	_, err := insert.Call(NewList(), func() (any, error) { return nil, nil }, 0, spectate.Kw("value", 9))
	require.NoError(t, err)

	assert.Equal(t, "Insert", got.Name)
	assert.Equal(t, []any{0}, got.Args)
	assert.Equal(t, map[string]any{"value": 9}, got.Kwargs)
	params, err := got.Parameters()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"index": 0, "value": 9}, params)
}

func TestMethod_UnsignedBindingUnavailable(t *testing.T) {
	var bindErr error
	typ := spectate.MustType("List",
		spectate.NewControl[*List]("Clear").
			Before(func(_ *List, c domain.Call, _ spectate.NotifyFunc) (any, error) {
				_, bindErr = c.Parameters()
				return nil, nil
			}),
	)
	_, err := typ.MustMethod("Clear").Call(NewList(), func() (any, error) { return nil, nil }, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, bindErr, domain.ErrBindingUnavailable)
}

func TestInvoke_AnswerCarriesResult(t *testing.T) {
	m := NewList(4, 5)
	rec := record(m)

	v, err := m.Pop()
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	require.Len(t, rec.batches, 1)
	e := rec.batches[0].At(0)
	assert.Equal(t, 1, e.Value("index"))
	assert.Equal(t, 5, e.Value("old"))
}

func TestInvoke_MethodFailurePropagatesUnchanged(t *testing.T) {
	m := NewList()
	rec := record(m)

	_, err := m.Pop()
	require.EqualError(t, err, "pop from empty list")
	var hookErr *domain.HookError
	assert.False(t, errors.As(err, &hookErr))
	assert.Empty(t, rec.batches, "after-hook must not run")
}

func TestInvoke_BeforeFailureReachesAfter(t *testing.T) {
	var answer domain.Answer
	typ := spectate.MustType("List",
		spectate.NewControl[*List]("Touch").
			Before(func(*List, domain.Call, spectate.NotifyFunc) (any, error) {
				panic("boom")
			}).
			After(func(_ *List, a domain.Answer, _ spectate.NotifyFunc) error {
				answer = a
				return nil
			}),
	)
	ran := false
	_, err := typ.MustMethod("Touch").Call(NewList(), func() (any, error) { ran = true; return "ok", nil })

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "ok", answer.Value)
	var hookErr *domain.HookError
	require.ErrorAs(t, answer.Err, &hookErr)
	assert.Equal(t, domain.PhaseBefore, hookErr.Phase)
	var p *domain.PanicError
	assert.ErrorAs(t, answer.Err, &p)
}

func TestInvoke_AfterFailureIsReturned(t *testing.T) {
	afterErr := errors.New("after failed")
	typ := spectate.MustType("List",
		spectate.NewControl[*List]("Touch").
			After(func(_ *List, a domain.Answer, _ spectate.NotifyFunc) error {
				assert.False(t, a.HasBefore())
				return afterErr
			}),
	)
	ran := false
	_, err := typ.MustMethod("Touch").Call(NewList(), func() (any, error) { ran = true; return nil, nil })

	assert.True(t, ran, "the method takes effect before the after-hook fails")
	assert.ErrorIs(t, err, afterErr)
	var hookErr *domain.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, domain.PhaseAfter, hookErr.Phase)
	assert.Equal(t, "List.Touch", hookErr.Method)
}

func TestInvoke_AfterPanicIsReturned(t *testing.T) {
	typ := spectate.MustType("List",
		spectate.NewControl[*List]("Touch").
			After(func(*List, domain.Answer, spectate.NotifyFunc) error { panic("boom") }),
	)

	_, err := typ.MustMethod("Touch").Call(NewList(), func() (any, error) { return nil, nil })

	var hookErr *domain.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, domain.PhaseAfter, hookErr.Phase)
	var p *domain.PanicError
	require.ErrorAs(t, err, &p)
	assert.Equal(t, "boom", p.Value)
}

func TestInvoke_NestedCallsDeliverOnce(t *testing.T) {
	m := NewList()
	rec := record(m)

	require.NoError(t, m.Extend(1, 2, 3))

	require.Len(t, rec.batches, 1)
	assert.Equal(t, []any{1, 2, 3}, values(rec.batches[0], "new"))
	assert.Equal(t, 0, spectate.Attach(m).Depth())
}

func TestInvoke_ReentrantViewSeesSeparateBatch(t *testing.T) {
	m := NewList()
	var sizes []int
	spectate.View(m, func(origin spectate.Observable, b domain.Batch) error {
		sizes = append(sizes, b.Len())
		l := origin.(*List)
		if len(l.items) == 1 {
			return l.Append(2)
		}
		return nil
	})

	require.NoError(t, m.Append(1))
	assert.Equal(t, []int{1, 2}, m.Items())
	assert.Equal(t, []int{1, 1}, sizes)
}
