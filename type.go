package spectate

import (
	"fmt"

	"github.com/aretw0/spectate/internal/runtime"
	"github.com/aretw0/spectate/pkg/domain"
)

// Type is the registry of the controls declared for T. It is built once,
// typically in a package-level variable, and is read-only afterwards.
type Type[T Observable] struct {
	name     string
	order    []string
	controls map[string]Control[T]
}

// NewType validates controls and indexes them by method name. Two controls
// claiming the same method fail with a *domain.ControlConflictError.
func NewType[T Observable](name string, controls ...Control[T]) (*Type[T], error) {
	t := &Type[T]{
		name:     name,
		controls: make(map[string]Control[T]),
	}
	for _, c := range controls {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		for _, m := range c.methods {
			if prev, ok := t.controls[m]; ok {
				return nil, &domain.ControlConflictError{
					Type:   name,
					Method: m,
					First:  prev.Name(),
					Second: c.Name(),
				}
			}
			t.controls[m] = c
			t.order = append(t.order, m)
		}
	}
	return t, nil
}

// MustType is like NewType but panics on error.
func MustType[T Observable](name string, controls ...Control[T]) *Type[T] {
	t, err := NewType(name, controls...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the type name given to NewType.
func (t *Type[T]) Name() string { return t.name }

// Methods returns the controlled method names in declaration order.
func (t *Type[T]) Methods() []string {
	return append([]string(nil), t.order...)
}

// Method returns the interception wrapper of a controlled method. params
// names the method's parameters for Call.Parameters; a method declared
// without them cannot be bound.
func (t *Type[T]) Method(name string, params ...string) (*Method[T], error) {
	c, ok := t.controls[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", t.name, name, domain.ErrUnknownMethod)
	}
	return &Method[T]{
		typ:    t,
		name:   name,
		params: params,
		signed: len(params) > 0,
		ctrl:   c,
	}, nil
}

// MustMethod is like Method but panics on error.
func (t *Type[T]) MustMethod(name string, params ...string) *Method[T] {
	m, err := t.Method(name, params...)
	if err != nil {
		panic(err)
	}
	return m
}

// KwArg is a named argument passed to a controlled method. It is reported
// in Call.Kwargs instead of Call.Args.
type KwArg struct {
	Key   string
	Value any
}

// Kw builds a named argument.
func Kw(key string, value any) KwArg {
	return KwArg{Key: key, Value: value}
}

// Method intercepts the calls of one controlled method of T.
type Method[T Observable] struct {
	typ    *Type[T]
	name   string
	params []string
	signed bool
	ctrl   Control[T]
}

// Name returns the method name.
func (m *Method[T]) Name() string { return m.name }

// String returns Type.Method.
func (m *Method[T]) String() string { return m.typ.name + "." + m.name }

// Call runs fn as the body of the method on self, surrounded by the
// control's hooks. args describe the invocation to the hooks.
func (m *Method[T]) Call(self T, fn func() (any, error), args ...any) (any, error) {
	return Invoke(m, self, fn, args...)
}

func (m *Method[T]) newCall(args []any) domain.Call {
	var positional []any
	kwargs := make(map[string]any)
	for _, a := range args {
		if kw, ok := a.(KwArg); ok {
			kwargs[kw.Key] = kw.Value
			continue
		}
		positional = append(positional, a)
	}
	call := domain.NewCall(m.name, positional, kwargs)
	if m.signed {
		call = call.WithSignature(m.params...)
	}
	return call
}

// Invoke runs fn as the body of m on self:
//
//  1. the before-hook runs; a failure or panic is captured, not returned,
//     and logged unless an after-hook receives it in the Answer
//  2. fn runs; if it fails, its result is returned unchanged and the
//     after-hook is skipped
//  3. the after-hook runs with the Answer; its failure or panic is returned
//     as a *domain.HookError after fn already took effect
//
// Events emitted by the hooks, and by any controlled call nested inside
// the outermost one on self, are delivered together once it returns.
func Invoke[T Observable, R any](m *Method[T], self T, fn func() (R, error), args ...any) (R, error) {
	st := stateOf(self)
	call := m.newCall(args)
	notify := emitter(st)

	var result R
	err := st.Call(func() error {
		before, beforeErr := m.before(self, call, notify)

		value, err := fn()
		result = value
		// Without an after-hook to receive it, a before failure is only logged.
		if beforeErr != nil && (m.ctrl.after == nil || err != nil) {
			st.Logger().Warn("before hook failed", "method", m.String(), "err", beforeErr)
		}
		if err != nil {
			return err
		}
		if m.ctrl.after == nil {
			return nil
		}
		answer := domain.Answer{Name: m.name, Value: value, Before: before, Err: beforeErr}
		err = runtime.Protect(func() error { return m.ctrl.after(self, answer, notify) })
		if err != nil {
			return &domain.HookError{Phase: domain.PhaseAfter, Method: m.String(), Err: err}
		}
		return nil
	})
	return result, err
}

func (m *Method[T]) before(self T, call domain.Call, notify NotifyFunc) (any, error) {
	if m.ctrl.before == nil {
		return domain.NoBefore, nil
	}
	var value any
	err := runtime.Protect(func() error {
		var err error
		value, err = m.ctrl.before(self, call, notify)
		return err
	})
	if err != nil {
		return nil, &domain.HookError{Phase: domain.PhaseBefore, Method: m.String(), Err: err}
	}
	return value, nil
}

// emitter returns the NotifyFunc handed to hooks. Hooks always run inside a
// call frame, so emission never delivers directly; a failure here can only
// come from a frame flushed by the hook itself and is logged.
func emitter(st *runtime.State) NotifyFunc {
	return func(args ...any) {
		if err := st.Emit(domain.NewEvent(args...)); err != nil {
			st.Logger().Warn("notify failed", "err", err)
		}
	}
}
