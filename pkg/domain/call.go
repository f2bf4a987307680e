package domain

import "fmt"

// Call describes a pending invocation of a controlled method.
type Call struct {
	Name   string
	Args   []any
	Kwargs map[string]any

	params []string
	signed bool
}

// NewCall builds a Call without a declared signature.
// Parameters on such a call fails with ErrBindingUnavailable.
func NewCall(name string, args []any, kwargs map[string]any) Call {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return Call{Name: name, Args: args, Kwargs: kwargs}
}

// WithSignature returns a copy of c bound to the given parameter names.
func (c Call) WithSignature(params ...string) Call {
	c.params = append([]string(nil), params...)
	c.signed = true
	return c
}

// Signature returns the declared parameter names and whether one was declared.
func (c Call) Signature() ([]string, bool) {
	return append([]string(nil), c.params...), c.signed
}

// Parameters binds Args and Kwargs to the declared parameter names.
// Parameters missing from the call are absent from the result.
func (c Call) Parameters() (map[string]any, error) {
	if !c.signed {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrBindingUnavailable)
	}
	if len(c.Args) > len(c.params) {
		return nil, fmt.Errorf("%s: takes %d positional arguments but %d were given: %w",
			c.Name, len(c.params), len(c.Args), ErrInvalidBinding)
	}

	bound := make(map[string]any, len(c.Args)+len(c.Kwargs))
	for i, v := range c.Args {
		bound[c.params[i]] = v
	}
	for k, v := range c.Kwargs {
		if !c.declares(k) {
			return nil, fmt.Errorf("%s: unexpected argument %q: %w", c.Name, k, ErrInvalidBinding)
		}
		if _, dup := bound[k]; dup {
			return nil, fmt.Errorf("%s: multiple values for argument %q: %w", c.Name, k, ErrInvalidBinding)
		}
		bound[k] = v
	}
	return bound, nil
}

func (c Call) declares(name string) bool {
	for _, p := range c.params {
		if p == name {
			return true
		}
	}
	return false
}

type noBefore struct{}

func (noBefore) String() string { return "NoBefore" }

// NoBefore is stored in Answer.Before when the control has no before-hook.
var NoBefore any = noBefore{}

// Answer describes a completed invocation of a controlled method.
type Answer struct {
	Name  string
	Value any
	// Before is the before-hook's return value, or NoBefore.
	Before any
	// Err is the before-hook failure captured for this call, if any.
	Err error
}

// HasBefore reports whether a before-hook contributed Before.
func (a Answer) HasBefore() bool {
	return a.Before != NoBefore
}
