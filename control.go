package spectate

import (
	"fmt"
	"strings"

	"github.com/aretw0/spectate/pkg/domain"
)

// BeforeFunc runs before a controlled method. Its return value reaches the
// after-hook as Answer.Before. A failure does not stop the method from
// running; it is handed to the after-hook as Answer.Err instead.
type BeforeFunc[T Observable] func(self T, call domain.Call, notify NotifyFunc) (any, error)

// AfterFunc runs after a controlled method returned successfully. A failure
// is returned to the caller of the method.
type AfterFunc[T Observable] func(self T, answer domain.Answer, notify NotifyFunc) error

// Control binds a fixed set of method names of T to a before-hook and an
// after-hook. Controls are values: Before, After and Named return modified
// copies and leave the receiver untouched.
type Control[T Observable] struct {
	name    string
	methods []string
	before  BeforeFunc[T]
	after   AfterFunc[T]
}

// NewControl declares a control over the given methods. Each argument may
// also be a comma separated list, e.g. NewControl[*List]("Set, Delete").
func NewControl[T Observable](methods ...string) Control[T] {
	var names []string
	seen := make(map[string]bool)
	for _, m := range methods {
		for _, part := range strings.Split(m, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			names = append(names, part)
		}
	}
	return Control[T]{methods: names}
}

// Before returns a copy of c using fn as its before-hook.
func (c Control[T]) Before(fn BeforeFunc[T]) Control[T] {
	c.before = fn
	return c
}

// After returns a copy of c using fn as its after-hook.
func (c Control[T]) After(fn AfterFunc[T]) Control[T] {
	c.after = fn
	return c
}

// Named returns a copy of c with a name used in error messages.
func (c Control[T]) Named(name string) Control[T] {
	c.name = name
	return c
}

// Name returns the control's name, defaulting to its method list.
func (c Control[T]) Name() string {
	if c.name != "" {
		return c.name
	}
	return strings.Join(c.methods, ",")
}

// Methods returns the controlled method names.
func (c Control[T]) Methods() []string {
	return append([]string(nil), c.methods...)
}

// Hooks returns the hooks of c, so another control can share them.
func (c Control[T]) Hooks() (BeforeFunc[T], AfterFunc[T]) {
	return c.before, c.after
}

func (c Control[T]) validate() error {
	if len(c.methods) == 0 {
		return fmt.Errorf("control %q names no methods: %w", c.Name(), domain.ErrInvalidControl)
	}
	if c.before == nil && c.after == nil {
		return fmt.Errorf("control %q has no hooks: %w", c.Name(), domain.ErrInvalidControl)
	}
	return nil
}
