package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/ports"
)

// Mask replaces the value of every masked field.
const Mask = "***"

type piiMiddleware struct {
	next     ports.Journal
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of event
// fields whose key matches any of the patterns, including keys of nested
// map[string]any values. The batch the views received is left untouched.
// It panics if a pattern does not compile.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Journal) ports.Journal {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, rec domain.Record) (domain.Record, error) {
	events := make([]domain.Event, 0, rec.Batch.Len())
	for _, e := range rec.Batch.All() {
		events = append(events, m.maskEvent(e))
	}
	rec.Batch = domain.NewBatch(events...)
	return m.next.Append(ctx, rec)
}

func (m *piiMiddleware) Recent(ctx context.Context, limit int) ([]domain.Record, error) {
	return m.next.Recent(ctx, limit)
}

func (m *piiMiddleware) Get(ctx context.Context, seq uint64) (domain.Record, error) {
	return m.next.Get(ctx, seq)
}

func (m *piiMiddleware) maskEvent(e domain.Event) domain.Event {
	fields := e.Fields()
	args := make([]any, len(fields))
	for i, f := range fields {
		if m.matches(f.Key) {
			f.Value = Mask
		} else if sub, ok := f.Value.(map[string]any); ok {
			f.Value = m.maskMap(sub)
		}
		args[i] = f
	}
	return domain.NewEvent(args...)
}

// maskMap returns a masked copy of src.
func (m *piiMiddleware) maskMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		switch sub, isMap := v.(map[string]any); {
		case m.matches(k):
			out[k] = Mask
		case isMap:
			out[k] = m.maskMap(sub)
		default:
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
