package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
)

// DefaultCapacity is used when NewRecorder is given a capacity <= 0.
const DefaultCapacity = 256

// Recorder implements ports.Journal in memory as a ring buffer.
// Safe for concurrent use.
type Recorder struct {
	mu    sync.RWMutex
	ring  []domain.Record
	next  int
	size  int
	seq   uint64
	now   func() time.Time
	label func(spectate.Observable) string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithModelLabel sets how View names the origin of a batch.
func WithModelLabel(fn func(spectate.Observable) string) RecorderOption {
	return func(r *Recorder) {
		r.label = fn
	}
}

// NewRecorder creates a recorder holding at most capacity records.
func NewRecorder(capacity int, opts ...RecorderOption) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Recorder{
		ring: make([]domain.Record, capacity),
		now:  time.Now,
		label: func(o spectate.Observable) string {
			return fmt.Sprintf("%T", o)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// View appends every batch it receives.
func (r *Recorder) View(origin spectate.Observable, batch domain.Batch) error {
	_, err := r.Append(context.Background(), domain.Record{
		Model: r.label(origin),
		Time:  r.now(),
		Batch: batch,
	})
	return err
}

// Append stores rec, evicting the oldest record when full.
func (r *Recorder) Append(_ context.Context, rec domain.Record) (domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec.Seq = r.seq
	r.ring[r.next] = rec
	r.next = (r.next + 1) % len(r.ring)
	if r.size < len(r.ring) {
		r.size++
	}
	return rec, nil
}

// Recent returns up to limit of the newest records, oldest first.
func (r *Recorder) Recent(_ context.Context, limit int) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Record, n)
	start := r.next - n
	if start < 0 {
		start += len(r.ring)
	}
	for i := range out {
		out[i] = r.ring[(start+i)%len(r.ring)]
	}
	return out, nil
}

// Get returns the record with sequence number seq.
func (r *Recorder) Get(_ context.Context, seq uint64) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	oldest := r.seq - uint64(r.size) + 1
	if seq == 0 || seq > r.seq || seq < oldest {
		return domain.Record{}, fmt.Errorf("seq %d: %w", seq, domain.ErrRecordNotFound)
	}
	back := int(r.seq - seq)
	idx := (r.next - 1 - back + 2*len(r.ring)) % len(r.ring)
	return r.ring[idx], nil
}

// Len returns the number of records held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
