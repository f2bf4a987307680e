package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/spectate/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal on a capped Redis list.
// Records are stored as JSON, so event values come back JSON-decoded.
type Journal struct {
	client   *backend.Client
	prefix   string
	capacity int64
	locker   *Locker
	lockTTL  time.Duration
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithPrefix sets the key prefix. Defaults to "spectate:".
func WithPrefix(prefix string) JournalOption {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithCapacity bounds the number of records kept. Defaults to 1000.
func WithCapacity(n int) JournalOption {
	return func(j *Journal) {
		if n > 0 {
			j.capacity = int64(n)
		}
	}
}

// WithLocker makes Append hold a distributed lock, keeping the list in
// sequence order when several processes write to the same journal.
func WithLocker(l *Locker, ttl time.Duration) JournalOption {
	return func(j *Journal) {
		j.locker = l
		j.lockTTL = ttl
	}
}

// NewJournal creates a journal using an existing client.
func NewJournal(client *backend.Client, opts ...JournalOption) *Journal {
	j := &Journal{
		client:   client,
		prefix:   "spectate:",
		capacity: 1000,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) listKey() string { return j.prefix + "journal" }
func (j *Journal) seqKey() string  { return j.prefix + "journal:seq" }

// Append assigns the next sequence number, pushes rec and trims the list.
func (j *Journal) Append(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if j.locker != nil {
		unlock, err := j.locker.Lock(ctx, "journal", j.lockTTL)
		if err != nil {
			return rec, err
		}
		defer func() { _ = unlock(context.WithoutCancel(ctx)) }()
	}

	seq, err := j.client.Incr(ctx, j.seqKey()).Result()
	if err != nil {
		return rec, fmt.Errorf("redis incr: %w", err)
	}
	rec.Seq = uint64(seq)

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("encode record: %w", err)
	}

	_, err = j.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.RPush(ctx, j.listKey(), data)
		pipe.LTrim(ctx, j.listKey(), -j.capacity, -1)
		return nil
	})
	if err != nil {
		return rec, fmt.Errorf("redis append: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit of the newest records, oldest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.Record, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	items, err := j.client.LRange(ctx, j.listKey(), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		rec, err := decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the record with sequence number seq. It first reads the
// position seq would have in a gapless list and falls back to scanning the
// list, which is bounded by the capacity, when that position holds another
// record. Gaps appear when a push fails after its sequence number was taken;
// writers in several processes without a Locker can also interleave.
func (j *Journal) Get(ctx context.Context, seq uint64) (domain.Record, error) {
	notFound := fmt.Errorf("seq %d: %w", seq, domain.ErrRecordNotFound)

	first, err := j.index(ctx, 0)
	if err != nil {
		return domain.Record{}, orNotFound(err, notFound)
	}
	if seq >= first.Seq {
		rec, err := j.index(ctx, int64(seq-first.Seq))
		if err == nil && rec.Seq == seq {
			return rec, nil
		}
		if err != nil && !errors.Is(err, backend.Nil) {
			return domain.Record{}, fmt.Errorf("redis lindex: %w", err)
		}
	}

	recs, err := j.Recent(ctx, 0)
	if err != nil {
		return domain.Record{}, err
	}
	for _, rec := range recs {
		if rec.Seq == seq {
			return rec, nil
		}
	}
	return domain.Record{}, notFound
}

func (j *Journal) index(ctx context.Context, i int64) (domain.Record, error) {
	item, err := j.client.LIndex(ctx, j.listKey(), i).Result()
	if err != nil {
		return domain.Record{}, err
	}
	return decode(item)
}

func orNotFound(err, notFound error) error {
	if err == nil || errors.Is(err, backend.Nil) {
		return notFound
	}
	return fmt.Errorf("redis lindex: %w", err)
}

func decode(item string) (domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal([]byte(item), &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
