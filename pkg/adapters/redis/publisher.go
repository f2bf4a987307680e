package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Publisher is a view forwarding batches to Redis: published as JSON
// records on a channel, appended to a Journal, or both.
type Publisher struct {
	client  *backend.Client
	channel string
	journal *Journal
	timeout time.Duration
	now     func() time.Time
	label   func(spectate.Observable) string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithChannel publishes each record on channel.
func WithChannel(channel string) PublisherOption {
	return func(p *Publisher) {
		p.channel = channel
	}
}

// WithJournal appends each record to j.
func WithJournal(j *Journal) PublisherOption {
	return func(p *Publisher) {
		p.journal = j
	}
}

// WithTimeout bounds the Redis round trips of one delivery. Defaults to 2s.
func WithTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// WithModelLabel sets how the origin of a batch is named in records.
func WithModelLabel(fn func(spectate.Observable) string) PublisherOption {
	return func(p *Publisher) {
		p.label = fn
	}
}

// NewPublisher creates a publisher using an existing client.
func NewPublisher(client *backend.Client, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		client:  client,
		timeout: 2 * time.Second,
		now:     time.Now,
		label: func(o spectate.Observable) string {
			return fmt.Sprintf("%T", o)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// View forwards batch. It blocks for at most the configured timeout.
func (p *Publisher) View(origin spectate.Observable, batch domain.Batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.Publish(ctx, domain.Record{Model: p.label(origin), Time: p.now(), Batch: batch})
}

// Publish journals rec first, so subscribers see its sequence number.
func (p *Publisher) Publish(ctx context.Context, rec domain.Record) error {
	if p.journal != nil {
		var err error
		if rec, err = p.journal.Append(ctx, rec); err != nil {
			return err
		}
	}
	if p.channel == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
