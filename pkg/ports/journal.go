package ports

import (
	"context"

	"github.com/aretw0/spectate/pkg/domain"
)

// Journal keeps a bounded history of delivered batches.
type Journal interface {
	// Append stores rec and returns it with its sequence number assigned.
	// Sequence numbers start at 1 and increase by one per record.
	Append(ctx context.Context, rec domain.Record) (domain.Record, error)

	// Recent returns up to limit of the newest records, oldest first.
	// A limit <= 0 returns every record held.
	Recent(ctx context.Context, limit int) ([]domain.Record, error)

	// Get returns the record with the given sequence number.
	// Returns domain.ErrRecordNotFound once it was evicted or if it never existed.
	Get(ctx context.Context, seq uint64) (domain.Record, error)
}
