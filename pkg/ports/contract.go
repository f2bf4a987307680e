package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/spectate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract verifies that a Journal implementation adheres to the
// interface contract. newJournal must return an empty journal holding at
// most capacity records.
func RunJournalContract(t *testing.T, newJournal func(capacity int) Journal) {
	ctx := context.Background()

	record := func(k int) domain.Record {
		return domain.Record{
			Model: "contract",
			Time:  time.Date(2024, 1, 1, 0, 0, k, 0, time.UTC),
			Batch: domain.NewBatch(domain.NewEvent("k", k)),
		}
	}

	t.Run("Append assigns sequence numbers", func(t *testing.T) {
		j := newJournal(10)
		first, err := j.Append(ctx, record(1))
		require.NoError(t, err)
		second, err := j.Append(ctx, record(2))
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first.Seq)
		assert.Equal(t, uint64(2), second.Seq)
	})

	t.Run("Get", func(t *testing.T) {
		j := newJournal(10)
		rec, err := j.Append(ctx, record(1))
		require.NoError(t, err)

		got, err := j.Get(ctx, rec.Seq)
		require.NoError(t, err)
		assert.Equal(t, "contract", got.Model)
		assert.True(t, rec.Time.Equal(got.Time))
		require.Equal(t, 1, got.Batch.Len())
		// Values may come back JSON-decoded, so only presence is checked.
		assert.True(t, got.Batch.At(0).Has("k"))

		_, err = j.Get(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Recent", func(t *testing.T) {
		j := newJournal(10)
		for k := 1; k <= 4; k++ {
			_, err := j.Append(ctx, record(k))
			require.NoError(t, err)
		}

		recs, err := j.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, uint64(3), recs[0].Seq)
		assert.Equal(t, uint64(4), recs[1].Seq)

		all, err := j.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("Capacity evicts oldest", func(t *testing.T) {
		j := newJournal(3)
		for k := 1; k <= 5; k++ {
			_, err := j.Append(ctx, record(k))
			require.NoError(t, err)
		}

		recs, err := j.Recent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, uint64(3), recs[0].Seq)

		_, err = j.Get(ctx, 2)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
		_, err = j.Get(ctx, 5)
		assert.NoError(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		recs, err := newJournal(3).Recent(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
