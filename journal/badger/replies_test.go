package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesserae/deepinspect/journal"
)

func testRepository(t *testing.T) journal.Repository {
	t.Helper()
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_RecordAndGet(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()

	sentAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	reply := []byte(`{"mq_message_id":"msg-1","docs":[]}`)

	require.NoError(t, repo.Record(ctx, &journal.Entry{
		CorrelationID: "msg-1",
		SentAt:        sentAt,
		Reply:         reply,
	}))

	entry, err := repo.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", entry.CorrelationID)
	assert.True(t, sentAt.Equal(entry.SentAt))
	// Byte-for-byte what was sent.
	assert.Equal(t, reply, entry.Reply)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := testRepository(t)

	_, err := repo.Get(context.Background(), "never-sent")
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestRepository_RecordValidation(t *testing.T) {
	repo := testRepository(t)

	assert.ErrorIs(t, repo.Record(context.Background(), nil), journal.ErrInvalidEntry)
	assert.ErrorIs(t, repo.Record(context.Background(), &journal.Entry{}), journal.ErrInvalidEntry)
}

func TestRepository_Recent(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"msg-1", "msg-2", "msg-3"} {
		require.NoError(t, repo.Record(ctx, &journal.Entry{
			CorrelationID: id,
			SentAt:        base.Add(time.Duration(i) * time.Minute),
			Reply:         []byte(id),
		}))
	}

	entries, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "msg-3", entries[0].CorrelationID)
	assert.Equal(t, "msg-2", entries[1].CorrelationID)

	all, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_RedeliveryOverwrites(t *testing.T) {
	repo := testRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, &journal.Entry{
		CorrelationID: "msg-1",
		SentAt:        base,
		Reply:         []byte("first"),
	}))
	require.NoError(t, repo.Record(ctx, &journal.Entry{
		CorrelationID: "msg-1",
		SentAt:        base.Add(time.Hour),
		Reply:         []byte("second"),
	}))

	entry, err := repo.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), entry.Reply)

	// The old time-index entry is gone: exactly one listing remains.
	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("second"), entries[0].Reply)
}
