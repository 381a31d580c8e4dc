package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/daterecur/occurrence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "occurrences.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeRows(ownerID, versionID string, componentIndex, n int, base time.Time) []occurrence.Row {
	rows := make([]occurrence.Row, n)
	for i := range rows {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		rows[i] = occurrence.Row{
			OwnerID:        ownerID,
			VersionID:      versionID,
			ComponentIndex: componentIndex,
			SequenceIndex:  i,
			Start:          start,
			End:            start.Add(time.Hour),
		}
	}
	return rows
}

func TestPutListRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 3, base)))

	rows, err := store.List(ctx, owner, base.AddDate(0, 0, -1), base.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Start.Equal(base))
	assert.True(t, rows[0].End.Equal(base.Add(time.Hour)))
	assert.Equal(t, owner, rows[0].OwnerID)
	assert.Equal(t, "v1", rows[0].VersionID)
}

func TestPutReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 5, base)))
	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 2, base)))

	rows, err := store.List(ctx, owner, base.AddDate(0, 0, -1), base.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPutLeavesOtherComponentsAlone(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 2, base)))
	require.NoError(t, store.Put(ctx, owner, "v1", 1, makeRows(owner, "v1", 1, 2, base)))
	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 1, base)))

	rows, err := store.List(ctx, owner, base.AddDate(0, 0, -1), base.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestTrim(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 5, base)))
	require.NoError(t, store.Trim(ctx, owner, "v1", 0, 1))

	rows, err := store.List(ctx, owner, base.AddDate(0, 0, -1), base.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.LessOrEqual(t, r.SequenceIndex, 1)
	}
}

func TestDeleteScopedToVersion(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 3, base)))
	require.NoError(t, store.Put(ctx, owner, "v2", 0, makeRows(owner, "v2", 0, 3, base)))
	require.NoError(t, store.Delete(ctx, owner, "v1"))

	rows, err := store.List(ctx, owner, base.AddDate(0, 0, -1), base.AddDate(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "v2", r.VersionID)
	}
}

func TestListRangeIsPartialOverlap(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := uuid.NewString()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, owner, "v1", 0, makeRows(owner, "v1", 0, 3, base)))

	// Window cuts through the middle of the first occurrence only.
	rows, err := store.List(ctx, owner, base.Add(30*time.Minute), base.Add(45*time.Minute))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
