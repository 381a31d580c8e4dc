package occurrence

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is a minimal in-process Repository; the full-featured stores
// live under storage/ and have their own tests.
type memoryRepo struct {
	rows map[string]map[string]map[int][]Row // owner -> version -> component
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]map[string]map[int][]Row)}
}

func (m *memoryRepo) Put(_ context.Context, ownerID, versionID string, componentIndex int, rows []Row) error {
	if m.rows[ownerID] == nil {
		m.rows[ownerID] = make(map[string]map[int][]Row)
	}
	if m.rows[ownerID][versionID] == nil {
		m.rows[ownerID][versionID] = make(map[int][]Row)
	}
	m.rows[ownerID][versionID][componentIndex] = append([]Row(nil), rows...)
	return nil
}

func (m *memoryRepo) Trim(_ context.Context, ownerID, versionID string, componentIndex, maxSequence int) error {
	rows := m.rows[ownerID][versionID][componentIndex]
	kept := rows[:0]
	for _, r := range rows {
		if r.SequenceIndex <= maxSequence {
			kept = append(kept, r)
		}
	}
	m.rows[ownerID][versionID][componentIndex] = kept
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, ownerID, versionID string) error {
	delete(m.rows[ownerID], versionID)
	return nil
}

func (m *memoryRepo) List(_ context.Context, ownerID string, from, to time.Time) ([]Row, error) {
	var out []Row
	for _, byComponent := range m.rows[ownerID] {
		for _, rows := range byComponent {
			for _, r := range rows {
				if !r.Start.After(to) && !r.End.Before(from) {
					out = append(out, r)
				}
			}
		}
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMaterializeNonRecurring(t *testing.T) {
	h, err := NewNonRecurring(at(2024, 1, 1, 9, 0), mo.Some(at(2024, 1, 1, 10, 0)))
	require.NoError(t, err)

	m := NewMaterializer(newMemoryRepo(), MaterializerConfig{})
	occs, err := m.Materialize(h, at(2024, 1, 1, 0, 0))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.True(t, occs[0].Start.Equal(at(2024, 1, 1, 9, 0)))
}

func TestMaterializeFiniteRuleIgnoresHorizon(t *testing.T) {
	h, err := NewHelper("FREQ=DAILY;COUNT=4", at(2024, 1, 1, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)

	m := NewMaterializer(newMemoryRepo(), MaterializerConfig{Horizon: 24 * time.Hour})
	occs, err := m.Materialize(h, at(2024, 1, 1, 9, 0))
	require.NoError(t, err)
	assert.Len(t, occs, 4)
}

func TestMaterializeInfiniteRuleBoundedByHorizon(t *testing.T) {
	h, err := NewHelper("FREQ=DAILY", at(2024, 1, 1, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)

	m := NewMaterializer(newMemoryRepo(), MaterializerConfig{Horizon: 10 * 24 * time.Hour})
	occs, err := m.Materialize(h, at(2024, 1, 1, 9, 0))
	require.NoError(t, err)
	// Anchor through now+10d inclusive.
	require.Len(t, occs, 11)
	assert.True(t, occs[10].Start.Equal(at(2024, 1, 11, 9, 0)))
}

func TestSaveAdvancingClockAppendsWithoutDuplicates(t *testing.T) {
	repo := newMemoryRepo()
	h, err := NewHelper("FREQ=DAILY", at(2024, 1, 1, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)

	ctx := context.Background()
	m := NewMaterializer(repo, MaterializerConfig{
		Horizon: 10 * 24 * time.Hour,
		Clock:   fixedClock(at(2024, 1, 1, 9, 0)),
	})
	maxSeq, err := m.Save(ctx, "owner-1", "v1", 0, h)
	require.NoError(t, err)
	assert.Equal(t, 10, maxSeq)

	// A day later the horizon moved one day forward: one extra row, no
	// duplicate accumulation.
	m = NewMaterializer(repo, MaterializerConfig{
		Horizon: 10 * 24 * time.Hour,
		Clock:   fixedClock(at(2024, 1, 2, 9, 0)),
	})
	maxSeq, err = m.Save(ctx, "owner-1", "v1", 0, h)
	require.NoError(t, err)
	assert.Equal(t, 11, maxSeq)

	rows, err := repo.List(ctx, "owner-1", at(2024, 1, 1, 0, 0), at(2024, 12, 31, 0, 0))
	require.NoError(t, err)
	assert.Len(t, rows, 12)
}

func TestSaveEmptyResultReturnsMinusOne(t *testing.T) {
	// The helper's only occurrence was excluded.
	h, err := NewHelper("RRULE:FREQ=DAILY;COUNT=1\nEXDATE:20240101T090000Z",
		at(2024, 1, 1, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)

	m := NewMaterializer(newMemoryRepo(), MaterializerConfig{})
	maxSeq, err := m.Save(context.Background(), "owner-1", "v1", 0, h)
	require.NoError(t, err)
	assert.Equal(t, -1, maxSeq)
}

func TestRemoveScopedToVersion(t *testing.T) {
	repo := newMemoryRepo()
	h, err := NewHelper("FREQ=DAILY;COUNT=3", at(2024, 1, 1, 9, 0), mo.None[time.Time]())
	require.NoError(t, err)

	ctx := context.Background()
	m := NewMaterializer(repo, MaterializerConfig{Clock: fixedClock(at(2024, 1, 1, 9, 0))})
	_, err = m.Save(ctx, "owner-1", "v1", 0, h)
	require.NoError(t, err)
	_, err = m.Save(ctx, "owner-1", "v2", 0, h)
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, "owner-1", "v1"))

	rows, err := repo.List(ctx, "owner-1", at(2024, 1, 1, 0, 0), at(2024, 12, 31, 0, 0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "v2", r.VersionID)
	}
}

func TestSaveRowScoping(t *testing.T) {
	repo := newMemoryRepo()
	h, err := NewHelper("FREQ=DAILY;COUNT=2", at(2024, 1, 1, 9, 0), mo.Some(at(2024, 1, 1, 11, 0)))
	require.NoError(t, err)

	m := NewMaterializer(repo, MaterializerConfig{Clock: fixedClock(at(2024, 1, 1, 9, 0))})
	_, err = m.Save(context.Background(), "owner-1", "v1", 2, h)
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), "owner-1", at(2024, 1, 1, 0, 0), at(2024, 12, 31, 0, 0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "owner-1", r.OwnerID)
		assert.Equal(t, "v1", r.VersionID)
		assert.Equal(t, 2, r.ComponentIndex)
		assert.Equal(t, 2*time.Hour, r.End.Sub(r.Start))
	}
}
