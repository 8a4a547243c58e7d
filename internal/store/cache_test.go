package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// --- mock for cache tests ---

type countingReader struct {
	calls int
	table domain.Table
	err   error
}

func (m *countingReader) LoadTable(_ context.Context, _ Key) (domain.Table, error) {
	m.calls++
	return m.table, m.err
}

// --- CachedTables tests ---

func TestCachedTables_Hit(t *testing.T) {
	inner := &countingReader{table: clusteredTable()}
	cached := NewCachedTables(inner, 100)
	k := key(domain.GrowthRate, StageClustered)

	t1, err := cached.LoadTable(context.Background(), k)
	require.NoError(t, err)
	t2, err := cached.LoadTable(context.Background(), k)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, t1, t2)
}

func TestCachedTables_ReturnsCopies(t *testing.T) {
	inner := &countingReader{table: clusteredTable()}
	cached := NewCachedTables(inner, 100)
	k := key(domain.GrowthRate, StageClustered)

	t1, err := cached.LoadTable(context.Background(), k)
	require.NoError(t, err)
	t1.Values[0][0] = 42
	t1.Labels[0] = 9

	t2, err := cached.LoadTable(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, 0.1, t2.Values[0][0])
	assert.Equal(t, 1, t2.Labels[0])
}

func TestCachedTables_ErrorsNotCached(t *testing.T) {
	inner := &countingReader{err: errors.New("boom")}
	cached := NewCachedTables(inner, 100)
	k := key(domain.GrowthRate, StageClustered)

	_, err := cached.LoadTable(context.Background(), k)
	require.Error(t, err)
	_, err = cached.LoadTable(context.Background(), k)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedTables_DifferentKeysMiss(t *testing.T) {
	inner := &countingReader{table: clusteredTable()}
	cached := NewCachedTables(inner, 100)

	_, _ = cached.LoadTable(context.Background(), key(domain.GrowthRate, StageClustered))
	_, _ = cached.LoadTable(context.Background(), key(domain.GrowthRate, StageRaw))

	assert.Equal(t, 2, inner.calls)
}

// --- value budget tests ---

func sizedTable(p domain.Parameter, rows, months int) domain.Table {
	t := domain.Table{Parameter: p, Months: make([]int, months)}
	for i := range rows {
		t.Keys = append(t.Keys, domain.NewCellKey(float64(i), 0))
		t.Values = append(t.Values, make([]float64, months))
	}
	return t
}

type mapReader map[Key]domain.Table

func (m mapReader) LoadTable(_ context.Context, k Key) (domain.Table, error) {
	t, ok := m[k]
	if !ok {
		return domain.Table{}, domain.ErrArtifactNotFound
	}
	return t, nil
}

func TestCachedTables_EvictsLeastRecentlyUsedByValues(t *testing.T) {
	ctx := context.Background()
	a, b, c := key(domain.SalinityFactor, StageClustered), key(domain.NutrientFactor, StageClustered), key(domain.GrowthRate, StageClustered)
	inner := mapReader{
		a: sizedTable(domain.SalinityFactor, 4, 5), // 20 values
		b: sizedTable(domain.NutrientFactor, 2, 5), // 10 values
		c: sizedTable(domain.GrowthRate, 3, 5),     // 15 values
	}
	cached := NewCachedTables(inner, 35)

	_, err := cached.LoadTable(ctx, a)
	require.NoError(t, err)
	_, err = cached.LoadTable(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 30, cached.Held())

	// a is the least recently used and makes room for c.
	_, err = cached.LoadTable(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 25, cached.Held())
	assert.Equal(t, 2, cached.Len())

	_, hit := cached.get(a.String())
	assert.False(t, hit)
	_, hit = cached.get(b.String())
	assert.True(t, hit)
}

func TestCachedTables_OversizedTablePassesThrough(t *testing.T) {
	k := key(domain.GrowthRate, StageRaw)
	inner := &countingReader{table: sizedTable(domain.GrowthRate, 10, 10)}
	cached := NewCachedTables(inner, 50)

	got, err := cached.LoadTable(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())
	_, err = cached.LoadTable(context.Background(), k)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Held())
}

func TestCachedTables_ReloadReplacesEntry(t *testing.T) {
	k := key(domain.GrowthRate, StageClustered)
	cached := NewCachedTables(&countingReader{}, 100)

	assert.True(t, cached.put(k.String(), sizedTable(domain.GrowthRate, 2, 5)))
	assert.True(t, cached.put(k.String(), sizedTable(domain.GrowthRate, 4, 5)))
	assert.Equal(t, 1, cached.Len())
	assert.Equal(t, 20, cached.Held())
}

func TestCachedTables_DisabledBudget(t *testing.T) {
	inner := &countingReader{table: clusteredTable()}
	cached := NewCachedTables(inner, 0)
	k := key(domain.GrowthRate, StageClustered)

	_, _ = cached.LoadTable(context.Background(), k)
	_, _ = cached.LoadTable(context.Background(), k)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}
