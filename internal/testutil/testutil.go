// Package testutil provides common testing utilities to reduce code duplication
// across test files in the vexpr packages.
//
// This package consolidates common test patterns:
// - Checked allocator setup with a leak check on release
// - Standard test batch creation
// - Common column and batch assertions
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// defaultRowCount is the default number of rows in test batches.
	defaultRowCount = 4
)

// TestMemoryContext provides a checked allocator and a context carrying it.
type TestMemoryContext struct {
	Allocator *memory.CheckedAllocator
	Ctx       context.Context
	tb        testing.TB
	released  bool
}

// Release verifies that every allocation made through the context has been
// freed. Calling Release more than once is safe.
func (tmc *TestMemoryContext) Release() {
	if tmc.released {
		return
	}
	tmc.released = true
	tmc.Allocator.AssertSize(tmc.tb, 0)
}

// SetupMemoryTest creates a checked allocator for tests.
// Returns a TestMemoryContext that should be released with defer.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
//	err := fn.Execute(mem.Ctx, b, args, result)
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	allocator := memory.NewCheckedAllocator(memory.NewGoAllocator())

	return &TestMemoryContext{
		Allocator: allocator,
		Ctx:       cast.WithAllocator(context.Background(), allocator),
		tb:        tb,
	}
}

// TestBatchOption configures test batch creation.
type TestBatchOption func(*testBatchConfig)

type testBatchConfig struct {
	includeNulls bool
	rowCount     int
}

// WithNulls makes the flag column Nullable with every third row NULL.
func WithNulls() TestBatchOption {
	return func(cfg *testBatchConfig) {
		cfg.includeNulls = true
	}
}

// WithRowCount sets the number of rows in test data.
func WithRowCount(count int) TestBatchOption {
	return func(cfg *testBatchConfig) {
		cfg.rowCount = count
	}
}

// CreateTestBatch creates a standard test batch.
//
// Default batch includes:
// - x (Int64): [1, 2, 3, 4]
// - name (String): ["Alice", "Bob", "Charlie", "David"]
// - active (Bool): [true, true, false, true]
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
//	b := testutil.CreateTestBatch(t, mem.Allocator)
//	defer b.Release()
func CreateTestBatch(tb testing.TB, allocator memory.Allocator, opts ...TestBatchOption) *batch.Batch {
	tb.Helper()
	cfg := &testBatchConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}

	xs := make([]int64, cfg.rowCount)
	for i := range xs {
		xs[i] = int64(i + 1)
	}

	var (
		active     series.Column
		activeType types.DataType = types.Bool
	)
	flags := generateActiveFlags(cfg.rowCount)
	if cfg.includeNulls {
		nulls := make([]bool, cfg.rowCount)
		for i := range nulls {
			nulls[i] = i%3 == 1
		}
		col, err := series.NewNullableOf(flags, nulls, allocator)
		require.NoError(tb, err)
		active = col
		activeType = types.MustNullable(types.Bool)
	} else {
		active = series.New(flags, allocator)
	}

	b, err := batch.New(
		batch.Entry{Name: "x", Type: types.Int64, Column: series.New(xs, allocator)},
		batch.Entry{Name: "name", Type: types.String, Column: series.New(generateNames(cfg.rowCount), allocator)},
		batch.Entry{Name: "active", Type: activeType, Column: active},
	)
	require.NoError(tb, err)
	return b
}

// NewBatch builds a batch from columns named c0, c1, ... with the given
// types. Columns are owned by the returned batch.
func NewBatch(tb testing.TB, rows int, cols []series.Column, ts []types.DataType) *batch.Batch {
	tb.Helper()
	require.Len(tb, ts, len(cols), "one type per column")

	entries := make([]batch.Entry, len(cols))
	for i := range cols {
		entries[i] = batch.Entry{Name: fmt.Sprintf("c%d", i), Type: ts[i], Column: cols[i]}
	}
	b, err := batch.NewWithRows(rows, entries...)
	require.NoError(tb, err)
	return b
}

// AddResultSlot appends an unnamed, untyped, empty slot to b and returns
// its position.
func AddResultSlot(tb testing.TB, b *batch.Batch) int {
	tb.Helper()
	pos, err := b.Insert(batch.Entry{})
	require.NoError(tb, err)
	return pos
}

// Positions returns [0, n).
func Positions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// AssertColumnValues compares the rows of col with expected, nil meaning NULL.
func AssertColumnValues(t *testing.T, expected []any, col series.Column) {
	t.Helper()

	require.NotNil(t, col, "column should not be nil")
	assert.Equal(t, len(expected), col.Len(), "column length should match")
	assert.Equal(t, expected, series.Values(col))
}

// AssertResult checks the type and values of the column at pos.
func AssertResult(t *testing.T, b *batch.Batch, pos int, expectedType types.DataType, expected []any) {
	t.Helper()

	e, err := b.Entry(pos)
	require.NoError(t, err)
	require.NotNil(t, e.Column, "result column should be written")
	assert.True(t, types.Equal(expectedType, e.Type), "expected type %s, got %s", expectedType, e.Type)
	AssertColumnValues(t, expected, e.Column)
}

// AssertBatchHasColumns verifies that a batch has the expected slot names.
func AssertBatchHasColumns(t *testing.T, b *batch.Batch, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, b, "batch should not be nil")
	for _, name := range expectedColumns {
		_, ok := b.PositionOf(name)
		assert.True(t, ok, "batch should have column %s", name)
	}
}

// Helper functions for generating test data

func generateNames(count int) []string {
	baseNames := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Henry"}
	names := make([]string, count)
	for i := range count {
		names[i] = baseNames[i%len(baseNames)]
	}
	return names
}

func generateActiveFlags(count int) []bool {
	baseFlags := []bool{true, true, false, true, true, false, true, false}
	flags := make([]bool, count)
	for i := range count {
		flags[i] = baseFlags[i%len(baseFlags)]
	}
	return flags
}
