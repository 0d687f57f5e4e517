package vexpr_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr"
	"github.com/paveg/vexpr/internal/config"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/testutil"
	"github.com/paveg/vexpr/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusBatch(t *testing.T, mem memory.Allocator, statuses []int64) *vexpr.Batch {
	t.Helper()
	b, err := vexpr.NewBatch(vexpr.Entry{
		Name:   "status",
		Type:   types.Int64,
		Column: series.New(statuses, mem),
	})
	require.NoError(t, err)
	return b
}

func statusExpr() vexpr.Expr {
	return vexpr.CaseOf(vexpr.Col("status")).
		When(vexpr.Lit(1), vexpr.Lit("active")).
		When(vexpr.Lit(2), vexpr.Lit("closed")).
		Else(vexpr.Lit("unknown"))
}

func TestNewEngine(t *testing.T) {
	engine, err := vexpr.NewEngine()
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, config.DefaultTransformHashThreshold, engine.Config().TransformHashThreshold)
	assert.Contains(t, engine.Functions(), "multiIf")
	assert.Contains(t, engine.Functions(), "caseWithExpr")
	assert.False(t, engine.Metrics().IsEnabled())

	_, err = vexpr.NewEngine(vexpr.WithConfig(vexpr.Config{MaxParallelism: -1}))
	assert.Error(t, err)
}

func TestEngineEvaluate(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	engine, err := vexpr.NewEngine(vexpr.WithAllocator(mem.Allocator))
	require.NoError(t, err)
	defer engine.Close()

	b := newStatusBatch(t, mem.Allocator, []int64{1, 2, 3, 1})
	defer b.Release()

	col, err := engine.Evaluate(context.Background(), statusExpr(), b)
	require.NoError(t, err)
	defer col.Release()
	testutil.AssertColumnValues(t, []any{"active", "closed", "unknown", "active"}, col)

	t.Run("non-boolean condition", func(t *testing.T) {
		nullable, err := vexpr.ParseType("Nullable(Int64)")
		require.NoError(t, err)

		e := vexpr.Case().
			When(vexpr.Cast(vexpr.Col("status"), nullable), vexpr.Lit("unused")).
			Else(vexpr.Lit("x"))
		_, err = engine.Evaluate(context.Background(), e, b)
		assert.ErrorIs(t, err, errors.ErrIllegalType)
	})

	t.Run("multiIf", func(t *testing.T) {
		e := vexpr.MultiIf(
			vexpr.Call("caseWithExpr", vexpr.Col("status"), vexpr.Lit(1), vexpr.Lit(true), vexpr.Lit(false)),
			vexpr.Lit(10),
			vexpr.Lit(20))
		col, err := engine.Evaluate(context.Background(), e, b)
		require.NoError(t, err)
		defer col.Release()
		testutil.AssertColumnValues(t, []any{int64(10), int64(20), int64(20), int64(10)}, col)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := engine.Evaluate(context.Background(), vexpr.Col("missing"), b)
		assert.ErrorIs(t, err, errors.ErrColumnNotFound)
	})
}

func TestEngineEvaluateBatches(t *testing.T) {
	inputs := [][]int64{{1, 2}, {3}, {2, 2, 1}, {4, 1}}
	expected := [][]any{
		{"active", "closed"},
		{"unknown"},
		{"closed", "closed", "active"},
		{"unknown", "active"},
	}

	tests := []struct {
		name      string
		threshold int
	}{
		{"sequential", 1_000_000},
		{"parallel", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := testutil.SetupMemoryTest(t)
			defer mem.Release()

			cfg := config.NewConfig()
			cfg.ParallelThreshold = tt.threshold
			cfg.WorkerPoolSize = 2
			engine, err := vexpr.NewEngine(vexpr.WithConfig(cfg), vexpr.WithAllocator(mem.Allocator))
			require.NoError(t, err)
			defer engine.Close()

			batches := make([]*vexpr.Batch, len(inputs))
			for i, in := range inputs {
				batches[i] = newStatusBatch(t, mem.Allocator, in)
				defer batches[i].Release()
			}

			results, err := engine.EvaluateBatches(context.Background(), statusExpr(), batches)
			require.NoError(t, err)
			require.Len(t, results, len(inputs))
			for i, col := range results {
				testutil.AssertColumnValues(t, expected[i], col)
				col.Release()
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		engine, err := vexpr.NewEngine()
		require.NoError(t, err)
		defer engine.Close()

		results, err := engine.EvaluateBatches(context.Background(), statusExpr(), nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("error releases results", func(t *testing.T) {
		mem := testutil.SetupMemoryTest(t)
		defer mem.Release()

		cfg := config.NewConfig()
		cfg.ParallelThreshold = 1
		engine, err := vexpr.NewEngine(vexpr.WithConfig(cfg), vexpr.WithAllocator(mem.Allocator))
		require.NoError(t, err)
		defer engine.Close()

		good := newStatusBatch(t, mem.Allocator, []int64{1, 2})
		defer good.Release()
		bad, err := vexpr.NewBatch(vexpr.Entry{
			Name:   "status",
			Type:   types.String,
			Column: series.New([]string{"a"}, mem.Allocator),
		})
		require.NoError(t, err)
		defer bad.Release()

		results, err := engine.EvaluateBatches(context.Background(), statusExpr(), []*vexpr.Batch{good, bad, good})
		assert.ErrorIs(t, err, errors.ErrIllegalType)
		assert.Nil(t, results)
	})
}

func TestEngineMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := config.NewConfig()
	cfg.MetricsCollection = true
	engine, err := vexpr.NewEngine(vexpr.WithConfig(cfg), vexpr.WithLogger(logger))
	require.NoError(t, err)
	defer engine.Close()

	b := newStatusBatch(t, memory.DefaultAllocator, []int64{1, 2, 3})
	defer b.Release()

	col, err := engine.Evaluate(context.Background(), statusExpr(), b)
	require.NoError(t, err)
	col.Release()

	_, err = engine.Evaluate(context.Background(),
		vexpr.Transform(vexpr.Col("status"), vexpr.Array(vexpr.Lit("a")), vexpr.Array(vexpr.Lit(1))), b)
	require.Error(t, err)

	summary := engine.Metrics().GetSummary()
	assert.Equal(t, 1, summary.TotalOperations)
	assert.Equal(t, int64(3), summary.TotalRows)
	assert.Equal(t, map[string]int{"caseWithExpression": 1}, summary.OperationCounts)

	out := buf.String()
	assert.Contains(t, out, "evaluated batch")
	assert.Contains(t, out, "function=caseWithExpression")
	assert.Contains(t, out, "compile failed")
}
