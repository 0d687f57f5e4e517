package functions

import (
	"testing"

	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/memory"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/testutil"
	"github.com/paveg/vexpr/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiIfReturnType(t *testing.T) {
	nullableBool := types.MustNullable(types.Bool)

	tests := []struct {
		name     string
		args     []types.DataType
		expected types.DataType
		code     errors.Code
	}{
		{
			name:     "single branch",
			args:     []types.DataType{types.Bool, types.Int64, types.Int64},
			expected: types.Int64,
		},
		{
			name:     "branches unified",
			args:     []types.DataType{types.Bool, types.Int8, types.Bool, types.Uint8, types.Int16},
			expected: types.Int16,
		},
		{
			name:     "nullable condition wraps result",
			args:     []types.DataType{nullableBool, types.Int8, types.Int8},
			expected: types.MustNullable(types.Int8),
		},
		{
			name:     "null condition wraps result",
			args:     []types.DataType{types.Null, types.Int8, types.Bool, types.Int8, types.Int8},
			expected: types.MustNullable(types.Int8),
		},
		{
			name:     "all conditions null skip branch checks",
			args:     []types.DataType{types.Null, types.Int8, types.Null, types.String, types.Int8},
			expected: types.Null,
		},
		{
			name:     "nullable branch stays nullable",
			args:     []types.DataType{types.Bool, types.MustNullable(types.Float32), types.Int16},
			expected: types.MustNullable(types.Float32),
		},
		{
			name: "even arity",
			args: []types.DataType{types.Bool, types.Int8},
			code: errors.CodeArgumentCount,
		},
		{
			name: "too few arguments",
			args: []types.DataType{types.Bool},
			code: errors.CodeArgumentCount,
		},
		{
			name: "string condition",
			args: []types.DataType{types.String, types.Int8, types.Int8},
			code: errors.CodeIllegalType,
		},
		{
			name: "integer condition",
			args: []types.DataType{types.Bool, types.Int8, types.Int32, types.Int8, types.Int8},
			code: errors.CodeIllegalType,
		},
		{
			name: "no common type",
			args: []types.DataType{types.Bool, types.String, types.Int8},
			code: errors.CodeIllegalType,
		},
	}

	f := NewMultiIf()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ReturnType(tt.args)
			if tt.code != 0 {
				require.Error(t, err)
				code, ok := errors.CodeOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.code, code)
				return
			}
			require.NoError(t, err)
			assert.True(t, types.Equal(tt.expected, got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestMultiIfFirstMatch(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	b := testutil.NewBatch(t, 3,
		[]series.Column{
			series.New([]bool{true, false, false}, mem.Allocator),
			series.New([]int64{10, 10, 10}, mem.Allocator),
			series.New([]bool{false, true, false}, mem.Allocator),
			series.New([]int64{20, 20, 20}, mem.Allocator),
			series.New([]int64{30, 30, 30}, mem.Allocator),
		},
		[]types.DataType{types.Bool, types.Int64, types.Bool, types.Int64, types.Int64})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(5), result))
	testutil.AssertResult(t, b, result, types.Int64, []any{int64(10), int64(20), int64(30)})
}

func TestMultiIfPrecedence(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	// both conditions are true on rows 0 and 2
	b := testutil.NewBatch(t, 3,
		[]series.Column{
			series.New([]bool{true, false, true}, mem.Allocator),
			series.New([]int8{1, 1, 1}, mem.Allocator),
			series.New([]bool{true, true, true}, mem.Allocator),
			series.New([]uint8{2, 2, 2}, mem.Allocator),
			series.ConstOf(int32(3), 3, mem.Allocator),
		},
		[]types.DataType{types.Bool, types.Int8, types.Bool, types.Uint8, types.Int32})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(5), result))
	testutil.AssertResult(t, b, result, types.Int32, []any{int32(1), int32(2), int32(1)})
}

func TestMultiIfNullableCondition(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	cond, err := series.NewNullableOf([]bool{true, true, false}, []bool{false, true, false}, mem.Allocator)
	require.NoError(t, err)

	b := testutil.NewBatch(t, 3,
		[]series.Column{
			cond,
			series.New([]int64{1, 1, 1}, mem.Allocator),
			series.New([]int64{2, 2, 2}, mem.Allocator),
		},
		[]types.DataType{types.MustNullable(types.Bool), types.Int64, types.Int64})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(3), result))

	// the NULL row falls through to else; the result is Nullable but has no NULL rows
	testutil.AssertResult(t, b, result, types.MustNullable(types.Int64), []any{int64(1), int64(2), int64(2)})
}

func TestMultiIfConstantConditions(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	b := testutil.NewBatch(t, 4,
		[]series.Column{
			series.ConstOf(false, 4, mem.Allocator),
			series.ConstOf(uint8(1), 4, mem.Allocator),
			series.ConstOf(true, 4, mem.Allocator),
			series.ConstOf(uint8(2), 4, mem.Allocator),
			series.ConstOf(uint8(3), 4, mem.Allocator),
		},
		[]types.DataType{types.Bool, types.Uint8, types.Bool, types.Uint8, types.Uint8})
	defer b.Release()

	t.Run("plan keeps only the true branch", func(t *testing.T) {
		scope := memory.NewScope(mem.Allocator)
		defer scope.ReleaseAll()

		plan, err := planInstructions(mem.Ctx, MultiIfName, b, testutil.Positions(5), types.Uint8, scope)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.True(t, plan[0].alwaysTrue)
		assert.True(t, plan[0].sourceConst)
		assert.Equal(t, []any{uint8(2), uint8(2), uint8(2), uint8(2)}, series.Values(plan[0].source))
	})

	t.Run("every row takes the true branch", func(t *testing.T) {
		result := testutil.AddResultSlot(t, b)
		require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(5), result))
		testutil.AssertResult(t, b, result, types.Uint8, []any{uint8(2), uint8(2), uint8(2), uint8(2)})
	})
}

func TestMultiIfDeadBranchElision(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	newBatch := func(cond series.Column, condType types.DataType) (*batch.Batch, int) {
		b := testutil.NewBatch(t, 2,
			[]series.Column{
				cond,
				series.New([]string{"not", "numbers"}, mem.Allocator),
				series.New([]int64{7, 8}, mem.Allocator),
			},
			[]types.DataType{condType, types.String, types.Int64})
		result := testutil.AddResultSlot(t, b)
		require.NoError(t, b.SetType(result, types.MustNullable(types.Int64)))
		return b, result
	}

	tests := []struct {
		name     string
		cond     func() series.Column
		condType types.DataType
	}{
		{
			name:     "statically false",
			cond:     func() series.Column { return series.ConstOf(false, 2, mem.Allocator) },
			condType: types.Bool,
		},
		{
			name:     "statically null",
			cond:     func() series.Column { return series.NewNullConst(types.ToArrow(types.Null), 2, mem.Allocator) },
			condType: types.Null,
		},
		{
			name: "null constant of nullable flag",
			cond: func() series.Column {
				c, err := series.ConstFromValue(nil, types.MustNullable(types.Bool), 2, mem.Allocator)
				require.NoError(t, err)
				return c
			},
			condType: types.MustNullable(types.Bool),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, result := newBatch(tt.cond(), tt.condType)
			defer b.Release()

			// the String branch cannot be converted, but it is never reached
			require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(3), result))
			testutil.AssertResult(t, b, result, types.MustNullable(types.Int64), []any{int64(7), int64(8)})
		})
	}

	t.Run("live branch is converted", func(t *testing.T) {
		b, result := newBatch(series.New([]bool{false, false}, mem.Allocator), types.Bool)
		defer b.Release()

		err := NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(3), result)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrCannotConvert)
	})
}

func TestMultiIfStaticTrueTruncation(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	b := testutil.NewBatch(t, 2,
		[]series.Column{
			series.ConstOf(true, 2, mem.Allocator),
			series.New([]int64{1, 2}, mem.Allocator),
			series.New([]bool{true, true}, mem.Allocator),
			series.New([]string{"never", "read"}, mem.Allocator),
			series.New([]string{"else", "branch"}, mem.Allocator),
		},
		[]types.DataType{types.Bool, types.Int64, types.Bool, types.String, types.String})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, b.SetType(result, types.Int64))

	scope := memory.NewScope(mem.Allocator)
	plan, err := planInstructions(mem.Ctx, MultiIfName, b, testutil.Positions(5), types.Int64, scope)
	require.NoError(t, err)
	assert.Len(t, plan, 1)
	scope.ReleaseAll()

	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(5), result))
	testutil.AssertResult(t, b, result, types.Int64, []any{int64(1), int64(2)})
}

func TestMultiIfAllNullConditions(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	b := testutil.NewBatch(t, 3,
		[]series.Column{
			series.NewNullConst(types.ToArrow(types.Null), 3, mem.Allocator),
			series.New([]string{"a", "b", "c"}, mem.Allocator),
			series.New([]int64{1, 2, 3}, mem.Allocator),
		},
		[]types.DataType{types.Null, types.String, types.Int64})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(3), result))
	testutil.AssertResult(t, b, result, types.Null, []any{nil, nil, nil})

	col, err := b.Column(result)
	require.NoError(t, err)
	assert.True(t, series.IsNullColumn(col))
}

func TestMultiIfNullableBranches(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	branch, err := series.NewNullableOf([]int32{1, 0, 3, 4}, []bool{false, true, false, false}, mem.Allocator)
	require.NoError(t, err)

	b := testutil.NewBatch(t, 4,
		[]series.Column{
			series.New([]bool{true, true, false, true}, mem.Allocator),
			branch,
			series.NewNullConst(types.ToArrow(types.Null), 4, mem.Allocator),
		},
		[]types.DataType{types.Bool, types.MustNullable(types.Int32), types.Null})
	defer b.Release()

	result := testutil.AddResultSlot(t, b)
	require.NoError(t, NewMultiIf().Execute(mem.Ctx, b, testutil.Positions(3), result))
	testutil.AssertResult(t, b, result, types.MustNullable(types.Int32), []any{int32(1), nil, nil, int32(4)})
}

func TestMultiIfExecuteErrors(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	b := testutil.CreateTestBatch(t, mem.Allocator)
	defer b.Release()
	result := testutil.AddResultSlot(t, b)

	t.Run("even arity", func(t *testing.T) {
		err := NewMultiIf().Execute(mem.Ctx, b, []int{2, 0}, result)
		assert.ErrorIs(t, err, errors.ErrArgumentCount)
	})

	t.Run("text condition", func(t *testing.T) {
		err := NewMultiIf().Execute(mem.Ctx, b, []int{1, 0, 0}, result)
		assert.ErrorIs(t, err, errors.ErrIllegalType)
		e, _ := b.Entry(result)
		assert.Nil(t, e.Column, "no column is written on failure")
	})

	t.Run("position out of range", func(t *testing.T) {
		err := NewMultiIf().Execute(mem.Ctx, b, []int{2, 0, 9}, result)
		assert.Error(t, err)
	})
}

func TestIf(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("return type", func(t *testing.T) {
		f := NewIf()

		got, err := f.ReturnType([]types.DataType{types.MustNullable(types.Bool), types.Int8, types.Uint8})
		require.NoError(t, err)
		assert.Equal(t, "Int16", got.Name(), "nullable condition does not wrap if")

		got, err = f.ReturnType([]types.DataType{types.Null, types.String, types.Int8})
		require.NoError(t, err)
		assert.Equal(t, types.Int8, got)

		_, err = f.ReturnType([]types.DataType{types.Bool, types.Int8, types.Int8, types.Int8})
		assert.ErrorIs(t, err, errors.ErrArgumentCount)
	})

	t.Run("null condition selects else", func(t *testing.T) {
		b := testutil.CreateTestBatch(t, mem.Allocator, testutil.WithNulls())
		defer b.Release()

		elseCol := series.ConstOf(int64(0), b.Rows(), mem.Allocator)
		elsePos, err := b.Insert(batch.Entry{Name: "zero", Type: types.Int64, Column: elseCol})
		require.NoError(t, err)

		result := testutil.AddResultSlot(t, b)
		require.NoError(t, NewIf().Execute(mem.Ctx, b, []int{2, 0, elsePos}, result))
		// active = [true, NULL, false, true]
		testutil.AssertResult(t, b, result, types.Int64, []any{int64(1), int64(0), int64(0), int64(4)})
	})
}
