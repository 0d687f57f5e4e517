package functions

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/memory"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
)

// ArrayName is the name of the array construction function
const ArrayName = "array"

// Array builds one array per row from its arguments in order:
// array(x, y)[r] = [x[r], y[r]].
type Array struct{}

// NewArray creates the array function
func NewArray() *Array { return &Array{} }

// Name returns the function name
func (f *Array) Name() string { return ArrayName }

// ReturnType is Array of the least common type of the arguments, or
// Array(Null) without arguments
func (f *Array) ReturnType(args []types.DataType) (types.DataType, error) {
	if len(args) == 0 {
		return types.NewArray(types.Null), nil
	}
	elem, err := types.LeastCommonType(args)
	if err != nil {
		return nil, err
	}
	return types.NewArray(elem), nil
}

// Execute builds the array column. When every argument is constant the
// result is a constant array.
func (f *Array) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	resultType, err := prepare(f, b, args, result)
	if err != nil {
		return err
	}
	arrType, ok := resultType.(*types.ArrayType)
	if !ok {
		return errors.NewIllegalTypeError(ArrayName, fmt.Sprintf("result type %s is not an Array", resultType.Name()))
	}
	elemType := arrType.Elem()

	mem := exec.GetAllocator(ctx)
	scope := memory.NewScope(mem)
	defer scope.ReleaseAll()

	allConst := true
	sources := make([]series.Column, len(args))
	for i, pos := range args {
		col, colType, err := argument(b, pos)
		if err != nil {
			return err
		}
		converted, err := cast.Column(ctx, col, colType, elemType)
		if err != nil {
			return err
		}
		scope.Track(converted)
		sources[i] = converted
		allConst = allConst && converted.IsConst()
	}

	rows := b.Rows()
	buildRows := rows
	if allConst {
		buildRows = 1
	}

	elems, err := buildElements(sources, elemType, buildRows, scope)
	if err != nil {
		return err
	}
	lists := series.NewFixedLists(elems, len(sources), buildRows)

	if !allConst {
		return b.SetColumn(result, lists)
	}
	out, err := series.NewConst(lists, rows)
	if err != nil {
		lists.Release()
		return errors.NewInternalError(ArrayName, err)
	}
	return b.SetColumn(result, out)
}

// buildElements lays out the elements row-major: row 0 of every source,
// then row 1, and so on
func buildElements(sources []series.Column, elemType types.DataType, rows int, scope *memory.Scope) (arrow.Array, error) {
	if types.IsNull(elemType) {
		elems := array.NewNull(rows * len(sources))
		scope.Track(elems)
		return elems, nil
	}

	builder := series.NewBuilder(elemType, scope.Allocator())
	defer builder.Release()
	builder.Reserve(rows * len(sources))

	appenders := make([]func(int), len(sources))
	for i, src := range sources {
		app, err := builder.Appender(src)
		if err != nil {
			return nil, errors.NewInternalError(ArrayName, err)
		}
		appenders[i] = app
	}

	for row := 0; row < rows; row++ {
		for _, app := range appenders {
			app(row)
		}
	}

	col := builder.Finish()
	scope.Track(col)
	return series.Flatten(col).Values, nil
}
