// Package cast converts whole columns from one semantic type to another.
// Value conversion is delegated to the Arrow compute cast kernels; this
// package handles the column representations around them (constant,
// nullable and the statically null column).
package cast

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
)

// WithAllocator returns a context whose casts allocate from mem
func WithAllocator(ctx context.Context, mem memory.Allocator) context.Context {
	return exec.WithAllocator(ctx, mem)
}

// Column converts col, declared as from, into a column of type to. The
// result is a new reference owned by the caller, even when no conversion
// was needed. Columns are allocated from the context allocator.
func Column(ctx context.Context, col series.Column, from, to types.DataType) (series.Column, error) {
	if types.Equal(from, to) {
		col.Retain()
		return col, nil
	}

	if types.IsNull(from) || series.IsNullColumn(col) {
		if !types.IsNullable(to) && !types.IsNull(to) {
			return nil, errors.NewConversionError(from.Name(), to.Name(),
				fmt.Errorf("NULL cannot be converted to non-Nullable type"))
		}
		return series.NewNullConst(types.ToArrow(to), col.Len(), exec.GetAllocator(ctx)), nil
	}
	if types.IsNull(to) {
		return nil, errors.NewConversionError(from.Name(), to.Name(), nil)
	}

	switch c := col.(type) {
	case *series.Const:
		data, err := Column(ctx, c.Data(), from, to)
		if err != nil {
			return nil, err
		}
		out, err := series.NewConst(data, c.Len())
		if err != nil {
			data.Release()
			return nil, errors.NewInternalError("cast", err)
		}
		return out, nil

	case *series.Nullable:
		fromNested := types.RemoveNullable(from)
		if !types.IsNullable(to) {
			for _, isNull := range c.NullMap() {
				if isNull {
					return nil, errors.NewConversionError(from.Name(), to.Name(),
						fmt.Errorf("NULL value cannot be inside non-Nullable column"))
				}
			}
			return Column(ctx, c.Nested(), fromNested, to)
		}

		nested, err := Column(ctx, c.Nested(), fromNested, types.RemoveNullable(to))
		if err != nil {
			return nil, err
		}
		out, err := series.NewNullable(nested, c.NullMap())
		if err != nil {
			nested.Release()
			return nil, errors.NewInternalError("cast", err)
		}
		return out, nil
	}

	if types.IsNullable(to) {
		nested, err := Column(ctx, col, types.RemoveNullable(from), types.RemoveNullable(to))
		if err != nil {
			return nil, err
		}
		out, err := series.NewNullable(nested, make([]bool, col.Len()))
		if err != nil {
			nested.Release()
			return nil, errors.NewInternalError("cast", err)
		}
		return out, nil
	}

	return castValues(ctx, col, from, to)
}

func castValues(ctx context.Context, col series.Column, from, to types.DataType) (series.Column, error) {
	vec, ok := col.(*series.Vector)
	if !ok {
		return nil, errors.NewInternalError("cast", fmt.Errorf("unexpected column representation %s", col))
	}
	if types.Equal(types.RemoveNullable(from), to) {
		vec.Retain()
		return vec, nil
	}
	if err := checkConvertible(from, to); err != nil {
		return nil, err
	}

	out, err := compute.CastArray(ctx, vec.Array(), compute.SafeCastOptions(types.ToArrow(to)))
	if err != nil {
		return nil, errors.NewConversionError(from.Name(), to.Name(), err)
	}
	return series.NewVector(out), nil
}

// checkConvertible rejects conversions between type families that the
// least common type rules never produce
func checkConvertible(from, to types.DataType) error {
	from = types.RemoveNullable(from)
	switch {
	case types.IsArray(from) != types.IsArray(to):
		return errors.NewConversionError(from.Name(), to.Name(), nil)
	case types.IsArray(from):
		return checkConvertible(from.(*types.ArrayType).Elem(), types.RemoveNullable(to.(*types.ArrayType).Elem()))
	case types.IsString(to) && !types.IsString(from):
		return errors.NewConversionError(from.Name(), to.Name(), nil)
	}
	return nil
}
