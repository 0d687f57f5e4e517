package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/types"
)

// Scalar is the set of Go types a column can be built from
type Scalar interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | string
}

// TypeOf returns the semantic type of columns built from T values
func TypeOf[T Scalar]() types.DataType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return types.Bool
	case int8:
		return types.Int8
	case int16:
		return types.Int16
	case int32:
		return types.Int32
	case int64:
		return types.Int64
	case uint8:
		return types.Uint8
	case uint16:
		return types.Uint16
	case uint32:
		return types.Uint32
	case uint64:
		return types.Uint64
	case float32:
		return types.Float32
	case float64:
		return types.Float64
	default:
		return types.String
	}
}

// New creates a regular column from a slice of values
func New[T Scalar](values []T, mem memory.Allocator) *Vector {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	b := array.NewBuilder(mem, types.ToArrow(TypeOf[T]()))
	defer b.Release()
	b.Reserve(len(values))

	for _, v := range values {
		// T is restricted to the types appendValue handles
		_ = appendValue(b, v)
	}
	return NewVector(b.NewArray())
}

// NewNullableOf creates a nullable column; row i is null when nulls[i] is set
func NewNullableOf[T Scalar](values []T, nulls []bool, mem memory.Allocator) (*Nullable, error) {
	if len(values) != len(nulls) {
		return nil, fmt.Errorf("values has %d entries, nulls has %d", len(values), len(nulls))
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	b := array.NewBuilder(mem, types.ToArrow(TypeOf[T]()))
	defer b.Release()
	b.Reserve(len(values))

	for i, v := range values {
		if nulls[i] {
			b.AppendNull()
			continue
		}
		_ = appendValue(b, v)
	}

	nullMap := make([]bool, len(nulls))
	copy(nullMap, nulls)
	return &Nullable{nested: NewVector(b.NewArray()), nullMap: nullMap}, nil
}

// ConstOf creates a constant column broadcasting v to length rows
func ConstOf[T Scalar](v T, length int, mem memory.Allocator) *Const {
	return &Const{data: New([]T{v}, mem), length: length}
}

// ConstFromValue creates a constant column of semantic type dt holding v.
// A nil v creates a constant NULL, which requires a Nullable or Null type.
func ConstFromValue(v any, dt types.DataType, length int, mem memory.Allocator) (*Const, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	if v == nil {
		if !types.IsNull(dt) && !types.IsNullable(dt) {
			return nil, fmt.Errorf("NULL constant requires a Nullable type, got %s", dt)
		}
		return NewNullConst(types.ToArrow(dt), length, mem), nil
	}

	b := NewBuilder(dt, mem)
	defer b.Release()
	if err := b.AppendValue(v); err != nil {
		return nil, err
	}
	data := b.Finish()
	return &Const{data: data, length: length}, nil
}

// ValueAt returns the value of row i as a Go value; ok is false for NULL.
// Array rows are returned as []any.
func ValueAt(c Column, i int) (any, bool) {
	f := Flatten(c)
	if f.IsNull(i) {
		return nil, false
	}
	return arrowValue(f.Values, f.Index(i))
}

// Values returns all rows of c as Go values, with nil for NULL rows
func Values(c Column) []any {
	out := make([]any, c.Len())
	for i := range out {
		out[i], _ = ValueAt(c, i)
	}
	return out
}

func arrowValue(arr arrow.Array, i int) (any, bool) {
	if arr.IsNull(i) {
		return nil, false
	}
	switch a := arr.(type) {
	case *array.Null:
		return nil, false
	case *array.Boolean:
		return a.Value(i), true
	case *array.Int8:
		return a.Value(i), true
	case *array.Int16:
		return a.Value(i), true
	case *array.Int32:
		return a.Value(i), true
	case *array.Int64:
		return a.Value(i), true
	case *array.Uint8:
		return a.Value(i), true
	case *array.Uint16:
		return a.Value(i), true
	case *array.Uint32:
		return a.Value(i), true
	case *array.Uint64:
		return a.Value(i), true
	case *array.Float32:
		return a.Value(i), true
	case *array.Float64:
		return a.Value(i), true
	case *array.String:
		return a.Value(i), true
	case *array.List:
		start, end := a.ValueOffsets(i)
		elems := a.ListValues()
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, _ := arrowValue(elems, int(j))
			out = append(out, v)
		}
		return out, true
	default:
		return nil, false
	}
}

// FlagReader returns a function reporting whether the flag column c is true
// at a row. NULL rows read as false. The strategy is chosen once here.
func FlagReader(c Column) (func(row int) bool, error) {
	f := Flatten(c)
	if f.Values.DataType().ID() == arrow.NULL {
		return func(int) bool { return false }, nil
	}
	flags, ok := f.Values.(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("flag column must be Bool, got %s", f.Values.DataType())
	}

	switch {
	case f.ConstData && (f.Nulls == nil || f.ConstNull):
		v := !f.IsNull(0) && flags.Value(0)
		return func(int) bool { return v }, nil
	case f.ConstData:
		v := flags.Value(0)
		nulls := f.Nulls
		return func(row int) bool { return !nulls[row] && v }, nil
	case f.Nulls != nil:
		nulls := f.Nulls
		return func(row int) bool { return !nulls[row] && flags.Value(row) }, nil
	default:
		return flags.Value, nil
	}
}
