package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/types"
)

// Builder accumulates rows of one semantic type. Nullable types keep a null
// map next to the nested Arrow builder; the Null type only counts rows.
type Builder struct {
	dt       types.DataType
	mem      memory.Allocator
	values   array.Builder
	nullMap  []bool
	nullable bool
	length   int
}

// NewBuilder creates a builder for columns of type dt
func NewBuilder(dt types.DataType, mem memory.Allocator) *Builder {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := &Builder{dt: dt, mem: mem, nullable: types.IsNullable(dt)}
	if !types.IsNull(dt) {
		b.values = array.NewBuilder(mem, types.ToArrow(dt))
	}
	return b
}

// Type returns the semantic type being built
func (b *Builder) Type() types.DataType { return b.dt }

// Len returns the number of rows appended so far
func (b *Builder) Len() int { return b.length }

// Reserve grows capacity for n more rows
func (b *Builder) Reserve(n int) {
	if b.values != nil {
		b.values.Reserve(n)
	}
	if b.nullable && cap(b.nullMap)-len(b.nullMap) < n {
		grown := make([]bool, len(b.nullMap), len(b.nullMap)+n)
		copy(grown, b.nullMap)
		b.nullMap = grown
	}
}

// AppendNull appends a NULL row
func (b *Builder) AppendNull() error {
	switch {
	case b.values == nil:
	case b.nullable:
		b.values.AppendNull()
		b.nullMap = append(b.nullMap, true)
	default:
		return fmt.Errorf("cannot append NULL to a column of type %s", b.dt)
	}
	b.length++
	return nil
}

// AppendValue appends a Go value; nil appends NULL
func (b *Builder) AppendValue(v any) error {
	if v == nil {
		return b.AppendNull()
	}
	if b.values == nil {
		return fmt.Errorf("cannot append %v to a column of type %s", v, b.dt)
	}
	if err := appendValue(b.values, v); err != nil {
		return err
	}
	if b.nullable {
		b.nullMap = append(b.nullMap, false)
	}
	b.length++
	return nil
}

// Appender returns a function that appends row i of src. src must hold
// values of the builder's type; the read strategy for src is chosen here,
// once, so the returned function does no representation checks.
func (b *Builder) Appender(src Column) (func(row int), error) {
	if b.values == nil {
		return func(int) { b.length++ }, nil
	}

	f := Flatten(src)
	if f.Nulls != nil && !b.nullable {
		return nil, fmt.Errorf("cannot append nullable %s to a column of type %s", src, b.dt)
	}
	if f.Values.DataType().ID() == arrow.NULL {
		if !b.nullable {
			return nil, fmt.Errorf("cannot append NULL to a column of type %s", b.dt)
		}
		return func(int) { _ = b.AppendNull() }, nil
	}

	cp, err := copier(b.values, f.Values)
	if err != nil {
		return nil, err
	}

	switch {
	case !b.nullable && f.ConstData:
		return func(int) { cp(0); b.length++ }, nil
	case !b.nullable:
		return func(row int) { cp(row); b.length++ }, nil
	case f.Nulls == nil && f.ConstData:
		return func(int) { cp(0); b.appendValid() }, nil
	case f.Nulls == nil:
		return func(row int) { cp(row); b.appendValid() }, nil
	case f.ConstNull && f.Nulls[0]:
		return func(int) { _ = b.AppendNull() }, nil
	case f.ConstData:
		nulls := f.Nulls
		return func(row int) {
			if !f.ConstNull && nulls[row] {
				_ = b.AppendNull()
				return
			}
			cp(0)
			b.appendValid()
		}, nil
	default:
		nulls := f.Nulls
		return func(row int) {
			if nulls[row] {
				_ = b.AppendNull()
				return
			}
			cp(row)
			b.appendValid()
		}, nil
	}
}

func (b *Builder) appendValid() {
	b.nullMap = append(b.nullMap, false)
	b.length++
}

// Finish returns the built column and resets the builder
func (b *Builder) Finish() Column {
	length := b.length
	b.length = 0

	if b.values == nil {
		return NewNullConst(arrow.Null, length, b.mem)
	}

	values := NewVector(b.values.NewArray())
	if !b.nullable {
		return values
	}
	nullMap := b.nullMap
	b.nullMap = nil
	return &Nullable{nested: values, nullMap: nullMap}
}

// Release frees the underlying Arrow builder
func (b *Builder) Release() {
	if b.values != nil {
		b.values.Release()
	}
}

type valueArray[T any] interface {
	arrow.Array
	Value(int) T
}

type valueBuilder[T any] interface {
	array.Builder
	Append(T)
}

func typedCopier[T any, B valueBuilder[T], A valueArray[T]](dst array.Builder, src A) (func(int), error) {
	d, ok := dst.(B)
	if !ok {
		return nil, fmt.Errorf("builder %s does not accept %s values", dst.Type(), src.DataType())
	}
	if src.NullN() == 0 {
		return func(i int) { d.Append(src.Value(i)) }, nil
	}
	return func(i int) {
		if src.IsNull(i) {
			d.AppendNull()
			return
		}
		d.Append(src.Value(i))
	}, nil
}

// copier returns a function appending src[i] to dst. dst and src must share
// the same Arrow type.
func copier(dst array.Builder, src arrow.Array) (func(int), error) {
	switch s := src.(type) {
	case *array.Null:
		return func(int) { dst.AppendNull() }, nil
	case *array.Boolean:
		return typedCopier[bool, *array.BooleanBuilder](dst, s)
	case *array.Int8:
		return typedCopier[int8, *array.Int8Builder](dst, s)
	case *array.Int16:
		return typedCopier[int16, *array.Int16Builder](dst, s)
	case *array.Int32:
		return typedCopier[int32, *array.Int32Builder](dst, s)
	case *array.Int64:
		return typedCopier[int64, *array.Int64Builder](dst, s)
	case *array.Uint8:
		return typedCopier[uint8, *array.Uint8Builder](dst, s)
	case *array.Uint16:
		return typedCopier[uint16, *array.Uint16Builder](dst, s)
	case *array.Uint32:
		return typedCopier[uint32, *array.Uint32Builder](dst, s)
	case *array.Uint64:
		return typedCopier[uint64, *array.Uint64Builder](dst, s)
	case *array.Float32:
		return typedCopier[float32, *array.Float32Builder](dst, s)
	case *array.Float64:
		return typedCopier[float64, *array.Float64Builder](dst, s)
	case *array.String:
		return typedCopier[string, *array.StringBuilder](dst, s)
	case *array.List:
		d, ok := dst.(*array.ListBuilder)
		if !ok {
			return nil, fmt.Errorf("builder %s does not accept %s values", dst.Type(), src.DataType())
		}
		elem, err := copier(d.ValueBuilder(), s.ListValues())
		if err != nil {
			return nil, err
		}
		return func(i int) {
			if s.IsNull(i) {
				d.AppendNull()
				return
			}
			start, end := s.ValueOffsets(i)
			d.Append(true)
			for j := start; j < end; j++ {
				elem(int(j))
			}
		}, nil
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", src.DataType())
	}
}

// appendValue appends one Go value to an Arrow builder
func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	ok := true
	switch bb := b.(type) {
	case *array.NullBuilder:
		ok = false
	case *array.BooleanBuilder:
		var x bool
		if x, ok = v.(bool); ok {
			bb.Append(x)
		}
	case *array.Int8Builder:
		var x int8
		if x, ok = v.(int8); ok {
			bb.Append(x)
		}
	case *array.Int16Builder:
		var x int16
		if x, ok = v.(int16); ok {
			bb.Append(x)
		}
	case *array.Int32Builder:
		var x int32
		if x, ok = v.(int32); ok {
			bb.Append(x)
		}
	case *array.Int64Builder:
		var x int64
		if x, ok = v.(int64); ok {
			bb.Append(x)
		}
	case *array.Uint8Builder:
		var x uint8
		if x, ok = v.(uint8); ok {
			bb.Append(x)
		}
	case *array.Uint16Builder:
		var x uint16
		if x, ok = v.(uint16); ok {
			bb.Append(x)
		}
	case *array.Uint32Builder:
		var x uint32
		if x, ok = v.(uint32); ok {
			bb.Append(x)
		}
	case *array.Uint64Builder:
		var x uint64
		if x, ok = v.(uint64); ok {
			bb.Append(x)
		}
	case *array.Float32Builder:
		var x float32
		if x, ok = v.(float32); ok {
			bb.Append(x)
		}
	case *array.Float64Builder:
		var x float64
		if x, ok = v.(float64); ok {
			bb.Append(x)
		}
	case *array.StringBuilder:
		var x string
		if x, ok = v.(string); ok {
			bb.Append(x)
		}
	case *array.ListBuilder:
		var elems []any
		if elems, ok = v.([]any); ok {
			bb.Append(true)
			for _, e := range elems {
				if err := appendValue(bb.ValueBuilder(), e); err != nil {
					return err
				}
			}
		}
	default:
		ok = false
	}

	if !ok {
		return fmt.Errorf("cannot append %T value to %s builder", v, b.Type())
	}
	return nil
}
