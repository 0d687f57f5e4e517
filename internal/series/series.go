// Package series provides the column representations used by expression
// evaluation. A column is either a regular Vector backed by an Arrow array, a
// Const broadcasting one stored value to every row, or a Nullable wrapping a
// nested column with a per-row null map.
package series

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is the per-row read contract shared by all column representations
type Column interface {
	// Len returns the logical number of rows
	Len() int
	// IsConst reports whether one stored value is broadcast to all rows
	IsConst() bool
	// IsNullable reports whether rows can be null
	IsNullable() bool
	Retain()
	Release()
	String() string
}

// Vector is a regular column storing one value per row
type Vector struct {
	array arrow.Array
}

// NewVector wraps arr. The Vector takes ownership of the caller's reference.
func NewVector(arr arrow.Array) *Vector {
	return &Vector{array: arr}
}

// Array returns the backing Arrow array
func (v *Vector) Array() arrow.Array { return v.array }

func (v *Vector) Len() int         { return v.array.Len() }
func (v *Vector) IsConst() bool    { return false }
func (v *Vector) IsNullable() bool { return false }
func (v *Vector) Retain()          { v.array.Retain() }
func (v *Vector) Release()         { v.array.Release() }

func (v *Vector) String() string {
	return fmt.Sprintf("Vector[%s] (len=%d)", v.array.DataType(), v.Len())
}

// Const broadcasts the single row of data to length rows
type Const struct {
	data   Column
	length int
}

// NewConst creates a constant column of length rows from a one-row column
func NewConst(data Column, length int) (*Const, error) {
	if data.Len() != 1 {
		return nil, fmt.Errorf("constant column data must have exactly 1 row, got %d", data.Len())
	}
	if data.IsConst() {
		return nil, fmt.Errorf("constant column data cannot itself be constant")
	}
	return &Const{data: data, length: length}, nil
}

// Data returns the one-row column holding the constant value
func (c *Const) Data() Column { return c.data }

// WithLength returns a constant column sharing c's value with a new length
func (c *Const) WithLength(length int) *Const {
	c.data.Retain()
	return &Const{data: c.data, length: length}
}

func (c *Const) Len() int         { return c.length }
func (c *Const) IsConst() bool    { return true }
func (c *Const) IsNullable() bool { return c.data.IsNullable() }
func (c *Const) Retain()          { c.data.Retain() }
func (c *Const) Release()         { c.data.Release() }

func (c *Const) String() string {
	return fmt.Sprintf("Const[%s] (len=%d)", c.data, c.length)
}

// Nullable pairs a nested column with a per-row null map. The value stored
// in the nested column for a null row is meaningless.
type Nullable struct {
	nested  Column
	nullMap []bool
}

// NewNullable wraps nested with nullMap, which must have one entry per row
func NewNullable(nested Column, nullMap []bool) (*Nullable, error) {
	if nested.IsNullable() {
		return nil, fmt.Errorf("nullable column cannot wrap another nullable column")
	}
	if len(nullMap) != nested.Len() {
		return nil, fmt.Errorf("null map has %d entries, nested column has %d rows", len(nullMap), nested.Len())
	}
	return &Nullable{nested: nested, nullMap: nullMap}, nil
}

// Nested returns the wrapped column
func (n *Nullable) Nested() Column { return n.nested }

// NullMap returns the per-row null flags
func (n *Nullable) NullMap() []bool { return n.nullMap }

// IsNull reports whether row i is null
func (n *Nullable) IsNull(i int) bool { return n.nullMap[i] }

func (n *Nullable) Len() int         { return len(n.nullMap) }
func (n *Nullable) IsConst() bool    { return false }
func (n *Nullable) IsNullable() bool { return true }
func (n *Nullable) Retain()          { n.nested.Retain() }
func (n *Nullable) Release()         { n.nested.Release() }

func (n *Nullable) String() string {
	return fmt.Sprintf("Nullable[%s] (len=%d)", n.nested, n.Len())
}

// FromArrow wraps arr as a column. When the array has nulls the result is a
// Nullable whose null map mirrors the array validity. The caller's
// reference is transferred to the returned column.
func FromArrow(arr arrow.Array) Column {
	if arr.NullN() == 0 || arr.DataType().ID() == arrow.NULL {
		return NewVector(arr)
	}
	nullMap := make([]bool, arr.Len())
	for i := range nullMap {
		nullMap[i] = arr.IsNull(i)
	}
	return &Nullable{nested: NewVector(arr), nullMap: nullMap}
}

// IsNullColumn reports whether c is the statically null column, a constant
// whose storage is the Arrow Null type.
func IsNullColumn(c Column) bool {
	cc, ok := c.(*Const)
	if !ok {
		return false
	}
	f := Flatten(cc)
	return f.Values.DataType().ID() == arrow.NULL
}

// ConstBool reads a constant flag column. ok is false when c is not a
// constant column of booleans or the statically null column.
func ConstBool(c Column) (value, isNull, ok bool) {
	if !c.IsConst() {
		return false, false, false
	}
	f := Flatten(c)
	if f.IsNull(0) {
		return false, true, true
	}
	b, isBool := f.Values.(*array.Boolean)
	if !isBool {
		return false, false, false
	}
	return b.Value(0), false, true
}

// NewNullConst creates a constant NULL column of length rows whose storage
// type is arrowType. Passing arrow.Null yields the statically null column.
func NewNullConst(arrowType arrow.DataType, length int, mem memory.Allocator) *Const {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	b := array.NewBuilder(mem, arrowType)
	defer b.Release()
	b.AppendNull()

	return &Const{
		data:   &Nullable{nested: NewVector(b.NewArray()), nullMap: []bool{true}},
		length: length,
	}
}

// Materialize expands a constant column into a regular one. Other columns
// are returned with an extra reference.
func Materialize(c Column, mem memory.Allocator) (Column, error) {
	cc, ok := c.(*Const)
	if !ok {
		c.Retain()
		return c, nil
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	f := Flatten(cc)
	b := array.NewBuilder(mem, f.Values.DataType())
	defer b.Release()
	b.Reserve(cc.length)

	cp, err := copier(b, f.Values)
	if err != nil {
		return nil, err
	}
	for i := 0; i < cc.length; i++ {
		cp(0)
	}

	values := NewVector(b.NewArray())
	if !cc.IsNullable() {
		return values, nil
	}
	nullMap := make([]bool, cc.length)
	if f.IsNull(0) {
		for i := range nullMap {
			nullMap[i] = true
		}
	}
	return &Nullable{nested: values, nullMap: nullMap}, nil
}
