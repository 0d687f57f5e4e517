// Package types provides the semantic type system used by expression
// evaluation: primitive types, Array and Nullable wrappers, type equality,
// least-common-type unification and the mapping to Arrow data types.
package types

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/paveg/vexpr/internal/errors"
)

// Kind identifies the family of a DataType
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindArray
	KindNullable
)

// DataType describes the domain of a column
type DataType interface {
	Kind() Kind
	Name() string
	String() string
}

type primitive struct {
	kind Kind
	name string
	bits int
}

func (p *primitive) Kind() Kind     { return p.kind }
func (p *primitive) Name() string   { return p.name }
func (p *primitive) String() string { return p.name }

// Primitive types
var (
	Null    DataType = &primitive{kind: KindNull, name: "Null"}
	Bool    DataType = &primitive{kind: KindBool, name: "Bool", bits: 8}
	Int8    DataType = &primitive{kind: KindInt8, name: "Int8", bits: 8}
	Int16   DataType = &primitive{kind: KindInt16, name: "Int16", bits: 16}
	Int32   DataType = &primitive{kind: KindInt32, name: "Int32", bits: 32}
	Int64   DataType = &primitive{kind: KindInt64, name: "Int64", bits: 64}
	Uint8   DataType = &primitive{kind: KindUint8, name: "UInt8", bits: 8}
	Uint16  DataType = &primitive{kind: KindUint16, name: "UInt16", bits: 16}
	Uint32  DataType = &primitive{kind: KindUint32, name: "UInt32", bits: 32}
	Uint64  DataType = &primitive{kind: KindUint64, name: "UInt64", bits: 64}
	Float32 DataType = &primitive{kind: KindFloat32, name: "Float32", bits: 32}
	Float64 DataType = &primitive{kind: KindFloat64, name: "Float64", bits: 64}
	String  DataType = &primitive{kind: KindString, name: "String"}
)

var primitivesByName = map[string]DataType{
	"Null":    Null,
	"Bool":    Bool,
	"Int8":    Int8,
	"Int16":   Int16,
	"Int32":   Int32,
	"Int64":   Int64,
	"UInt8":   Uint8,
	"UInt16":  Uint16,
	"UInt32":  Uint32,
	"UInt64":  Uint64,
	"Float32": Float32,
	"Float64": Float64,
	"String":  String,
}

// ArrayType is a variable-length list of Elem values
type ArrayType struct {
	elem DataType
}

// NewArray creates an Array(elem) type
func NewArray(elem DataType) *ArrayType {
	return &ArrayType{elem: elem}
}

func (a *ArrayType) Kind() Kind     { return KindArray }
func (a *ArrayType) Name() string   { return fmt.Sprintf("Array(%s)", a.elem.Name()) }
func (a *ArrayType) String() string { return a.Name() }
func (a *ArrayType) Elem() DataType { return a.elem }

// NullableType augments Nested with a per-row null indicator
type NullableType struct {
	nested DataType
}

func (n *NullableType) Kind() Kind       { return KindNullable }
func (n *NullableType) Name() string     { return fmt.Sprintf("Nullable(%s)", n.nested.Name()) }
func (n *NullableType) String() string   { return n.Name() }
func (n *NullableType) Nested() DataType { return n.nested }

// Equal reports whether a and b denote the same type
func Equal(a, b DataType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *ArrayType:
		return Equal(at.elem, b.(*ArrayType).elem)
	case *NullableType:
		return Equal(at.nested, b.(*NullableType).nested)
	default:
		return true
	}
}

// IsNull reports whether t is the Null type
func IsNull(t DataType) bool {
	return t != nil && t.Kind() == KindNull
}

// IsNullable reports whether t is a Nullable(...) type
func IsNullable(t DataType) bool {
	return t != nil && t.Kind() == KindNullable
}

// IsFlag reports whether t is the boolean flag type used by conditions
func IsFlag(t DataType) bool {
	return t != nil && t.Kind() == KindBool
}

// IsNumeric reports whether t is an integer or floating point type
func IsNumeric(t DataType) bool {
	return IsInteger(t) || IsFloat(t)
}

// IsInteger reports whether t is a signed or unsigned integer type
func IsInteger(t DataType) bool {
	if t == nil {
		return false
	}
	k := t.Kind()
	return k >= KindInt8 && k <= KindUint64
}

// IsUnsigned reports whether t is an unsigned integer type
func IsUnsigned(t DataType) bool {
	if t == nil {
		return false
	}
	k := t.Kind()
	return k >= KindUint8 && k <= KindUint64
}

// IsFloat reports whether t is a floating point type
func IsFloat(t DataType) bool {
	return t != nil && (t.Kind() == KindFloat32 || t.Kind() == KindFloat64)
}

// IsString reports whether t is the String type
func IsString(t DataType) bool {
	return t != nil && t.Kind() == KindString
}

// IsArray reports whether t is an Array(...) type
func IsArray(t DataType) bool {
	return t != nil && t.Kind() == KindArray
}

// RemoveNullable returns the nested type of a Nullable type, or t itself
func RemoveNullable(t DataType) DataType {
	if n, ok := t.(*NullableType); ok {
		return n.nested
	}
	return t
}

// MakeNullable wraps t in Nullable. Null and Nullable types are returned
// unchanged; Array cannot be inside Nullable.
func MakeNullable(t DataType) (DataType, error) {
	switch t.Kind() {
	case KindNull, KindNullable:
		return t, nil
	case KindArray:
		return nil, errors.NewIllegalTypeError("makeNullable",
			fmt.Sprintf("nested type %s cannot be inside Nullable type", t.Name()))
	default:
		return &NullableType{nested: t}, nil
	}
}

// MustNullable is MakeNullable for types known to be wrappable.
func MustNullable(t DataType) DataType {
	n, err := MakeNullable(t)
	if err != nil {
		panic(err)
	}
	return n
}

// ToArrow returns the Arrow storage type for t. Nullability is carried by the
// column representation, so Nullable(T) maps to the storage type of T.
func ToArrow(t DataType) arrow.DataType {
	switch t.Kind() {
	case KindNull:
		return arrow.Null
	case KindBool:
		return arrow.FixedWidthTypes.Boolean
	case KindInt8:
		return arrow.PrimitiveTypes.Int8
	case KindInt16:
		return arrow.PrimitiveTypes.Int16
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindUint8:
		return arrow.PrimitiveTypes.Uint8
	case KindUint16:
		return arrow.PrimitiveTypes.Uint16
	case KindUint32:
		return arrow.PrimitiveTypes.Uint32
	case KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case KindFloat32:
		return arrow.PrimitiveTypes.Float32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindString:
		return arrow.BinaryTypes.String
	case KindArray:
		return arrow.ListOf(ToArrow(t.(*ArrayType).elem))
	case KindNullable:
		return ToArrow(t.(*NullableType).nested)
	default:
		panic(fmt.Sprintf("unknown type kind: %d", t.Kind()))
	}
}

// FromArrow maps an Arrow data type to its semantic type. List elements are
// considered Nullable when elemNullable is set.
func FromArrow(dt arrow.DataType, elemNullable bool) (DataType, error) {
	switch dt.ID() {
	case arrow.NULL:
		return Null, nil
	case arrow.BOOL:
		return Bool, nil
	case arrow.INT8:
		return Int8, nil
	case arrow.INT16:
		return Int16, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.UINT8:
		return Uint8, nil
	case arrow.UINT16:
		return Uint16, nil
	case arrow.UINT32:
		return Uint32, nil
	case arrow.UINT64:
		return Uint64, nil
	case arrow.FLOAT32:
		return Float32, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return String, nil
	case arrow.LIST:
		elem, err := FromArrow(dt.(*arrow.ListType).Elem(), elemNullable)
		if err != nil {
			return nil, err
		}
		if elemNullable {
			if elem, err = MakeNullable(elem); err != nil {
				return nil, err
			}
		}
		return NewArray(elem), nil
	default:
		return nil, errors.NewIllegalTypeError("fromArrow", fmt.Sprintf("unsupported arrow type: %s", dt))
	}
}

func bitsOf(t DataType) int {
	if p, ok := t.(*primitive); ok {
		return p.bits
	}
	return 0
}
