package common

import (
	"fmt"

	"github.com/paveg/vexpr/internal/types"
)

// TypeConverter provides literal value conversion utilities.
type TypeConverter struct{}

// NewTypeConverter creates a new TypeConverter instance.
func NewTypeConverter() *TypeConverter {
	return &TypeConverter{}
}

// NormalizeLiteral maps a Go literal to the value stored in a constant
// column and its semantic type. Platform sized integers become 64-bit; nil
// is the Null type.
func (tc *TypeConverter) NormalizeLiteral(value interface{}) (interface{}, types.DataType, error) {
	switch v := value.(type) {
	case nil:
		return nil, types.Null, nil
	case bool:
		return v, types.Bool, nil
	case int:
		return int64(v), types.Int64, nil
	case int8:
		return v, types.Int8, nil
	case int16:
		return v, types.Int16, nil
	case int32:
		return v, types.Int32, nil
	case int64:
		return v, types.Int64, nil
	case uint:
		return uint64(v), types.Uint64, nil
	case uint8:
		return v, types.Uint8, nil
	case uint16:
		return v, types.Uint16, nil
	case uint32:
		return v, types.Uint32, nil
	case uint64:
		return v, types.Uint64, nil
	case float32:
		return v, types.Float32, nil
	case float64:
		return v, types.Float64, nil
	case string:
		return v, types.String, nil
	default:
		return nil, nil, fmt.Errorf("unsupported literal type %s", tc.GetTypeName(value))
	}
}

// GetTypeName returns the type name of a value.
func (tc *TypeConverter) GetTypeName(value interface{}) string {
	switch value.(type) {
	case nil:
		return "nil"
	case int:
		return "int"
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint:
		return "uint"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case float32:
		return "float32"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// Default converter instance for convenience.
var defaultConverter = NewTypeConverter()

// Convenient functions using the default converter

// NormalizeLiteral converts a literal using the default converter.
func NormalizeLiteral(value interface{}) (interface{}, types.DataType, error) {
	return defaultConverter.NormalizeLiteral(value)
}

// GetTypeName returns the type name using the default converter.
func GetTypeName(value interface{}) string {
	return defaultConverter.GetTypeName(value)
}
