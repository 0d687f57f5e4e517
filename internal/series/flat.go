package series

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Flat is the storage view of a column: the Arrow array holding its values
// and where to look for row i. It is computed once per column so that
// row loops never inspect the column representation.
type Flat struct {
	Values arrow.Array
	// Nulls is nil when no row can be null
	Nulls []bool
	// ConstData means every row reads Values at index 0
	ConstData bool
	// ConstNull means every row reads Nulls at index 0
	ConstNull bool
}

// Flatten computes the storage view of c
func Flatten(c Column) Flat {
	switch col := c.(type) {
	case *Vector:
		return Flat{Values: col.array}
	case *Const:
		inner := Flatten(col.data)
		return Flat{
			Values:    inner.Values,
			Nulls:     inner.Nulls,
			ConstData: true,
			ConstNull: inner.Nulls != nil,
		}
	case *Nullable:
		inner := Flatten(col.nested)
		return Flat{
			Values:    inner.Values,
			Nulls:     col.nullMap,
			ConstData: inner.ConstData,
		}
	default:
		panic("series: unknown column representation")
	}
}

// Index returns the position in Values holding row
func (f Flat) Index(row int) int {
	if f.ConstData {
		return 0
	}
	return row
}

// IsNull reports whether row is null
func (f Flat) IsNull(row int) bool {
	switch {
	case f.Nulls == nil:
		return false
	case f.ConstNull:
		return f.Nulls[0]
	default:
		return f.Nulls[row]
	}
}
