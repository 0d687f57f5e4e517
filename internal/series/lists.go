package series

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// NewFixedLists creates a list column of rows lists where list i holds
// elems[i*width : (i+1)*width]. elems keeps its own reference.
func NewFixedLists(elems arrow.Array, width, rows int) *Vector {
	offsets := make([]int32, rows+1)
	for i := range offsets {
		offsets[i] = int32(i * width)
	}

	data := array.NewData(
		arrow.ListOf(elems.DataType()),
		rows,
		[]*memory.Buffer{nil, memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))},
		[]arrow.ArrayData{elems.Data()},
		0,
		0,
	)
	defer data.Release()

	return NewVector(array.MakeFromData(data))
}

// ListView gives row-wise access to a list column
type ListView struct {
	flat  Flat
	lists *array.List
}

// NewListView creates a view over a column of Array type
func NewListView(c Column) (*ListView, bool) {
	f := Flatten(c)
	lists, ok := f.Values.(*array.List)
	if !ok {
		return nil, false
	}
	return &ListView{flat: f, lists: lists}, true
}

// Bounds returns the element range of row in Elements
func (v *ListView) Bounds(row int) (start, end int) {
	i := v.flat.Index(row)
	if v.lists.IsNull(i) {
		return 0, 0
	}
	s, e := v.lists.ValueOffsets(i)
	return int(s), int(e)
}

// Elements returns the flat element array shared by all rows
func (v *ListView) Elements() arrow.Array {
	return v.lists.ListValues()
}

// Const reports whether every row reads the same list
func (v *ListView) Const() bool {
	return v.flat.ConstData
}
