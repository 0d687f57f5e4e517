package functions

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/memory"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// TransformName is the name of the lookup function
const TransformName = "transform"

// Transform maps values through a pair of parallel arrays:
// transform(x, from, to, default) returns to[k] for the first k with
// from[k] = x, and default otherwise. The three argument form uses x as
// the default. NULL x yields the default and NULL elements of from never
// match.
type Transform struct {
	hashThreshold int
}

// NewTransform creates the transform function. Constant match lists with
// at least hashThreshold elements are looked up through a hash index.
func NewTransform(hashThreshold int) *Transform {
	if hashThreshold <= 0 {
		hashThreshold = 1
	}
	return &Transform{hashThreshold: hashThreshold}
}

// Name returns the function name
func (f *Transform) Name() string { return TransformName }

// ReturnType is the least common type of the elements of to and the default
func (f *Transform) ReturnType(args []types.DataType) (types.DataType, error) {
	if err := validation.ValidateArity(TransformName, len(args), validation.Between(3, 4)); err != nil {
		return nil, err
	}

	from, ok := args[1].(*types.ArrayType)
	if !ok {
		return nil, errors.NewIllegalTypeError(TransformName,
			fmt.Sprintf("second argument must be an Array, got %s", args[1].Name()))
	}
	to, ok := args[2].(*types.ArrayType)
	if !ok {
		return nil, errors.NewIllegalTypeError(TransformName,
			fmt.Sprintf("third argument must be an Array, got %s", args[2].Name()))
	}
	if !comparable(args[0], from.Elem()) {
		return nil, errors.NewIllegalTypeError(TransformName,
			fmt.Sprintf("cannot match values of type %s against elements of %s", args[0].Name(), from.Name()))
	}

	def := args[0]
	if len(args) == 4 {
		def = args[3]
	}
	return types.LeastCommonType([]types.DataType{to.Elem(), def})
}

// comparable reports whether values of a and b can be tested for equality
func comparable(a, b types.DataType) bool {
	a, b = types.RemoveNullable(a), types.RemoveNullable(b)
	switch {
	case types.IsNull(a) || types.IsNull(b):
		return true
	case types.IsString(a) || types.IsString(b):
		return types.IsString(a) && types.IsString(b)
	default:
		return (types.IsNumeric(a) || types.IsFlag(a)) && (types.IsNumeric(b) || types.IsFlag(b))
	}
}

// Execute performs the lookup for every row of b
func (f *Transform) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	if err := validation.ValidateArity(TransformName, len(args), validation.Between(3, 4)); err != nil {
		return err
	}
	resultType, err := prepare(f, b, args, result)
	if err != nil {
		return err
	}

	mem := exec.GetAllocator(ctx)
	scope := memory.NewScope(mem)
	defer scope.ReleaseAll()

	x, xType, err := argument(b, args[0])
	if err != nil {
		return err
	}
	from, fromType, err := argument(b, args[1])
	if err != nil {
		return err
	}
	to, toType, err := argument(b, args[2])
	if err != nil {
		return err
	}
	def, defType := x, xType
	if len(args) == 4 {
		if def, defType, err = argument(b, args[3]); err != nil {
			return err
		}
	}

	fromArr, ok := fromType.(*types.ArrayType)
	if !ok {
		return errors.NewIllegalTypeError(TransformName, fmt.Sprintf("second argument must be an Array, got %s", fromType.Name()))
	}
	if !types.IsArray(toType) {
		return errors.NewIllegalTypeError(TransformName, fmt.Sprintf("third argument must be an Array, got %s", toType.Name()))
	}

	// Both sides of the comparison are converted to one key type
	matcher, err := newMatcher(ctx, scope, x, xType, from, fromArr)
	if err != nil {
		return err
	}

	// Results come from the elements of to or from default, both as resultType
	toConverted, err := cast.Column(ctx, to, toType, types.NewArray(resultType))
	if err != nil {
		return err
	}
	scope.Track(toConverted)
	defConverted, err := cast.Column(ctx, def, defType, resultType)
	if err != nil {
		return err
	}
	scope.Track(defConverted)

	toView, ok := series.NewListView(toConverted)
	if !ok {
		return errors.NewInternalError(TransformName, fmt.Errorf("third argument is not a list column"))
	}
	toElems := toView.Elements()
	toElems.Retain()
	toValues := series.FromArrow(toElems)
	scope.Track(toValues)

	builder := series.NewBuilder(resultType, mem)
	defer builder.Release()

	appendTo, err := builder.Appender(toValues)
	if err != nil {
		return errors.NewInternalError(TransformName, err)
	}
	appendDefault, err := builder.Appender(defConverted)
	if err != nil {
		return errors.NewInternalError(TransformName, err)
	}

	if matcher.fromView != nil && matcher.fromView.Const() && toView.Const() {
		start, end := matcher.fromView.Bounds(0)
		if end-start >= f.hashThreshold {
			matcher.index = newKeyIndex(matcher.fromView.Elements(), matcher.fromKeys, start, end)
		}
	}

	rows := b.Rows()
	builder.Reserve(rows)
	for row := 0; row < rows; row++ {
		k, start := matcher.match(row)
		if k < 0 {
			appendDefault(row)
			continue
		}
		toStart, toEnd := toView.Bounds(row)
		if k-start >= toEnd-toStart {
			appendDefault(row)
			continue
		}
		appendTo(toStart + k - start)
	}

	return b.SetColumn(result, builder.Finish())
}

// matcher finds, for a row, the first element of from equal to x
type matcher struct {
	x        series.Flat
	xKeys    keyFunc
	fromView *series.ListView
	fromKeys keyFunc
	index    *keyIndex
}

// newMatcher converts x and the elements of from to their least common
// type. When either side is of type Null nothing can match and the
// returned matcher reports no match for every row.
func newMatcher(ctx context.Context, scope *memory.Scope, x series.Column, xType types.DataType,
	from series.Column, fromType *types.ArrayType) (*matcher, error) {
	xBase := types.RemoveNullable(xType)
	fromElem := fromType.Elem()
	fromBase := types.RemoveNullable(fromElem)
	if types.IsNull(xBase) || types.IsNull(fromBase) {
		return &matcher{}, nil
	}

	keyType, err := types.LeastCommonType([]types.DataType{xBase, fromBase})
	if err != nil {
		return nil, err
	}

	xTarget := keyType
	if types.IsNullable(xType) {
		xTarget = types.MustNullable(keyType)
	}
	xConverted, err := cast.Column(ctx, x, xType, xTarget)
	if err != nil {
		return nil, err
	}
	scope.Track(xConverted)

	elemTarget := keyType
	if types.IsNullable(fromElem) {
		elemTarget = types.MustNullable(keyType)
	}
	fromConverted, err := cast.Column(ctx, from, fromType, types.NewArray(elemTarget))
	if err != nil {
		return nil, err
	}
	scope.Track(fromConverted)

	m := &matcher{x: series.Flatten(xConverted)}
	if m.xKeys, err = keysOf(m.x.Values); err != nil {
		return nil, errors.NewIllegalTypeError(TransformName, err.Error())
	}
	var ok bool
	if m.fromView, ok = series.NewListView(fromConverted); !ok {
		return nil, errors.NewInternalError(TransformName, fmt.Errorf("second argument is not a list column"))
	}
	if m.fromKeys, err = keysOf(m.fromView.Elements()); err != nil {
		return nil, errors.NewIllegalTypeError(TransformName, err.Error())
	}
	return m, nil
}

// match returns the position of the matching element of from and the
// start of the row's list, or -1 when nothing matches
func (m *matcher) match(row int) (pos, start int) {
	if m.fromView == nil || m.x.IsNull(row) {
		return -1, 0
	}

	k := m.xKeys(m.x.Index(row))
	start, end := m.fromView.Bounds(row)
	if m.index != nil {
		return m.index.lookup(k), start
	}

	elems := m.fromView.Elements()
	for j := start; j < end; j++ {
		if !elems.IsNull(j) && m.fromKeys(j) == k {
			return j, start
		}
	}
	return -1, start
}
