package functions

import (
	"context"

	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// CaseWithExpressionName is the name of the operand CASE function
const CaseWithExpressionName = "caseWithExpression"

// CaseWithExpression evaluates
//
//	caseWithExpression(x, when1, then1, ..., whenN, thenN, else)
//
// which is CASE x WHEN when1 THEN then1 ... ELSE else END. It is rewritten
// as transform(x, array(when...), array(then...), else) and owns no row
// logic of its own.
type CaseWithExpression struct {
	array     Function
	transform Function
}

// NewCaseWithExpression creates the function on top of the given array and
// transform implementations
func NewCaseWithExpression(array, transform Function) *CaseWithExpression {
	return &CaseWithExpression{array: array, transform: transform}
}

// Name returns the function name
func (f *CaseWithExpression) Name() string { return CaseWithExpressionName }

// ReturnType resolves the type the rewritten transform call produces
func (f *CaseWithExpression) ReturnType(args []types.DataType) (types.DataType, error) {
	if err := validation.ValidateArity(CaseWithExpressionName, len(args), validation.EvenAtLeast(4)); err != nil {
		return nil, err
	}

	whens, thens := splitCases(args)
	whenArray, err := f.array.ReturnType(whens)
	if err != nil {
		return nil, err
	}
	thenArray, err := f.array.ReturnType(thens)
	if err != nil {
		return nil, err
	}
	return f.transform.ReturnType([]types.DataType{args[0], whenArray, thenArray, args[len(args)-1]})
}

// Execute builds the two arrays in a scratch copy of b and runs transform
// into the result slot
func (f *CaseWithExpression) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	if err := validation.ValidateArity(CaseWithExpressionName, len(args), validation.EvenAtLeast(4)); err != nil {
		return err
	}
	if _, err := prepare(f, b, args, result); err != nil {
		return err
	}

	argTypes, err := argumentTypes(b, args)
	if err != nil {
		return err
	}
	whenTypes, thenTypes := splitCases(argTypes)
	whenPositions, thenPositions := splitCases(args)

	scratch := b.Clone()
	defer scratch.Release()

	whenArray, err := f.array.ReturnType(whenTypes)
	if err != nil {
		return err
	}
	thenArray, err := f.array.ReturnType(thenTypes)
	if err != nil {
		return err
	}
	srcPos, err := scratch.Insert(batch.Entry{Type: whenArray})
	if err != nil {
		return err
	}
	dstPos, err := scratch.Insert(batch.Entry{Type: thenArray})
	if err != nil {
		return err
	}

	if err := f.array.Execute(ctx, scratch, whenPositions, srcPos); err != nil {
		return err
	}
	if err := f.array.Execute(ctx, scratch, thenPositions, dstPos); err != nil {
		return err
	}
	if err := f.transform.Execute(ctx, scratch, []int{args[0], srcPos, dstPos, args[len(args)-1]}, result); err != nil {
		return err
	}

	col, err := scratch.TakeColumn(result)
	if err != nil {
		return err
	}
	if err := b.SetColumn(result, col); err != nil {
		col.Release()
		return err
	}
	return nil
}

// splitCases splits the when/then pairs between the operand and else
func splitCases[T any](args []T) (whens, thens []T) {
	pairs := args[1 : len(args)-1]
	whens = make([]T, 0, len(pairs)/2)
	thens = make([]T, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		whens = append(whens, pairs[i])
		thens = append(thens, pairs[i+1])
	}
	return whens, thens
}
