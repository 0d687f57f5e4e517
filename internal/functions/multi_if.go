package functions

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/memory"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// Function names
const (
	IfName      = "if"
	MultiIfName = "multiIf"
)

// MultiIf evaluates multiIf(cond1, then1, cond2, then2, ..., else): for each
// row, the value of the first branch whose condition is true, or else.
// A NULL condition row counts as false.
type MultiIf struct{}

// NewMultiIf creates the multiIf function
func NewMultiIf() *MultiIf { return &MultiIf{} }

// Name returns the function name
func (f *MultiIf) Name() string { return MultiIfName }

// ReturnType resolves the least common type of all branches. The result is
// Nullable when any condition is Nullable or Null, and Null when every
// condition is Null.
func (f *MultiIf) ReturnType(args []types.DataType) (types.DataType, error) {
	if err := validation.ValidateArity(MultiIfName, len(args), validation.OddAtLeast(3)); err != nil {
		return nil, err
	}

	haveNullable, allNull, err := checkConditions(MultiIfName, conditionTypes(args))
	if err != nil {
		return nil, err
	}
	if allNull {
		return types.Null, nil
	}

	common, err := types.LeastCommonType(branchTypes(args))
	if err != nil {
		return nil, err
	}
	if haveNullable {
		return types.MakeNullable(common)
	}
	return common, nil
}

// Execute evaluates the branches over b
func (f *MultiIf) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	if err := validation.ValidateArity(MultiIfName, len(args), validation.OddAtLeast(3)); err != nil {
		return err
	}
	resultType, err := prepare(f, b, args, result)
	if err != nil {
		return err
	}
	return executeBranches(ctx, MultiIfName, b, args, result, resultType)
}

// If evaluates if(cond, then, else). A NULL condition selects else, so
// unlike multiIf a Nullable condition does not make the result Nullable.
type If struct{}

// NewIf creates the if function
func NewIf() *If { return &If{} }

// Name returns the function name
func (f *If) Name() string { return IfName }

// ReturnType resolves the least common type of then and else. An always
// NULL condition makes the result the else type.
func (f *If) ReturnType(args []types.DataType) (types.DataType, error) {
	if err := validation.ValidateArity(IfName, len(args), validation.Exactly(3)); err != nil {
		return nil, err
	}

	_, allNull, err := checkConditions(IfName, args[:1])
	if err != nil {
		return nil, err
	}
	if allNull {
		return args[2], nil
	}
	return types.LeastCommonType(args[1:])
}

// Execute evaluates the condition over b
func (f *If) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	if err := validation.ValidateArity(IfName, len(args), validation.Exactly(3)); err != nil {
		return err
	}
	resultType, err := prepare(f, b, args, result)
	if err != nil {
		return err
	}
	return executeBranches(ctx, IfName, b, args, result, resultType)
}

func conditionTypes(args []types.DataType) []types.DataType {
	conds := make([]types.DataType, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		conds = append(conds, args[i])
	}
	return conds
}

func branchTypes(args []types.DataType) []types.DataType {
	branches := make([]types.DataType, 0, len(args)/2+1)
	for i := 1; i < len(args)-1; i += 2 {
		branches = append(branches, args[i])
	}
	return append(branches, args[len(args)-1])
}

// checkConditions requires every condition to be Bool, Nullable(Bool) or Null
func checkConditions(op string, conds []types.DataType) (haveNullable, allNull bool, err error) {
	allNull = true
	for i, t := range conds {
		switch {
		case types.IsNull(t):
			haveNullable = true
			continue
		case types.IsNullable(t):
			haveNullable = true
		}
		allNull = false

		if !types.IsFlag(types.RemoveNullable(t)) {
			return false, false, errors.NewIllegalTypeError(op,
				fmt.Sprintf("illegal type %s of condition %d, must be Bool", t.Name(), i+1))
		}
	}
	return haveNullable, allNull, nil
}

// instruction is one live branch of a conditional evaluation. The read
// functions are chosen once when the plan is prepared.
type instruction struct {
	condition         series.Column
	source            series.Column
	alwaysTrue        bool
	conditionNullable bool
	sourceConst       bool

	selected  func(row int) bool
	appendRow func(row int)
}

// planInstructions walks cond/value pairs left to right. Dead branches
// (statically NULL or false conditions) are skipped without touching their
// values, and the list ends at the first statically true condition, which
// is at latest the else branch. Casts to resultType are tracked by scope.
func planInstructions(ctx context.Context, op string, b *batch.Batch, args []int,
	resultType types.DataType, scope *memory.Scope) ([]instruction, error) {
	instructions := make([]instruction, 0, len(args)/2+1)

	for i := 0; i < len(args); i += 2 {
		var in instruction
		sourcePos := i + 1

		if sourcePos == len(args) {
			// else behaves like a branch whose condition is always true
			sourcePos--
			in.alwaysTrue = true
		} else {
			cond, condType, err := argument(b, args[i])
			if err != nil {
				return nil, err
			}
			if types.IsNull(condType) || series.IsNullColumn(cond) {
				continue
			}
			if !types.IsFlag(types.RemoveNullable(condType)) {
				return nil, errors.NewIllegalTypeError(op,
					fmt.Sprintf("illegal type %s of condition %d, must be Bool", condType.Name(), i/2+1))
			}

			if cond.IsConst() {
				value, isNull, ok := series.ConstBool(cond)
				if !ok {
					return nil, errors.NewIllegalTypeError(op,
						fmt.Sprintf("constant condition %d is not a Bool column", i/2+1))
				}
				if isNull || !value {
					continue
				}
				in.alwaysTrue = true
			} else {
				in.condition = cond
				in.conditionNullable = cond.IsNullable()
			}
		}

		source, sourceType, err := argument(b, args[sourcePos])
		if err != nil {
			return nil, err
		}
		if !types.Equal(sourceType, resultType) {
			converted, err := cast.Column(ctx, source, sourceType, resultType)
			if err != nil {
				return nil, err
			}
			scope.Track(converted)
			source = converted
		}
		in.source = source
		in.sourceConst = source.IsConst()

		instructions = append(instructions, in)
		if in.alwaysTrue {
			break
		}
	}

	return instructions, nil
}

func alwaysSelected(int) bool { return true }

// executeBranches is the evaluation shared by if and multiIf: args are
// cond/value pairs followed by the else value.
func executeBranches(ctx context.Context, op string, b *batch.Batch, args []int, result int,
	resultType types.DataType) error {
	mem := exec.GetAllocator(ctx)
	rows := b.Rows()

	if types.IsNull(resultType) {
		return b.SetColumn(result, series.NewNullConst(arrow.Null, rows, mem))
	}

	scope := memory.NewScope(mem)
	defer scope.ReleaseAll()

	instructions, err := planInstructions(ctx, op, b, args, resultType, scope)
	if err != nil {
		return err
	}

	builder := series.NewBuilder(resultType, mem)
	defer builder.Release()
	builder.Reserve(rows)

	for i := range instructions {
		in := &instructions[i]
		if in.alwaysTrue {
			in.selected = alwaysSelected
		} else if in.selected, err = series.FlagReader(in.condition); err != nil {
			return errors.NewIllegalTypeError(op, err.Error())
		}
		if in.appendRow, err = builder.Appender(in.source); err != nil {
			return errors.NewInternalError(op, err)
		}
	}

	for row := 0; row < rows; row++ {
		matched := false
		for i := range instructions {
			if instructions[i].selected(row) {
				instructions[i].appendRow(row)
				matched = true
				break
			}
		}
		if !matched {
			return errors.AssertionFailedf("%s: no branch matched row %d", op, row)
		}
	}

	return b.SetColumn(result, builder.Finish())
}
