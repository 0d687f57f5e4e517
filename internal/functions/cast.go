package functions

import (
	"context"

	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// CastName is the name of the type conversion function
const CastName = "cast"

// Cast converts its single argument to a fixed target type. It is created
// per target by the expression compiler and is not registered by name.
type Cast struct {
	to types.DataType
}

// NewCast creates a conversion to the given type
func NewCast(to types.DataType) *Cast { return &Cast{to: to} }

func (f *Cast) Name() string { return CastName }

// To returns the target type
func (f *Cast) To() types.DataType { return f.to }

func (f *Cast) ReturnType(args []types.DataType) (types.DataType, error) {
	if err := validation.ValidateArity(CastName, len(args), validation.Exactly(1)); err != nil {
		return nil, err
	}
	return f.to, nil
}

func (f *Cast) Execute(ctx context.Context, b *batch.Batch, args []int, result int) error {
	if err := validation.ValidateArity(CastName, len(args), validation.Exactly(1)); err != nil {
		return err
	}
	resultType, err := prepare(f, b, args, result)
	if err != nil {
		return err
	}

	col, colType, err := argument(b, args[0])
	if err != nil {
		return err
	}
	out, err := cast.Column(ctx, col, colType, resultType)
	if err != nil {
		return err
	}
	if err := b.SetColumn(result, out); err != nil {
		out.Release()
		return err
	}
	return nil
}
