package expr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/common"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/functions"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// Schema describes the input columns a program is compiled against
type Schema struct {
	Names []string
	Types []types.DataType
}

// SchemaOf returns the schema of b
func SchemaOf(b *batch.Batch) Schema {
	return Schema{Names: b.Names(), Types: b.Schema()}
}

// PositionOf returns the position of the named column
func (s Schema) PositionOf(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for i, n := range s.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Width returns the number of columns
func (s Schema) Width() int {
	return len(s.Names)
}

// slot is a column appended to the batch when a program runs. Literal
// slots are filled with a constant column before the first step.
type slot struct {
	dataType types.DataType
	literal  bool
	value    interface{}
}

// step is one function call of a program
type step struct {
	fn         functions.Function
	args       []int
	result     int
	resultType types.DataType
}

// Compiler turns expressions into programs, resolving functions and types
// once so the program can run over many batches
type Compiler struct {
	registry *functions.Registry
	logger   *slog.Logger
	verbose  bool
}

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithLogger sets the logger used by the compiler and its programs
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVerbose enables a debug record per executed step
func WithVerbose(verbose bool) CompilerOption {
	return func(c *Compiler) {
		c.verbose = verbose
	}
}

// NewCompiler creates a compiler resolving function names in registry. A
// nil registry uses the built-in functions.
func NewCompiler(registry *functions.Registry, opts ...CompilerOption) *Compiler {
	if registry == nil {
		registry = functions.DefaultRegistry()
	}
	c := &Compiler{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the function registry used by the compiler
func (c *Compiler) Registry() *functions.Registry {
	return c.registry
}

// Compile resolves e against schema into a program
func (c *Compiler) Compile(e Expr, schema Schema) (*Program, error) {
	if len(schema.Types) != len(schema.Names) {
		return nil, errors.NewInternalError("compile",
			errors.AssertionFailedf("schema has %d names and %d types", len(schema.Names), len(schema.Types)))
	}

	p := &Program{
		expr:    e.String(),
		schema:  schema,
		logger:  c.logger,
		verbose: c.verbose,
	}
	output, outputType, err := c.compile(p, e)
	if err != nil {
		return nil, err
	}
	p.output = output
	p.outputType = outputType

	c.logger.Debug("compiled expression",
		slog.String("expr", p.expr),
		slog.String("type", outputType.Name()),
		slog.Int("steps", len(p.steps)))
	return p, nil
}

func (c *Compiler) compile(p *Program, e Expr) (int, types.DataType, error) {
	switch ex := e.(type) {
	case *ColumnExpr:
		if err := validation.ValidateColumns(p.schema, "compile", ex.name); err != nil {
			return 0, nil, err
		}
		pos, _ := p.schema.PositionOf(ex.name)
		t := p.schema.Types[pos]
		if t == nil {
			return 0, nil, errors.NewIllegalTypeError("compile", fmt.Sprintf("column %s has no declared type", ex.name))
		}
		return pos, t, nil

	case *LiteralExpr:
		return c.compileLiteral(p, ex)

	case *FunctionExpr:
		fn, err := c.registry.Get(ex.name)
		if err != nil {
			return 0, nil, err
		}
		return c.compileCall(p, fn, ex.args)

	case *CaseExpr:
		return c.compile(p, ex.Lower())

	case *CastExpr:
		return c.compileCall(p, functions.NewCast(ex.to), []Expr{ex.operand})

	case *InvalidExpr:
		return 0, nil, errors.NewIllegalTypeError("compile", "invalid expression: "+ex.message)

	default:
		return 0, nil, errors.NewIllegalTypeError("compile", fmt.Sprintf("unsupported expression type: %T", e))
	}
}

func (c *Compiler) compileCall(p *Program, fn functions.Function, args []Expr) (int, types.DataType, error) {
	positions := make([]int, len(args))
	argTypes := make([]types.DataType, len(args))
	for i, arg := range args {
		pos, t, err := c.compile(p, arg)
		if err != nil {
			return 0, nil, err
		}
		positions[i] = pos
		argTypes[i] = t
	}

	resultType, err := fn.ReturnType(argTypes)
	if err != nil {
		return 0, nil, err
	}
	result := p.addSlot(slot{dataType: resultType})
	p.steps = append(p.steps, step{
		fn:         fn,
		args:       positions,
		result:     result,
		resultType: resultType,
	})
	return result, resultType, nil
}

// compileLiteral stores the literal as its natural type and converts it
// when a different type was declared
func (c *Compiler) compileLiteral(p *Program, lit *LiteralExpr) (int, types.DataType, error) {
	value, natural, err := common.NormalizeLiteral(lit.value)
	if err != nil {
		return 0, nil, errors.NewIllegalTypeError("compile", err.Error())
	}

	declared := lit.dataType
	if declared == nil {
		declared = natural
	}

	if value == nil {
		if !types.IsNull(declared) && !types.IsNullable(declared) {
			return 0, nil, errors.NewIllegalTypeError("compile",
				fmt.Sprintf("NULL literal cannot have non-Nullable type %s", declared.Name()))
		}
		return p.addSlot(slot{dataType: declared, literal: true}), declared, nil
	}

	pos := p.addSlot(slot{dataType: natural, literal: true, value: value})
	if types.Equal(natural, declared) {
		return pos, natural, nil
	}

	result := p.addSlot(slot{dataType: declared})
	p.steps = append(p.steps, step{
		fn:         functions.NewCast(declared),
		args:       []int{pos},
		result:     result,
		resultType: declared,
	})
	return result, declared, nil
}

// Program is a compiled expression. It holds no per-run state and may run
// concurrently over different batches.
type Program struct {
	expr       string
	schema     Schema
	slots      []slot
	steps      []step
	output     int
	outputType types.DataType
	logger     *slog.Logger
	verbose    bool
}

func (p *Program) addSlot(s slot) int {
	p.slots = append(p.slots, s)
	return p.schema.Width() + len(p.slots) - 1
}

// OutputType returns the type of the program result
func (p *Program) OutputType() types.DataType {
	return p.outputType
}

// Schema returns the input schema the program was compiled against
func (p *Program) Schema() Schema {
	return p.schema
}

// Functions returns the names of the functions called, in execution order
func (p *Program) Functions() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.fn.Name()
	}
	return names
}

func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString(p.expr)
	for _, s := range p.steps {
		args := make([]string, len(s.args))
		for i, a := range s.args {
			args[i] = fmt.Sprintf("$%d", a)
		}
		fmt.Fprintf(&sb, "\n  $%d = %s :: %s", s.result, common.FormatFunction(s.fn.Name(), args...), s.resultType.Name())
	}
	return sb.String()
}

// validate checks that b has the columns the program was compiled against
func (p *Program) validate(b *batch.Batch) error {
	if b.Width() != p.schema.Width() {
		return errors.NewIllegalTypeError("program",
			fmt.Sprintf("batch has %d columns, program expects %d", b.Width(), p.schema.Width()))
	}
	for i, name := range p.schema.Names {
		e, err := b.Entry(i)
		if err != nil {
			return err
		}
		if e.Name != name {
			return errors.NewColumnNotFoundError("program", name)
		}
		if p.schema.Types[i] != nil && !types.Equal(e.Type, p.schema.Types[i]) {
			return errors.NewIllegalTypeError("program",
				fmt.Sprintf("column %s has type %s, program expects %s", name, e.Type, p.schema.Types[i]))
		}
	}
	return nil
}

// Run appends the program's slots to b, executes every step and returns
// the position of the result column. Constant columns are allocated from
// the context allocator.
func (p *Program) Run(ctx context.Context, b *batch.Batch) (int, error) {
	if err := p.validate(b); err != nil {
		return 0, err
	}

	mem := exec.GetAllocator(ctx)
	for _, s := range p.slots {
		entry := batch.Entry{Type: s.dataType}
		if s.literal {
			col, err := series.ConstFromValue(s.value, s.dataType, b.Rows(), mem)
			if err != nil {
				return 0, errors.NewInternalError("program", err)
			}
			entry.Column = col
		}
		if _, err := b.Insert(entry); err != nil {
			if entry.Column != nil {
				entry.Column.Release()
			}
			return 0, err
		}
	}

	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.fn.Execute(ctx, b, s.args, s.result); err != nil {
			return 0, err
		}
		if p.verbose {
			p.logger.Debug("executed step",
				slog.String("function", s.fn.Name()),
				slog.Int("result", s.result),
				slog.Int("rows", b.Rows()))
		}
	}
	return p.output, nil
}

// Evaluate runs the program over a scratch copy of b and returns the result
// column. b is left unchanged; the caller owns the returned column.
func (p *Program) Evaluate(ctx context.Context, b *batch.Batch) (series.Column, error) {
	scratch := b.Clone()
	defer scratch.Release()

	pos, err := p.Run(ctx, scratch)
	if err != nil {
		return nil, err
	}
	return scratch.TakeColumn(pos)
}
