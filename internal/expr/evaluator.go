package expr

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/functions"
	"github.com/paveg/vexpr/internal/series"
)

// Evaluator evaluates expressions against columnar batches
type Evaluator struct {
	mem      memory.Allocator
	compiler *Compiler
}

// NewEvaluator creates a new expression evaluator using the built-in
// functions
func NewEvaluator(mem memory.Allocator, opts ...CompilerOption) *Evaluator {
	return NewEvaluatorWithRegistry(mem, nil, opts...)
}

// NewEvaluatorWithRegistry creates an evaluator resolving functions in registry
func NewEvaluatorWithRegistry(mem memory.Allocator, registry *functions.Registry, opts ...CompilerOption) *Evaluator {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Evaluator{mem: mem, compiler: NewCompiler(registry, opts...)}
}

// Compiler returns the compiler used by the evaluator
func (e *Evaluator) Compiler() *Compiler {
	return e.compiler
}

// Context returns ctx carrying the evaluator's allocator
func (e *Evaluator) Context(ctx context.Context) context.Context {
	return cast.WithAllocator(ctx, e.mem)
}

// Evaluate compiles expr against the schema of b and evaluates it. The
// caller owns the returned column.
func (e *Evaluator) Evaluate(ctx context.Context, expr Expr, b *batch.Batch) (series.Column, error) {
	program, err := e.compiler.Compile(expr, SchemaOf(b))
	if err != nil {
		return nil, err
	}
	return program.Evaluate(e.Context(ctx), b)
}
