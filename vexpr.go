// Package vexpr evaluates conditional expressions over Arrow-backed columnar
// batches. This package is the sole public API for the library.
//
// Expressions are built with the constructors below, compiled once against a
// batch schema and evaluated over whole batches:
//
//	engine, err := vexpr.NewEngine()
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//
//	e := vexpr.CaseOf(vexpr.Col("status")).
//		When(vexpr.Lit(1), vexpr.Lit("active")).
//		When(vexpr.Lit(2), vexpr.Lit("closed")).
//		Else(vexpr.Lit("unknown"))
//	col, err := engine.Evaluate(ctx, e, b)
package vexpr

import (
	"context"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/cast"
	"github.com/paveg/vexpr/internal/config"
	"github.com/paveg/vexpr/internal/expr"
	"github.com/paveg/vexpr/internal/functions"
	"github.com/paveg/vexpr/internal/monitoring"
	"github.com/paveg/vexpr/internal/parallel"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
)

type (
	// Expr is an expression evaluated over a batch.
	Expr = expr.Expr
	// Batch is a set of named, typed columns sharing one row count.
	Batch = batch.Batch
	// Entry is one column slot of a batch.
	Entry = batch.Entry
	// Column is a column of a batch.
	Column = series.Column
	// DataType is a semantic column type.
	DataType = types.DataType
	// Schema lists the column names and types an expression is compiled against.
	Schema = expr.Schema
	// Program is a compiled expression.
	Program = expr.Program
	// Config configures an Engine.
	Config = config.Config
)

// NewBatch creates a batch from entries; the row count is taken from the
// first column.
func NewBatch(entries ...Entry) (*Batch, error) {
	return batch.New(entries...)
}

// ParseType parses a type name such as "Nullable(Int64)" or "Array(String)".
func ParseType(name string) (DataType, error) {
	return types.Parse(name)
}

// Expression factory functions

// Col returns a column reference.
func Col(name string) *expr.ColumnExpr { return expr.Col(name) }

// Lit returns a literal typed from its Go value.
func Lit(value interface{}) *expr.LiteralExpr { return expr.Lit(value) }

// TypedLit returns a literal of an explicit type.
func TypedLit(value interface{}, dataType DataType) *expr.LiteralExpr {
	return expr.TypedLit(value, dataType)
}

// Null returns the NULL literal.
func Null() *expr.LiteralExpr { return expr.Null() }

// If returns if(cond, then, else).
func If(condition, thenValue, elseValue Expr) *expr.FunctionExpr {
	return expr.If(condition, thenValue, elseValue)
}

// MultiIf returns multiIf(c1, v1, ..., cN, vN, else).
func MultiIf(args ...Expr) *expr.FunctionExpr { return expr.MultiIf(args...) }

// Case starts a searched CASE expression.
func Case() *expr.CaseExpr { return expr.Case() }

// CaseOf starts a CASE expression comparing operand with each WHEN value.
func CaseOf(operand Expr) *expr.CaseExpr { return expr.CaseOf(operand) }

// Cast converts operand to the given type.
func Cast(operand Expr, to DataType) *expr.CastExpr { return expr.Cast(operand, to) }

// Array builds one array per row from its arguments.
func Array(elems ...Expr) *expr.FunctionExpr { return expr.Array(elems...) }

// Transform maps x through the from and to arrays.
func Transform(x, from, to Expr, defaultValue ...Expr) *expr.FunctionExpr {
	return expr.Transform(x, from, to, defaultValue...)
}

// Call returns a call of a registered function by name.
func Call(name string, args ...Expr) *expr.FunctionExpr { return expr.NewFunction(name, args...) }

// Engine compiles and evaluates expressions. It is safe for concurrent use.
type Engine struct {
	cfg      config.Config
	mem      memory.Allocator
	logger   *slog.Logger
	registry *functions.Registry
	compiler *expr.Compiler
	metrics  *monitoring.MetricsCollector
	pool     *parallel.WorkerPool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration. Without it the global
// configuration is used.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAllocator sets the allocator evaluation results are created with.
func WithAllocator(mem memory.Allocator) Option {
	return func(e *Engine) {
		if mem != nil {
			e.mem = mem
		}
	}
}

// WithRegistry replaces the built-in function registry.
func WithRegistry(registry *functions.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithMetrics records evaluations in collector instead of a collector
// created from the configuration.
func WithMetrics(collector *monitoring.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// NewEngine creates an engine. The configuration is validated after
// defaults are applied.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    config.GetGlobalConfig(),
		mem:    memory.NewGoAllocator(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cfg = e.cfg.WithDefaults()
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if e.registry == nil {
		e.registry = functions.Builtins(e.cfg)
	}
	if e.metrics == nil {
		e.metrics = monitoring.NewMetricsCollector(e.cfg.MetricsCollection)
	}
	e.compiler = expr.NewCompiler(e.registry,
		expr.WithLogger(e.logger),
		expr.WithVerbose(e.cfg.VerboseLogging))
	e.pool = parallel.NewWorkerPool(e.cfg.Workers())
	return e, nil
}

// Close stops the engine's worker pool.
func (e *Engine) Close() {
	e.pool.Close()
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Metrics returns the collector evaluations are recorded in.
func (e *Engine) Metrics() *monitoring.MetricsCollector {
	return e.metrics
}

// Functions returns the names of the registered functions and aliases.
func (e *Engine) Functions() []string {
	return e.registry.Names()
}

// Compile compiles x against schema.
func (e *Engine) Compile(x Expr, schema Schema) (*Program, error) {
	return e.compiler.Compile(x, schema)
}

// Evaluate compiles x against the schema of b and evaluates it. The caller
// owns the returned column.
func (e *Engine) Evaluate(ctx context.Context, x Expr, b *Batch) (Column, error) {
	program, err := e.Compile(x, expr.SchemaOf(b))
	if err != nil {
		e.logger.Error("compile failed", slog.String("expr", x.String()), slog.Any("error", err))
		return nil, err
	}
	return e.Run(ctx, program, b)
}

// Run evaluates a compiled program over b. The caller owns the returned
// column.
func (e *Engine) Run(ctx context.Context, program *Program, b *Batch) (Column, error) {
	ctx = cast.WithAllocator(ctx, e.mem)
	name := programName(program)

	var result Column
	start := time.Now()
	err := e.metrics.RecordOperation(name, b.Rows(), func() error {
		var err error
		result, err = program.Evaluate(ctx, b)
		return err
	})
	if err != nil {
		e.logger.Error("evaluation failed",
			slog.String("function", name),
			slog.Int("rows", b.Rows()),
			slog.Any("error", err))
		return nil, err
	}

	e.logger.Debug("evaluated batch",
		slog.String("function", name),
		slog.Int("rows", b.Rows()),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// EvaluateBatches compiles x once against the schema of the first batch and
// evaluates it over every batch. Batches are evaluated on the worker pool
// when their total row count reaches the parallel threshold. Results are in
// batch order; on error no results are returned.
func (e *Engine) EvaluateBatches(ctx context.Context, x Expr, batches []*Batch) ([]Column, error) {
	if len(batches) == 0 {
		return nil, nil
	}

	program, err := e.Compile(x, expr.SchemaOf(batches[0]))
	if err != nil {
		e.logger.Error("compile failed", slog.String("expr", x.String()), slog.Any("error", err))
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += b.Rows()
	}

	if len(batches) < 2 || total < e.cfg.ParallelThreshold {
		results := make([]Column, 0, len(batches))
		for _, b := range batches {
			col, err := e.Run(ctx, program, b)
			if err != nil {
				releaseAll(results)
				return nil, err
			}
			results = append(results, col)
		}
		return results, nil
	}

	e.logger.Debug("evaluating batches in parallel",
		slog.Int("batches", len(batches)),
		slog.Int("rows", total),
		slog.Int("workers", e.pool.Workers()))

	results, err := parallel.ProcessIndexedContext(ctx, e.pool, batches,
		func(ctx context.Context, _ int, b *Batch) (Column, error) {
			return e.Run(ctx, program, b)
		})
	if err != nil {
		releaseAll(results)
		return nil, err
	}
	return results, nil
}

// programName labels a program by its outermost function
func programName(p *Program) string {
	names := p.Functions()
	if len(names) == 0 {
		return "identity"
	}
	return names[len(names)-1]
}

func releaseAll(cols []Column) {
	for _, c := range cols {
		if c != nil {
			c.Release()
		}
	}
}
