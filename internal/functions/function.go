// Package functions implements scalar functions over columnar batches: the
// conditional family (if, multiIf, caseWithExpression) and the array and
// transform primitives the CASE rewrite is built from.
//
// Every function resolves its result type once from argument types and then
// evaluates whole batches, writing exactly one new column into the result
// slot. Functions hold no per-call state and may be shared across
// goroutines.
package functions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paveg/vexpr/internal/batch"
	"github.com/paveg/vexpr/internal/config"
	"github.com/paveg/vexpr/internal/errors"
	"github.com/paveg/vexpr/internal/series"
	"github.com/paveg/vexpr/internal/types"
	"github.com/paveg/vexpr/internal/validation"
)

// Function is a scalar function evaluated over a batch
type Function interface {
	// Name returns the registered function name
	Name() string
	// ReturnType resolves the result type from the argument types
	ReturnType(args []types.DataType) (types.DataType, error)
	// Execute evaluates the function over b, reading the columns at args
	// and writing the result column at result. Temporary columns are
	// allocated from the context allocator.
	Execute(ctx context.Context, b *batch.Batch, args []int, result int) error
}

// Registry maps function names and aliases to functions
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Function
	aliases map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		funcs:   make(map[string]Function),
		aliases: make(map[string]string),
	}
}

// Builtins creates a registry holding the built-in functions configured by cfg
func Builtins(cfg config.Config) *Registry {
	r := NewRegistry()

	arr := NewArray()
	transform := NewTransform(cfg.TransformHashThreshold)

	for _, f := range []Function{
		NewIf(),
		NewMultiIf(),
		NewCaseWithExpression(arr, transform),
		arr,
		transform,
	} {
		// names are distinct, registration cannot fail
		_ = r.Register(f)
	}

	_ = r.RegisterAlias("caseWithExpr", CaseWithExpressionName)
	_ = r.RegisterAlias("caseWithoutExpr", MultiIfName)
	_ = r.RegisterAlias("caseWithoutExpression", MultiIfName)
	return r
}

// DefaultRegistry creates a registry of built-ins using the global configuration
func DefaultRegistry() *Registry {
	return Builtins(config.GetGlobalConfig())
}

// Register adds f under its name
func (r *Registry) Register(f Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if _, exists := r.funcs[name]; exists {
		return errors.NewIllegalTypeError("registry", fmt.Sprintf("function %s is already registered", name))
	}
	if _, exists := r.aliases[name]; exists {
		return errors.NewIllegalTypeError("registry", fmt.Sprintf("name %s is already an alias", name))
	}
	r.funcs[name] = f
	return nil
}

// RegisterAlias makes alias resolve to the function registered as name
func (r *Registry) RegisterAlias(alias, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; !exists {
		return errors.NewUnknownFunctionError(name)
	}
	if _, exists := r.funcs[alias]; exists {
		return errors.NewIllegalTypeError("registry", fmt.Sprintf("alias %s shadows a function", alias))
	}
	r.aliases[alias] = name
	return nil
}

// Get returns the function registered under name or one of its aliases
func (r *Registry) Get(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[name]; ok {
		name = target
	}
	f, ok := r.funcs[name]
	if !ok {
		return nil, errors.NewUnknownFunctionError(name)
	}
	return f, nil
}

// Names returns the registered function names and aliases, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs)+len(r.aliases))
	for name := range r.funcs {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// argumentTypes returns the declared types of the argument slots
func argumentTypes(b *batch.Batch, args []int) ([]types.DataType, error) {
	ts := make([]types.DataType, len(args))
	for i, pos := range args {
		t, err := b.Type(pos)
		if err != nil {
			return nil, err
		}
		ts[i] = t
	}
	return ts, nil
}

// prepare validates argument positions and returns the result slot type.
// A result slot without a declared type gets the resolved return type.
func prepare(f Function, b *batch.Batch, args []int, result int) (types.DataType, error) {
	if err := validation.ValidatePositions(f.Name(), b.Width(), append([]int{result}, args...)...); err != nil {
		return nil, err
	}

	declared, err := b.Type(result)
	if err != nil {
		return nil, err
	}
	if declared != nil {
		return declared, nil
	}

	argTypes, err := argumentTypes(b, args)
	if err != nil {
		return nil, err
	}
	resolved, err := f.ReturnType(argTypes)
	if err != nil {
		return nil, err
	}
	if err := b.SetType(result, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// argument returns the column and declared type at pos
func argument(b *batch.Batch, pos int) (series.Column, types.DataType, error) {
	e, err := b.Entry(pos)
	if err != nil {
		return nil, nil, err
	}
	col, err := b.Column(pos)
	if err != nil {
		return nil, nil, err
	}
	return col, e.Type, nil
}
