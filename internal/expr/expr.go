// Package expr provides the expression tree evaluated over columnar batches
// and its compilation into a program of function calls
package expr

import (
	"github.com/paveg/vexpr/internal/common"
	"github.com/paveg/vexpr/internal/functions"
	"github.com/paveg/vexpr/internal/types"
)

// ExprType represents the type of expression
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprFunction
	ExprCase
	ExprCast
	ExprInvalid
)

// Expr represents an expression that can be evaluated over a batch
type Expr interface {
	Type() ExprType
	String() string
}

// ColumnExpr represents a column reference
type ColumnExpr struct {
	name string
}

func (c *ColumnExpr) Type() ExprType {
	return ExprColumn
}

func (c *ColumnExpr) String() string {
	return common.FormatFieldAccess("col", c.name)
}

func (c *ColumnExpr) Name() string {
	return c.name
}

// LiteralExpr represents a constant value. A nil dataType means the type is
// inferred from the Go value.
type LiteralExpr struct {
	value    interface{}
	dataType types.DataType
}

func (l *LiteralExpr) Type() ExprType {
	return ExprLiteral
}

func (l *LiteralExpr) String() string {
	return common.FormatFieldAccess("lit", l.value)
}

func (l *LiteralExpr) Value() interface{} {
	return l.value
}

// DataType returns the declared type of the literal, or nil when inferred
func (l *LiteralExpr) DataType() types.DataType {
	return l.dataType
}

// FunctionExpr represents a function call expression
type FunctionExpr struct {
	name string
	args []Expr
}

func (f *FunctionExpr) Type() ExprType {
	return ExprFunction
}

func (f *FunctionExpr) String() string {
	argStrs := make([]string, len(f.args))
	for i, arg := range f.args {
		argStrs[i] = arg.String()
	}
	return common.FormatFunction(f.name, argStrs...)
}

func (f *FunctionExpr) Name() string {
	return f.name
}

func (f *FunctionExpr) Args() []Expr {
	return f.args
}

// CaseWhen represents a condition and value pair in CASE expression. With
// an operand the condition is the value compared against it.
type CaseWhen struct {
	condition Expr
	value     Expr
}

func (w CaseWhen) Condition() Expr { return w.condition }
func (w CaseWhen) Value() Expr     { return w.value }

// CaseExpr represents a CASE expression with multiple WHEN clauses. Without
// an operand it is the searched form, CASE WHEN cond THEN value ... END.
type CaseExpr struct {
	operand   Expr
	whens     []CaseWhen
	elseValue Expr
}

func (c *CaseExpr) Type() ExprType {
	return ExprCase
}

func (c *CaseExpr) String() string {
	whens := make([]string, len(c.whens))
	for i, when := range c.whens {
		whens[i] = common.FormatWhen(when.condition.String(), when.value.String())
	}
	var operand, elseValue string
	if c.operand != nil {
		operand = c.operand.String()
	}
	if c.elseValue != nil {
		elseValue = c.elseValue.String()
	}
	return common.FormatCase(operand, whens, elseValue)
}

func (c *CaseExpr) Operand() Expr {
	return c.operand
}

func (c *CaseExpr) Whens() []CaseWhen {
	return c.whens
}

func (c *CaseExpr) ElseValue() Expr {
	return c.elseValue
}

// When adds a condition-value pair to the case expression
func (c *CaseExpr) When(condition, value Expr) *CaseExpr {
	newWhens := make([]CaseWhen, len(c.whens)+1)
	copy(newWhens, c.whens)
	newWhens[len(c.whens)] = CaseWhen{condition: condition, value: value}

	return &CaseExpr{
		operand:   c.operand,
		whens:     newWhens,
		elseValue: c.elseValue,
	}
}

// Else sets the default value for the case expression
func (c *CaseExpr) Else(value Expr) *CaseExpr {
	return &CaseExpr{
		operand:   c.operand,
		whens:     c.whens,
		elseValue: value,
	}
}

// Lower rewrites the CASE into the function call that evaluates it: the
// searched form becomes multiIf, the operand form caseWithExpression. A
// missing ELSE is NULL; a CASE without WHEN clauses is its ELSE value.
func (c *CaseExpr) Lower() Expr {
	elseValue := c.elseValue
	if elseValue == nil {
		elseValue = Null()
	}
	if len(c.whens) == 0 {
		return elseValue
	}

	name := functions.MultiIfName
	args := make([]Expr, 0, 2*len(c.whens)+2)
	if c.operand != nil {
		name = functions.CaseWithExpressionName
		args = append(args, c.operand)
	}
	for _, when := range c.whens {
		args = append(args, when.condition, when.value)
	}
	args = append(args, elseValue)
	return NewFunction(name, args...)
}

// CastExpr converts its operand to a target type
type CastExpr struct {
	operand Expr
	to      types.DataType
}

func (c *CastExpr) Type() ExprType {
	return ExprCast
}

func (c *CastExpr) String() string {
	return common.FormatCast(c.operand.String(), c.to.Name())
}

func (c *CastExpr) Operand() Expr {
	return c.operand
}

func (c *CastExpr) To() types.DataType {
	return c.to
}

// InvalidExpr represents an invalid expression with an error message
type InvalidExpr struct {
	message string
}

func (i *InvalidExpr) Type() ExprType {
	return ExprInvalid
}

func (i *InvalidExpr) String() string {
	return common.FormatFieldAccess("invalid", i.message)
}

func (i *InvalidExpr) Message() string {
	return i.message
}

// Constructor functions

// Col creates a column expression
func Col(name string) *ColumnExpr {
	return &ColumnExpr{name: name}
}

// Lit creates a literal expression typed from its Go value
func Lit(value interface{}) *LiteralExpr {
	return &LiteralExpr{value: value}
}

// TypedLit creates a literal of an explicit type, e.g. a UInt8 1 or a
// NULL of Nullable(String)
func TypedLit(value interface{}, dataType types.DataType) *LiteralExpr {
	return &LiteralExpr{value: value, dataType: dataType}
}

// Null creates the NULL literal
func Null() *LiteralExpr {
	return &LiteralExpr{dataType: types.Null}
}

// Invalid creates an invalid expression with an error message
func Invalid(message string) *InvalidExpr {
	return &InvalidExpr{message: message}
}

// NewFunction creates a function expression
func NewFunction(name string, args ...Expr) *FunctionExpr {
	return &FunctionExpr{name: name, args: args}
}

// If creates an IF function expression
func If(condition, thenValue, elseValue Expr) *FunctionExpr {
	return NewFunction(functions.IfName, condition, thenValue, elseValue)
}

// MultiIf creates a multiIf expression from cond/value pairs followed by
// the else value
func MultiIf(args ...Expr) *FunctionExpr {
	return NewFunction(functions.MultiIfName, args...)
}

// Case creates a new searched CASE expression
func Case() *CaseExpr {
	return &CaseExpr{whens: make([]CaseWhen, 0)}
}

// CaseOf creates a new CASE expression comparing operand with each WHEN value
func CaseOf(operand Expr) *CaseExpr {
	return &CaseExpr{operand: operand, whens: make([]CaseWhen, 0)}
}

// Cast creates a conversion of operand to the given type
func Cast(operand Expr, to types.DataType) *CastExpr {
	return &CastExpr{operand: operand, to: to}
}

// Array creates an array construction expression
func Array(elems ...Expr) *FunctionExpr {
	return NewFunction(functions.ArrayName, elems...)
}

// Transform creates a lookup of x in from, yielding the element of to at
// the same index. Without a default, unmatched rows keep x.
func Transform(x, from, to Expr, defaultValue ...Expr) *FunctionExpr {
	args := []Expr{x, from, to}
	args = append(args, defaultValue...)
	return NewFunction(functions.TransformName, args...)
}
