// Package common provides shared utilities for expression string
// representations and literal value conversions
package common

import (
	"fmt"
	"strings"
)

// StringFormatter provides common string formatting utilities.
type StringFormatter struct{}

// NewStringFormatter creates a new StringFormatter instance.
func NewStringFormatter() *StringFormatter {
	return &StringFormatter{}
}

// FormatFunction formats a function-like string representation
// Pattern: functionName(arg1, arg2, ...)
func (sf *StringFormatter) FormatFunction(name string, args ...string) string {
	if len(args) == 0 {
		return fmt.Sprintf("%s()", name)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// FormatFieldAccess formats a field access string representation
// Pattern: fieldName(value).
func (sf *StringFormatter) FormatFieldAccess(field string, value interface{}) string {
	if value == nil {
		return fmt.Sprintf("%s(NULL)", field)
	}
	return fmt.Sprintf("%s(%v)", field, value)
}

// FormatCase formats a case expression string representation. An empty
// operand formats the searched form.
func (sf *StringFormatter) FormatCase(operand string, whens []string, elseValue string) string {
	var sb strings.Builder
	sb.WriteString("case")
	if operand != "" {
		sb.WriteString(" ")
		sb.WriteString(operand)
	}
	for _, when := range whens {
		sb.WriteString(" ")
		sb.WriteString(when)
	}
	if elseValue != "" {
		sb.WriteString(" else ")
		sb.WriteString(elseValue)
	}
	sb.WriteString(" end")
	return sb.String()
}

// FormatWhen formats a when clause for case expressions.
func (sf *StringFormatter) FormatWhen(condition, value string) string {
	return fmt.Sprintf("when %s then %s", condition, value)
}

// FormatCast formats a type conversion.
// Pattern: cast(expr as Type).
func (sf *StringFormatter) FormatCast(expression, typeName string) string {
	return fmt.Sprintf("cast(%s as %s)", expression, typeName)
}

// FormatAlias formats a column alias.
func (sf *StringFormatter) FormatAlias(expression, alias string) string {
	if alias == "" {
		return expression
	}
	return fmt.Sprintf("%s AS %s", expression, alias)
}

// Default formatter instance for convenience.
var defaultFormatter = NewStringFormatter()

// Convenient functions using the default formatter

// FormatFunction formats a function-like string representation using the default formatter.
func FormatFunction(name string, args ...string) string {
	return defaultFormatter.FormatFunction(name, args...)
}

// FormatFieldAccess formats a field access using the default formatter.
func FormatFieldAccess(field string, value interface{}) string {
	return defaultFormatter.FormatFieldAccess(field, value)
}

// FormatCase formats a case expression using the default formatter.
func FormatCase(operand string, whens []string, elseValue string) string {
	return defaultFormatter.FormatCase(operand, whens, elseValue)
}

// FormatWhen formats a when clause using the default formatter.
func FormatWhen(condition, value string) string {
	return defaultFormatter.FormatWhen(condition, value)
}

// FormatCast formats a type conversion using the default formatter.
func FormatCast(expression, typeName string) string {
	return defaultFormatter.FormatCast(expression, typeName)
}

// FormatAlias formats a column alias using the default formatter.
func FormatAlias(expression, alias string) string {
	return defaultFormatter.FormatAlias(expression, alias)
}
