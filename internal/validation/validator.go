// Package validation provides argument validation for expression functions.
// Validators are reusable checks for argument counts, argument positions
// inside a batch and column existence.
package validation

import (
	"fmt"

	"github.com/paveg/vexpr/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ArityRule describes the accepted number of arguments
type ArityRule struct {
	Min  int
	Max  int // 0 means unbounded
	Odd  bool
	Even bool
}

// Exactly accepts exactly n arguments
func Exactly(n int) ArityRule { return ArityRule{Min: n, Max: n} }

// Between accepts lo to hi arguments inclusive
func Between(lo, hi int) ArityRule { return ArityRule{Min: lo, Max: hi} }

// OddAtLeast accepts an odd number of arguments not below n
func OddAtLeast(n int) ArityRule { return ArityRule{Min: n, Odd: true} }

// EvenAtLeast accepts an even number of arguments not below n
func EvenAtLeast(n int) ArityRule { return ArityRule{Min: n, Even: true} }

// Accepts reports whether n arguments satisfy the rule
func (r ArityRule) Accepts(n int) bool {
	switch {
	case n < r.Min:
		return false
	case r.Max > 0 && n > r.Max:
		return false
	case r.Odd && n%2 == 0:
		return false
	case r.Even && n%2 != 0:
		return false
	}
	return true
}

// String describes the rule for error messages
func (r ArityRule) String() string {
	switch {
	case r.Odd:
		return fmt.Sprintf("odd number >= %d", r.Min)
	case r.Even:
		return fmt.Sprintf("even number >= %d", r.Min)
	case r.Max == r.Min:
		return fmt.Sprintf("%d", r.Min)
	case r.Max > 0:
		return fmt.Sprintf("%d to %d", r.Min, r.Max)
	default:
		return fmt.Sprintf("at least %d", r.Min)
	}
}

// ArityValidator validates the number of arguments passed to a function
type ArityValidator struct {
	op   string
	got  int
	rule ArityRule
}

// NewArityValidator creates a validator for argument counts
func NewArityValidator(op string, got int, rule ArityRule) *ArityValidator {
	return &ArityValidator{op: op, got: got, rule: rule}
}

// Validate checks the argument count against the rule
func (v *ArityValidator) Validate() error {
	if !v.rule.Accepts(v.got) {
		return errors.NewArgumentCountError(v.op, v.got, v.rule.String())
	}
	return nil
}

// PositionValidator validates that argument positions address batch slots
type PositionValidator struct {
	op        string
	positions []int
	width     int
}

// NewPositionValidator creates a validator for argument positions
func NewPositionValidator(op string, width int, positions ...int) *PositionValidator {
	return &PositionValidator{op: op, positions: positions, width: width}
}

// Validate checks that every position is within [0, width)
func (v *PositionValidator) Validate() error {
	for _, pos := range v.positions {
		if pos < 0 || pos >= v.width {
			return errors.NewPositionError(v.op, pos, v.width)
		}
	}
	return nil
}

// ColumnProvider interface for types that resolve column names
type ColumnProvider interface {
	PositionOf(name string) (int, bool)
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	provider ColumnProvider
	columns  []string
	op       string
}

// NewColumnValidator creates a validator for column references
func NewColumnValidator(provider ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		provider: provider,
		columns:  columns,
		op:       op,
	}
}

// Validate checks if all columns exist
func (v *ColumnValidator) Validate() error {
	for _, column := range v.columns {
		if _, ok := v.provider.PositionOf(column); !ok {
			return errors.NewColumnNotFoundError(v.op, column)
		}
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateArity is a convenience function for argument count validation
func ValidateArity(op string, got int, rule ArityRule) error {
	return NewArityValidator(op, got, rule).Validate()
}

// ValidatePositions is a convenience function for position validation
func ValidatePositions(op string, width int, positions ...int) error {
	return NewPositionValidator(op, width, positions...).Validate()
}

// ValidateColumns is a convenience function for column validation
func ValidateColumns(provider ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(provider, op, columns...).Validate()
}
