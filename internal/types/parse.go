package types

import (
	"fmt"
	"strings"

	"github.com/paveg/vexpr/internal/errors"
)

// Parse converts a type name such as "Int64", "Nullable(String)" or
// "Array(Nullable(UInt8))" into a DataType.
func Parse(name string) (DataType, error) {
	name = strings.TrimSpace(name)

	if inner, ok := unwrapParens(name, "Nullable"); ok {
		nested, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return MakeNullable(nested)
	}

	if inner, ok := unwrapParens(name, "Array"); ok {
		elem, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	}

	if t, ok := primitivesByName[name]; ok {
		return t, nil
	}
	return nil, errors.NewIllegalTypeError("parseType", fmt.Sprintf("unknown type name %q", name))
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level declarations.
func MustParse(name string) DataType {
	t, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return t
}

func unwrapParens(name, wrapper string) (string, bool) {
	if !strings.HasPrefix(name, wrapper+"(") || !strings.HasSuffix(name, ")") {
		return "", false
	}
	return name[len(wrapper)+1 : len(name)-1], true
}
