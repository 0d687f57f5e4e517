package types

import (
	"github.com/paveg/vexpr/internal/errors"
)

// Width levels used to pick the narrowest numeric supertype
const (
	maxIntegerBits      = 64
	maxFloat32IntBits   = 16
	maxFloat64IntBits   = 32
	float32Bits         = 32
	widerSignedStepBits = 2
)

// LeastCommonType returns the narrowest type every input can be represented
// as. Null inputs are skipped and make the result Nullable; Nullable inputs
// are unwrapped and make the result Nullable.
func LeastCommonType(ts []DataType) (DataType, error) {
	if len(ts) == 0 {
		return Null, nil
	}

	if allEqual(ts) {
		return ts[0], nil
	}

	haveNullable := false
	nonNull := make([]DataType, 0, len(ts))
	for _, t := range ts {
		switch t.Kind() {
		case KindNull:
			haveNullable = true
		case KindNullable:
			haveNullable = true
			nonNull = append(nonNull, RemoveNullable(t))
		default:
			nonNull = append(nonNull, t)
		}
	}

	if haveNullable {
		if len(nonNull) == 0 {
			return Null, nil
		}
		nested, err := LeastCommonType(nonNull)
		if err != nil {
			return nil, err
		}
		return MakeNullable(nested)
	}

	return leastCommonNotNullable(ts)
}

func leastCommonNotNullable(ts []DataType) (DataType, error) {
	arrays := 0
	strings := 0
	for _, t := range ts {
		switch t.Kind() {
		case KindArray:
			arrays++
		case KindString:
			strings++
		}
	}

	if arrays > 0 {
		if arrays != len(ts) {
			return nil, errors.NewNoCommonTypeError(typeNames(ts), "some of them are Array and some of them are not")
		}
		elems := make([]DataType, len(ts))
		for i, t := range ts {
			elems[i] = t.(*ArrayType).elem
		}
		elem, err := LeastCommonType(elems)
		if err != nil {
			return nil, err
		}
		return NewArray(elem), nil
	}

	if strings > 0 {
		if strings != len(ts) {
			return nil, errors.NewNoCommonTypeError(typeNames(ts), "some of them are String and some of them are not")
		}
		return String, nil
	}

	return leastCommonNumeric(ts)
}

// leastCommonNumeric unifies integer, floating point and Bool types. Bool
// counts as an 8-bit unsigned integer.
func leastCommonNumeric(ts []DataType) (DataType, error) {
	maxSigned, maxUnsigned, maxFloat := 0, 0, 0

	for _, t := range ts {
		bits := bitsOf(t)
		switch {
		case t.Kind() == KindBool || IsUnsigned(t):
			maxUnsigned = max(maxUnsigned, bits)
		case IsInteger(t):
			maxSigned = max(maxSigned, bits)
		case IsFloat(t):
			maxFloat = max(maxFloat, bits)
		default:
			return nil, errors.NewNoCommonTypeError(typeNames(ts), "")
		}
	}

	// Mixed signed and unsigned need a signed type wider than the unsigned one.
	minIntBits := max(maxSigned, maxUnsigned)
	if maxSigned > 0 && maxUnsigned >= maxSigned {
		minIntBits = maxUnsigned * widerSignedStepBits
	}

	if maxFloat > 0 {
		switch {
		case minIntBits <= maxFloat32IntBits && maxFloat <= float32Bits:
			return Float32, nil
		case minIntBits <= maxFloat64IntBits:
			return Float64, nil
		default:
			return nil, errors.NewNoCommonTypeError(typeNames(ts),
				"some of them are integers wider than 32 bits and some are floating point")
		}
	}

	if maxSigned > 0 {
		if minIntBits > maxIntegerBits {
			return nil, errors.NewNoCommonTypeError(typeNames(ts),
				"some of them are signed integers and some are unsigned integers, but there is no signed integer type wide enough")
		}
		return signedOfBits(minIntBits), nil
	}

	if allEqualKind(ts, KindBool) {
		return Bool, nil
	}
	return unsignedOfBits(maxUnsigned), nil
}

func signedOfBits(bits int) DataType {
	switch {
	case bits <= 8:
		return Int8
	case bits <= 16:
		return Int16
	case bits <= 32:
		return Int32
	default:
		return Int64
	}
}

func unsignedOfBits(bits int) DataType {
	switch {
	case bits <= 8:
		return Uint8
	case bits <= 16:
		return Uint16
	case bits <= 32:
		return Uint32
	default:
		return Uint64
	}
}

func allEqual(ts []DataType) bool {
	for _, t := range ts[1:] {
		if !Equal(ts[0], t) {
			return false
		}
	}
	return true
}

func allEqualKind(ts []DataType, k Kind) bool {
	for _, t := range ts {
		if t.Kind() != k {
			return false
		}
	}
	return true
}

func typeNames(ts []DataType) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return names
}
