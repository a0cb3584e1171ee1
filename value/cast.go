package value

import (
	"github.com/wkalt/ulog"
)

/*
Cross-type coercion. As and AsVector decode the value in its declared type
first, then convert to the requested one:

  - strings convert only to strings
  - vector to same-element vector is identity, to a different element an
    element-wise conversion, to a scalar the first element (an empty vector
    fails)
  - scalar to vector wraps in a one-element slice
  - scalar to scalar uses Go's conversion semantics; bool converts through
    0/1

Char fields natively decode as byte, so converting a char to a wider
integer yields its code point.
*/

////////////////////////////////////////////////////////////////////////////////

// Numeric constrains the convertible scalar kinds.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int | ~uint | ~float32 | ~float64
}

// Primitive is the set of types As can produce.
type Primitive interface {
	Numeric | ~bool | ~string
}

// As converts the value to the requested scalar type. A natively
// vector-valued field yields its first element.
func As[T Primitive](v Value) (T, error) {
	var zero T
	native, err := v.Native()
	if err != nil {
		return zero, err
	}
	if s, ok := native.(string); ok {
		out, ok := any(s).(T)
		if !ok {
			return zero, ulog.Accessf("cannot convert string field to non-string type")
		}
		return out, nil
	}
	if _, isString := any(zero).(string); isString {
		return zero, ulog.Accessf("cannot convert non-string field to string")
	}
	if elem, isVector, err := firstElement(native); isVector {
		if err != nil {
			return zero, err
		}
		return convertScalar[T](elem)
	}
	return convertScalar[T](native)
}

// AsVector converts the value to a slice of the requested element type. A
// natively scalar field yields a one-element slice.
func AsVector[T Numeric](v Value) ([]T, error) {
	native, err := v.Native()
	if err != nil {
		return nil, err
	}
	if _, ok := native.(string); ok {
		return nil, ulog.Accessf("cannot convert string field to a numeric vector")
	}
	if out, ok := native.([]T); ok {
		return out, nil
	}
	if isVector(native) {
		return convertSlice[T](native)
	}
	x, err := convertScalar[T](native)
	if err != nil {
		return nil, err
	}
	return []T{x}, nil
}

func isVector(native any) bool {
	_, isVec, _ := firstElement(native)
	return isVec
}

// firstElement returns the first element of a native slice value. The
// second return is false when the value is not a slice.
func firstElement(native any) (any, bool, error) {
	switch xs := native.(type) {
	case []int8:
		return first(xs)
	case []uint8:
		return first(xs)
	case []int16:
		return first(xs)
	case []uint16:
		return first(xs)
	case []int32:
		return first(xs)
	case []uint32:
		return first(xs)
	case []int64:
		return first(xs)
	case []uint64:
		return first(xs)
	case []float32:
		return first(xs)
	case []float64:
		return first(xs)
	case []bool:
		return first(xs)
	}
	return nil, false, nil
}

func first[T any](xs []T) (any, bool, error) {
	if len(xs) == 0 {
		return nil, true, ulog.Accessf("cannot convert empty vector to a scalar")
	}
	return xs[0], true, nil
}

func convertScalar[T Primitive](x any) (T, error) {
	switch xv := x.(type) {
	case bool:
		n := uint8(0)
		if xv {
			n = 1
		}
		return fromNumber[T](n)
	case int8:
		return fromNumber[T](xv)
	case uint8:
		return fromNumber[T](xv)
	case int16:
		return fromNumber[T](xv)
	case uint16:
		return fromNumber[T](xv)
	case int32:
		return fromNumber[T](xv)
	case uint32:
		return fromNumber[T](xv)
	case int64:
		return fromNumber[T](xv)
	case uint64:
		return fromNumber[T](xv)
	case float32:
		return fromNumber[T](xv)
	case float64:
		return fromNumber[T](xv)
	}
	var zero T
	return zero, ulog.Accessf("cannot convert %T", x)
}

func fromNumber[T Primitive, F Numeric](f F) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(f)
	case *int16:
		*p = int16(f)
	case *int32:
		*p = int32(f)
	case *int64:
		*p = int64(f)
	case *uint8:
		*p = uint8(f)
	case *uint16:
		*p = uint16(f)
	case *uint32:
		*p = uint32(f)
	case *uint64:
		*p = uint64(f)
	case *int:
		*p = int(f)
	case *uint:
		*p = uint(f)
	case *float32:
		*p = float32(f)
	case *float64:
		*p = float64(f)
	case *bool:
		*p = f != 0
	default:
		return out, ulog.Accessf("cannot convert number to %T", out)
	}
	return out, nil
}

func convertSlice[T Numeric](native any) ([]T, error) {
	switch xs := native.(type) {
	case []int8:
		return sliceConv[T](xs)
	case []uint8:
		return sliceConv[T](xs)
	case []int16:
		return sliceConv[T](xs)
	case []uint16:
		return sliceConv[T](xs)
	case []int32:
		return sliceConv[T](xs)
	case []uint32:
		return sliceConv[T](xs)
	case []int64:
		return sliceConv[T](xs)
	case []uint64:
		return sliceConv[T](xs)
	case []float32:
		return sliceConv[T](xs)
	case []float64:
		return sliceConv[T](xs)
	case []bool:
		out := make([]T, len(xs))
		for i, b := range xs {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, ulog.Accessf("cannot convert %T to a numeric vector", native)
}

func sliceConv[T Numeric, F Numeric](xs []F) ([]T, error) {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = T(x)
	}
	return out, nil
}
