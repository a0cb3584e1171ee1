package value

import (
	"encoding/binary"
	"math"

	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/schema"
)

/*
A Value is a lazy view on one field of a raw message. It holds the field
definition and the backing bytes of the message, and decodes on demand in
the type the format declares. Nothing is decoded until a terminal call
(Native, As, AsVector), and an array is only materialized when the caller
asks for the aggregate form.

Navigation (Field, FieldRef, Index) returns new Values rather than erroring
immediately; a failed step makes the Value sticky-bad and the terminal call
reports the first error. This keeps chained access over nested records
readable:

	v := view.Value("child_1").Field("child_1_2").Index(2).Field("byte_b")
	b, err := value.As[uint8](v)

Char scalars decode as byte; a char array decodes as a string terminated at
the first NUL, or the full array length when no NUL is present.
*/

////////////////////////////////////////////////////////////////////////////////

// Value is a view on a single field backed by raw message bytes. The zero
// Value is invalid; construct with New.
type Value struct {
	field      *schema.Field
	backing    []byte
	arrayIndex int // -1 unless a single array element is selected
	err        error
}

// New returns a view of field over the message bytes in backing. Offsets in
// field are relative to the start of backing.
func New(field *schema.Field, backing []byte) Value {
	return Value{field: field, backing: backing, arrayIndex: -1}
}

// Invalid returns a sticky-bad Value reporting err at the terminal call.
func Invalid(err error) Value {
	return Value{err: err, arrayIndex: -1}
}

// Err returns the navigation error, if any.
func (v Value) Err() error {
	return v.err
}

// Index selects a single element of an array field.
func (v Value) Index(i int) Value {
	if v.err != nil {
		return v
	}
	if v.field.ArrayLength < 0 {
		return Invalid(ulog.Accessf("cannot index non-array field %s", v.field.Name))
	}
	if i < 0 || i >= v.field.ArrayLength {
		return Invalid(ulog.Accessf("index %d out of bounds for field %s[%d]",
			i, v.field.Name, v.field.ArrayLength))
	}
	v.arrayIndex = i
	return v
}

// Field descends into a nested field by name.
func (v Value) Field(name string) Value {
	if v.err != nil {
		return v
	}
	nested, err := v.field.NestedFormat()
	if err != nil {
		return Invalid(err)
	}
	child, err := nested.Field(name)
	if err != nil {
		return Invalid(err)
	}
	return v.descend(child)
}

// FieldRef descends into a nested field using a field handle, typically
// obtained from the format via NestedField.
func (v Value) FieldRef(field *schema.Field) Value {
	if v.err != nil {
		return v
	}
	if _, err := v.field.NestedFormat(); err != nil {
		return Invalid(err)
	}
	return v.descend(field)
}

// descend re-bases the view on the nested message the current field (or the
// selected array element of it) occupies.
func (v Value) descend(child *schema.Field) Value {
	offset := v.field.Offset()
	if v.arrayIndex >= 0 {
		offset += v.arrayIndex * v.field.ElementSize()
	}
	if offset < 0 || offset > len(v.backing) {
		return Invalid(ulog.Accessf("field %s out of message bounds", v.field.Name))
	}
	return New(child, v.backing[offset:])
}

// Native decodes the value in its declared type. Scalars (and selected
// array elements) come back as the corresponding Go scalar, char arrays as
// string, other arrays as a slice of the element type.
func (v Value) Native() (any, error) {
	if v.err != nil {
		return nil, v.err
	}
	if v.arrayIndex >= 0 && v.field.ArrayLength < 0 {
		return nil, ulog.Accessf("cannot access array element of non-array field %s", v.field.Name)
	}
	if v.field.ArrayLength == -1 || v.arrayIndex >= 0 {
		idx := 0
		if v.arrayIndex >= 0 {
			idx = v.arrayIndex
		}
		return v.scalar(idx)
	}
	return v.aggregate()
}

func (v Value) scalar(arrayOffset int) (any, error) {
	size := v.field.ElementSize()
	offset := v.field.Offset() + arrayOffset*size
	if v.field.Offset() < 0 || offset+size > len(v.backing) {
		return nil, ulog.Accessf("message too short for field %s", v.field.Name)
	}
	b := v.backing[offset:]
	switch v.field.Type {
	case schema.INT8:
		return int8(b[0]), nil
	case schema.UINT8:
		return b[0], nil
	case schema.INT16:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case schema.UINT16:
		return binary.LittleEndian.Uint16(b), nil
	case schema.INT32:
		return int32(binary.LittleEndian.Uint32(b)), nil
	case schema.UINT32:
		return binary.LittleEndian.Uint32(b), nil
	case schema.INT64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case schema.UINT64:
		return binary.LittleEndian.Uint64(b), nil
	case schema.FLOAT32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
	case schema.FLOAT64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case schema.BOOL:
		return b[0] != 0, nil
	case schema.CHAR:
		return b[0], nil
	case schema.NESTED:
		return nil, ulog.Accessf("cannot decode nested field %s as a basic type", v.field.Name)
	}
	return nil, ulog.Accessf("unknown type of field %s", v.field.Name)
}

func (v Value) aggregate() (any, error) {
	n := v.field.ArrayLength
	switch v.field.Type {
	case schema.CHAR:
		offset := v.field.Offset()
		if offset < 0 || offset+n > len(v.backing) {
			return nil, ulog.Accessf("message too short for field %s", v.field.Name)
		}
		return cstring(v.backing[offset : offset+n]), nil
	case schema.INT8:
		return decodeSlice[int8](v, n)
	case schema.UINT8:
		return decodeSlice[uint8](v, n)
	case schema.INT16:
		return decodeSlice[int16](v, n)
	case schema.UINT16:
		return decodeSlice[uint16](v, n)
	case schema.INT32:
		return decodeSlice[int32](v, n)
	case schema.UINT32:
		return decodeSlice[uint32](v, n)
	case schema.INT64:
		return decodeSlice[int64](v, n)
	case schema.UINT64:
		return decodeSlice[uint64](v, n)
	case schema.FLOAT32:
		return decodeSlice[float32](v, n)
	case schema.FLOAT64:
		return decodeSlice[float64](v, n)
	case schema.BOOL:
		return decodeSlice[bool](v, n)
	case schema.NESTED:
		return nil, ulog.Accessf("cannot decode nested field %s as a basic type", v.field.Name)
	}
	return nil, ulog.Accessf("unknown type of field %s", v.field.Name)
}

func decodeSlice[T any](v Value, n int) ([]T, error) {
	out := make([]T, n)
	for i := 0; i < n; i++ {
		x, err := v.scalar(i)
		if err != nil {
			return nil, err
		}
		out[i] = x.(T)
	}
	return out, nil
}

// cstring returns the string up to the first NUL byte, or the whole slice
// if none is present.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
