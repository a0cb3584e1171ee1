package schema

import (
	"strconv"
	"strings"

	"github.com/wkalt/ulog"
)

/*
This file holds the schema model for ULog format definitions. A
MessageFormat is a named, ordered list of fields. A field is either one of
the twelve basic scalar kinds, a fixed array of one, or a reference to
another format by name (a nested field, inlined into the parent layout).

Nested references are by name only at parse time, since the referenced
format may appear later in the file header. Once the header is complete,
Resolve walks every format, wires nested references through the registry of
known formats and assigns each field its byte offset. Fields are laid out
contiguously with no padding, so offsets are the running sum of field sizes.
*/

////////////////////////////////////////////////////////////////////////////////

// BasicType enumerates the scalar kinds a field can have. NESTED marks a
// reference to another MessageFormat.
type BasicType int

const (
	INT8 BasicType = iota + 1
	UINT8
	INT16
	UINT16
	INT32
	UINT32
	INT64
	UINT64
	FLOAT32
	FLOAT64
	BOOL
	CHAR
	NESTED
)

type typeAttributes struct {
	typ  BasicType
	size int
}

// nolint:gochecknoglobals
var basicTypes = map[string]typeAttributes{
	"int8_t":   {INT8, 1},
	"uint8_t":  {UINT8, 1},
	"int16_t":  {INT16, 2},
	"uint16_t": {UINT16, 2},
	"int32_t":  {INT32, 4},
	"uint32_t": {UINT32, 4},
	"int64_t":  {INT64, 8},
	"uint64_t": {UINT64, 8},
	"float":    {FLOAT32, 4},
	"double":   {FLOAT64, 8},
	"bool":     {BOOL, 1},
	"char":     {CHAR, 1},
}

// BasicTypeSize returns the fixed byte size of a named basic type, or false
// if the name is not a basic type.
func BasicTypeSize(name string) (int, bool) {
	attr, ok := basicTypes[name]
	if !ok {
		return 0, false
	}
	return attr.size, true
}

// Field is a named, typed element of a MessageFormat. ArrayLength is -1 for
// scalars and the fixed element count for arrays. An array of char is a
// fixed-length string.
//
// A field starts out unresolved: its offset is unknown and, for nested
// fields, the referenced format is not yet wired. Resolution assigns both.
type Field struct {
	Name        string
	TypeName    string
	Type        BasicType
	ArrayLength int

	offset int // byte offset within the message, -1 until resolved
	size   int // per-element size; for nested fields filled at resolution
	nested *MessageFormat
}

// NewField constructs a field from a type name, field name and array length
// (-1 for scalars). Unknown type names become unresolved nested references.
func NewField(typeName, name string, arrayLength int) *Field {
	f := &Field{
		Name:        name,
		TypeName:    typeName,
		ArrayLength: arrayLength,
		offset:      -1,
	}
	if attr, ok := basicTypes[typeName]; ok {
		f.Type = attr.typ
		f.size = attr.size
	} else {
		f.Type = NESTED
	}
	return f
}

// Encode returns the field's text form, "<type> <name>" or
// "<type>[N] <name>".
func (f *Field) Encode() string {
	if f.ArrayLength >= 0 {
		return f.TypeName + "[" + strconv.Itoa(f.ArrayLength) + "] " + f.Name
	}
	return f.TypeName + " " + f.Name
}

// Equal reports whether two fields have the same type, array length and
// name. Resolution state is not compared.
func (f *Field) Equal(other *Field) bool {
	return f.TypeName == other.TypeName && f.ArrayLength == other.ArrayLength &&
		f.Name == other.Name
}

// Offset returns the field's byte offset within the message, -1 if the
// field is unresolved.
func (f *Field) Offset() int {
	return f.offset
}

// ElementSize returns the byte size of a single element of the field. Zero
// for unresolved nested fields.
func (f *Field) ElementSize() int {
	return f.size
}

// SizeBytes returns the total byte size of the field, accounting for array
// length. It fails on unresolved nested fields.
func (f *Field) SizeBytes() (int, error) {
	if f.Type == NESTED && f.nested == nil {
		return 0, ulog.Parsef("unresolved type %s", f.TypeName)
	}
	if f.ArrayLength == -1 {
		return f.size, nil
	}
	return f.size * f.ArrayLength, nil
}

// Resolved reports whether the field has an assigned offset and, for nested
// fields, a wired child format.
func (f *Field) Resolved() bool {
	return f.offset >= 0 && (f.Type != NESTED || f.nested != nil)
}

// Resolve assigns the field's offset and, for nested fields, looks up and
// recursively resolves the referenced format. Resolution is idempotent.
func (f *Field) Resolve(formats map[string]*MessageFormat, offset int) error {
	if f.Resolved() {
		return nil
	}
	f.offset = offset
	if f.Type != NESTED {
		return nil
	}
	child, ok := formats[f.TypeName]
	if !ok {
		return ulog.Parsef("message format not found: %s", f.TypeName)
	}
	if err := child.Resolve(formats); err != nil {
		return err
	}
	size, err := child.SizeBytes()
	if err != nil {
		return err
	}
	f.nested = child
	f.size = size
	return nil
}

// NestedFormat returns the referenced format of a nested field.
func (f *Field) NestedFormat() (*MessageFormat, error) {
	if f.Type != NESTED {
		return nil, ulog.Accessf("field %s is not a nested type", f.Name)
	}
	if f.nested == nil {
		return nil, ulog.Accessf("field %s is not resolved", f.Name)
	}
	return f.nested, nil
}

// NestedField returns a field of the referenced format by name.
func (f *Field) NestedField(name string) (*Field, error) {
	nested, err := f.NestedFormat()
	if err != nil {
		return nil, err
	}
	return nested.Field(name)
}

// MessageFormat is a named, ordered list of fields with a by-name lookup.
type MessageFormat struct {
	name    string
	fields  []*Field
	byName  map[string]*Field

	resolved  bool
	resolving bool
}

// NewMessageFormat constructs a format from a name and ordered fields.
func NewMessageFormat(name string, fields []*Field) *MessageFormat {
	byName := make(map[string]*Field, len(fields))
	for _, f := range fields {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}
	return &MessageFormat{name: name, fields: fields, byName: byName}
}

// Name returns the format name.
func (m *MessageFormat) Name() string {
	return m.name
}

// Fields returns the ordered field list.
func (m *MessageFormat) Fields() []*Field {
	return m.fields
}

// FieldNames returns the field names in declaration order.
func (m *MessageFormat) FieldNames() []string {
	names := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		names = append(names, f.Name)
	}
	return names
}

// Field returns a field by name.
func (m *MessageFormat) Field(name string) (*Field, error) {
	f, ok := m.byName[name]
	if !ok {
		return nil, ulog.Accessf("field not found: %s", name)
	}
	return f, nil
}

// HasField reports whether the format has a resolved field of that name.
func (m *MessageFormat) HasField(name string) bool {
	f, ok := m.byName[name]
	return ok && f.Resolved()
}

// SizeBytes returns the total size of one message of this format, the sum
// of all field sizes. Valid only once the format is resolved.
func (m *MessageFormat) SizeBytes() (int, error) {
	size := 0
	for _, f := range m.fields {
		fs, err := f.SizeBytes()
		if err != nil {
			return 0, err
		}
		size += fs
	}
	return size, nil
}

// Encode returns the format's text form, "<name>:<field0>;<field1>;...;".
func (m *MessageFormat) Encode() string {
	var sb strings.Builder
	sb.WriteString(m.name)
	sb.WriteByte(':')
	for _, f := range m.fields {
		sb.WriteString(f.Encode())
		sb.WriteByte(';')
	}
	return sb.String()
}

// Equal reports whether two formats have the same name and element-wise
// equal field sequences.
func (m *MessageFormat) Equal(other *MessageFormat) bool {
	if m.name != other.name || len(m.fields) != len(other.fields) {
		return false
	}
	for i := range m.fields {
		if !m.fields[i].Equal(other.fields[i]) {
			return false
		}
	}
	return true
}

// Resolve walks the fields in order, assigning offsets as the running sum
// of field sizes and wiring nested references through the registry. A
// nested reference participating in a cycle fails fast rather than
// recursing forever.
func (m *MessageFormat) Resolve(formats map[string]*MessageFormat) error {
	if m.resolved {
		return nil
	}
	if m.resolving {
		return ulog.Parsef("cyclic message format definition: %s", m.name)
	}
	m.resolving = true
	defer func() { m.resolving = false }()

	offset := 0
	for _, f := range m.fields {
		if err := f.Resolve(formats, offset); err != nil {
			return err
		}
		size, err := f.SizeBytes()
		if err != nil {
			return err
		}
		offset += size
	}
	m.resolved = true
	return nil
}
