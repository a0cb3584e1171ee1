package record

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/value"
)

/*
Info, parameter and parameter-default records all share one shape: a key
that is a single field declaration ("<type> <name>") and a raw value blob
laid out per that declaration. Parameters are info records on a different
wire tag; info-multi records additionally carry a continuation flag so that
values longer than one record can be split.
*/

////////////////////////////////////////////////////////////////////////////////

// MessageInfo is a key/value info record. Parameter is the same record
// written under the PARAMETER tag.
type MessageInfo struct {
	Field     *schema.Field
	Value     []byte
	IsMulti   bool
	Continued bool
}

// Parameter is an info record carrying a parameter value.
type Parameter = MessageInfo

// ParseMessageInfo reads an INFO or INFO_MULTIPLE payload.
func ParseMessageInfo(payload []byte, multi bool) (MessageInfo, error) {
	m := MessageInfo{IsMulti: multi}
	keyStart := 1
	if multi {
		if len(payload) < 3 {
			return m, ulog.Parsef("info message too short")
		}
		m.Continued = payload[0] != 0
		keyStart = 2
	} else if len(payload) < 2 {
		return m, ulog.Parsef("info message too short")
	}
	keyLen := int(payload[keyStart-1])
	if keyLen > len(payload)-keyStart {
		return m, ulog.Parsef("info key too long")
	}
	field, err := schema.ParseField(string(payload[keyStart : keyStart+keyLen]))
	if err != nil {
		return m, err
	}
	m.Field = field
	m.Value = append([]byte(nil), payload[keyStart+keyLen:]...)
	return m, nil
}

// NewStringInfo returns an info record with a char-array key holding value.
func NewStringInfo(key, val string) MessageInfo {
	return MessageInfo{
		Field: schema.NewField("char", key, len(val)),
		Value: []byte(val),
	}
}

// NewInt32Info returns an info record with an int32 value.
func NewInt32Info(key string, val int32) MessageInfo {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(val))
	return MessageInfo{
		Field: schema.NewField("int32_t", key, -1),
		Value: buf[:],
	}
}

// NewFloat32Info returns an info record with a float value.
func NewFloat32Info(key string, val float32) MessageInfo {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(val))
	return MessageInfo{
		Field: schema.NewField("float", key, -1),
		Value: buf[:],
	}
}

// Key returns the info key, the name of the key field.
func (m MessageInfo) Key() string {
	return m.Field.Name
}

// TypedValue returns a typed view over the raw value bytes. The key field
// must be resolved first; the container resolves header-section records
// when the header completes and later records on ingestion.
func (m MessageInfo) TypedValue() value.Value {
	return value.New(m.Field, m.Value)
}

// Serialize writes the record under the INFO or INFO_MULTIPLE tag as
// appropriate.
func (m MessageInfo) Serialize(w WriteFn) error {
	if m.IsMulti {
		return m.serializeMulti(w)
	}
	return m.SerializeAs(w, TypeInfo)
}

// SerializeAs writes a non-multi record under an explicit tag; parameters
// use this with TypeParameter.
func (m MessageInfo) SerializeAs(w WriteFn, t MessageType) error {
	encoded := m.Field.Encode()
	if len(encoded) > math.MaxUint8 {
		return ulog.Parsef("info key too long: %d bytes", len(encoded))
	}
	return emit(w, t, []byte{byte(len(encoded))}, []byte(encoded), m.Value)
}

func (m MessageInfo) serializeMulti(w WriteFn) error {
	encoded := m.Field.Encode()
	if len(encoded) > math.MaxUint8 {
		return ulog.Parsef("info key too long: %d bytes", len(encoded))
	}
	continued := byte(0)
	if m.Continued {
		continued = 1
	}
	return emit(w, TypeInfoMultiple,
		[]byte{continued, byte(len(encoded))}, []byte(encoded), m.Value)
}

// Equal reports whether two info records have equal keys, values and flags.
func (m MessageInfo) Equal(other MessageInfo) bool {
	return m.Field.Equal(other.Field) && bytes.Equal(m.Value, other.Value) &&
		m.IsMulti == other.IsMulti && m.Continued == other.Continued
}

// ParameterDefault is a parameter default value record. DefaultTypes is a
// bitfield of the default configurations the value belongs to.
type ParameterDefault struct {
	Field        *schema.Field
	Value        []byte
	DefaultTypes byte
}

// ParseParameterDefault reads a PARAMETER_DEFAULT payload.
func ParseParameterDefault(payload []byte) (ParameterDefault, error) {
	var p ParameterDefault
	if len(payload) < 3 {
		return p, ulog.Parsef("parameter default message too short")
	}
	p.DefaultTypes = payload[0]
	keyLen := int(payload[1])
	if keyLen > len(payload)-2 {
		return p, ulog.Parsef("parameter default key too long")
	}
	field, err := schema.ParseField(string(payload[2 : 2+keyLen]))
	if err != nil {
		return p, err
	}
	p.Field = field
	p.Value = append([]byte(nil), payload[2+keyLen:]...)
	return p, nil
}

// Key returns the parameter name.
func (p ParameterDefault) Key() string {
	return p.Field.Name
}

// TypedValue returns a typed view over the raw value bytes.
func (p ParameterDefault) TypedValue() value.Value {
	return value.New(p.Field, p.Value)
}

// Serialize writes the record.
func (p ParameterDefault) Serialize(w WriteFn) error {
	encoded := p.Field.Encode()
	if len(encoded) > math.MaxUint8 {
		return ulog.Parsef("parameter default key too long: %d bytes", len(encoded))
	}
	return emit(w, TypeParameterDefault,
		[]byte{p.DefaultTypes, byte(len(encoded))}, []byte(encoded), p.Value)
}
