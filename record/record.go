package record

import (
	"encoding/binary"
	"math"

	"github.com/wkalt/ulog"
)

/*
Wire-level constants and shared plumbing for ULog records. Every record on
the wire is a three-byte header - a little-endian uint16 payload size and a
one-byte type tag - followed by the payload. The file itself opens with a
sixteen-byte file header (magic, version, timestamp) that is not a record.

Record types parse from a payload slice (the header is consumed by the
stream layer) and serialize themselves through a WriteFn, emitting the
header and payload byte-identically to what a conforming logger produces.
*/

////////////////////////////////////////////////////////////////////////////////

// WriteFn receives serialized bytes. Serialization calls it synchronously,
// possibly several times per record.
type WriteFn func(p []byte)

// MessageType tags a record on the wire.
type MessageType byte

const (
	TypeFormat           MessageType = 'F'
	TypeData             MessageType = 'D'
	TypeInfo             MessageType = 'I'
	TypeInfoMultiple     MessageType = 'M'
	TypeParameter        MessageType = 'P'
	TypeParameterDefault MessageType = 'Q'
	TypeAddLoggedMsg     MessageType = 'A'
	TypeRemoveLoggedMsg  MessageType = 'R'
	TypeSync             MessageType = 'S'
	TypeDropout          MessageType = 'O'
	TypeLogging          MessageType = 'L'
	TypeLoggingTagged    MessageType = 'C'
	TypeFlagBits         MessageType = 'B'
)

// HeaderLen is the size of the per-record header.
const HeaderLen = 3

// FileHeaderLen is the size of the file header (magic, version, timestamp).
const FileHeaderLen = 16

// KnownType reports whether t is a message type defined by the format.
// Corruption recovery only resynchronizes on known types.
func KnownType(t MessageType) bool {
	switch t {
	case TypeFormat, TypeData, TypeInfo, TypeInfoMultiple, TypeParameter,
		TypeParameterDefault, TypeAddLoggedMsg, TypeRemoveLoggedMsg,
		TypeSync, TypeDropout, TypeLogging, TypeLoggingTagged, TypeFlagBits:
		return true
	}
	return false
}

// nolint:gochecknoglobals
var fileMagic = [7]byte{'U', 'L', 'o', 'g', 0x01, 0x12, 0x35}

// FileVersion is the ULog file format version this library writes.
const FileVersion = 1

// nolint:gochecknoglobals
var syncMagic = [8]byte{0x2F, 0x73, 0x13, 0x20, 0x25, 0x0C, 0xBB, 0x12}

// Flag bits of the FLAG_BITS record. Only DataAppended is tolerated among
// the incompatible flags; anything else makes the log unparsable.
const (
	CompatFlag0DefaultParameters = 1 << 0
	IncompatFlag0DataAppended    = 1 << 0
)

// Default parameter type bits carried by PARAMETER_DEFAULT records.
const (
	DefaultTypeSystem       = 1 << 0
	DefaultTypeCurrentSetup = 1 << 1
)

// emit writes a record header followed by the payload pieces, validating
// that the total payload fits the on-wire uint16 size field.
func emit(w WriteFn, t MessageType, payload ...[]byte) error {
	size := 0
	for _, p := range payload {
		size += len(p)
	}
	if size > math.MaxUint16 {
		return ulog.Parsef("message too long: %d bytes", size)
	}
	var hdr [HeaderLen]byte
	binary.LittleEndian.PutUint16(hdr[:2], uint16(size))
	hdr[2] = byte(t)
	w(hdr[:])
	for _, p := range payload {
		w(p)
	}
	return nil
}
