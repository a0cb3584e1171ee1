package record

import (
	"bytes"
	"encoding/binary"

	"github.com/wkalt/ulog"
)

// FileHeader is the sixteen-byte preamble of a ULog file plus, when
// present, the flag bits record that immediately follows it.
type FileHeader struct {
	Version   byte
	Timestamp uint64
	FlagBits  *FlagBits
}

// NewFileHeader returns a version-1 file header with the given start
// timestamp in microseconds. The flag bits record is included, with the
// default-parameters compatibility flag set if requested.
func NewFileHeader(timestamp uint64, hasDefaultParameters bool) FileHeader {
	fb := &FlagBits{}
	if hasDefaultParameters {
		fb.CompatFlags[0] |= CompatFlag0DefaultParameters
	}
	return FileHeader{Version: FileVersion, Timestamp: timestamp, FlagBits: fb}
}

// ParseFileHeader reads the file preamble from the first bytes of a log.
// The flag bits record is read separately by the stream layer.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderLen {
		return FileHeader{}, ulog.Parsef("not enough data for the file header")
	}
	if !bytes.Equal(data[:len(fileMagic)], fileMagic[:]) {
		return FileHeader{}, ulog.Parsef("invalid file format (incorrect header bytes)")
	}
	return FileHeader{
		Version:   data[7],
		Timestamp: binary.LittleEndian.Uint64(data[8:16]),
	}, nil
}

// Serialize writes the file preamble and, when present, the flag bits
// record.
func (h FileHeader) Serialize(w WriteFn) error {
	var buf [FileHeaderLen]byte
	copy(buf[:], fileMagic[:])
	buf[7] = h.Version
	binary.LittleEndian.PutUint64(buf[8:16], h.Timestamp)
	w(buf[:])
	if h.FlagBits != nil {
		return h.FlagBits.Serialize(w)
	}
	return nil
}

// Equal reports whether two file headers carry the same preamble and flag
// bits.
func (h FileHeader) Equal(other FileHeader) bool {
	if h.Version != other.Version || h.Timestamp != other.Timestamp {
		return false
	}
	if (h.FlagBits == nil) != (other.FlagBits == nil) {
		return false
	}
	return h.FlagBits == nil || *h.FlagBits == *other.FlagBits
}

// FlagBits is the optional record directly after the file preamble,
// carrying compatibility flags and offsets of appended data regions.
type FlagBits struct {
	CompatFlags     [8]byte
	IncompatFlags   [8]byte
	AppendedOffsets [3]uint64
}

const flagBitsPayloadLen = 40

// ParseFlagBits reads a flag bits payload.
func ParseFlagBits(payload []byte) (FlagBits, error) {
	if len(payload) < flagBitsPayloadLen {
		return FlagBits{}, ulog.Parsef("flag bits message too short")
	}
	var fb FlagBits
	copy(fb.CompatFlags[:], payload[0:8])
	copy(fb.IncompatFlags[:], payload[8:16])
	for i := range fb.AppendedOffsets {
		fb.AppendedOffsets[i] = binary.LittleEndian.Uint64(payload[16+8*i:])
	}
	return fb, nil
}

// Serialize writes the flag bits record.
func (f FlagBits) Serialize(w WriteFn) error {
	var payload [flagBitsPayloadLen]byte
	copy(payload[0:8], f.CompatFlags[:])
	copy(payload[8:16], f.IncompatFlags[:])
	for i, off := range f.AppendedOffsets {
		binary.LittleEndian.PutUint64(payload[16+8*i:], off)
	}
	return emit(w, TypeFlagBits, payload[:])
}

// HasUnknownIncompat reports whether any incompatible flag other than
// DataAppended is set. Such a log cannot be parsed.
func (f FlagBits) HasUnknownIncompat() bool {
	if f.IncompatFlags[0]&^byte(IncompatFlag0DataAppended) != 0 {
		return true
	}
	for _, b := range f.IncompatFlags[1:] {
		if b != 0 {
			return true
		}
	}
	return false
}

// HasAppendedData reports whether the log declares appended data regions.
func (f FlagBits) HasAppendedData() bool {
	return f.AppendedOffsets[0] != 0
}
