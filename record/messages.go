package record

import (
	"bytes"
	"encoding/binary"

	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/schema"
)

// AddLoggedMessage binds a runtime message ID to a format name, opening a
// subscription. MultiID distinguishes several instances of the same format.
type AddLoggedMessage struct {
	MultiID     uint8
	MsgID       uint16
	MessageName string
}

// ParseAddLoggedMessage reads an ADD_LOGGED_MSG payload.
func ParseAddLoggedMessage(payload []byte) (AddLoggedMessage, error) {
	if len(payload) < 4 {
		return AddLoggedMessage{}, ulog.Parsef("add logged message too short")
	}
	return AddLoggedMessage{
		MultiID:     payload[0],
		MsgID:       binary.LittleEndian.Uint16(payload[1:3]),
		MessageName: string(payload[3:]),
	}, nil
}

// Serialize writes the record.
func (a AddLoggedMessage) Serialize(w WriteFn) error {
	var fixed [3]byte
	fixed[0] = a.MultiID
	binary.LittleEndian.PutUint16(fixed[1:], a.MsgID)
	return emit(w, TypeAddLoggedMsg, fixed[:], []byte(a.MessageName))
}

// LogLevel is the syslog-style level byte of a logging record.
type LogLevel byte

const (
	LevelEmergency LogLevel = '0'
	LevelAlert     LogLevel = '1'
	LevelCritical  LogLevel = '2'
	LevelError     LogLevel = '3'
	LevelWarning   LogLevel = '4'
	LevelNotice    LogLevel = '5'
	LevelInfo      LogLevel = '6'
	LevelDebug     LogLevel = '7'
)

func (l LogLevel) String() string {
	switch l {
	case LevelEmergency:
		return "Emergency"
	case LevelAlert:
		return "Alert"
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelNotice:
		return "Notice"
	case LevelInfo:
		return "Info"
	case LevelDebug:
		return "Debug"
	}
	return "unknown"
}

// Logging is a free-text log line with a timestamp, optionally tagged.
type Logging struct {
	Level     LogLevel
	Tag       uint16
	HasTag    bool
	Timestamp uint64
	Message   string
}

// NewLogging returns an untagged logging record.
func NewLogging(level LogLevel, message string, timestamp uint64) Logging {
	return Logging{Level: level, Message: message, Timestamp: timestamp}
}

// ParseLogging reads a LOGGING or LOGGING_TAGGED payload. An out-of-range
// level byte clamps to Debug.
func ParseLogging(payload []byte, tagged bool) (Logging, error) {
	l := Logging{HasTag: tagged}
	if tagged {
		if len(payload) < 12 {
			return l, ulog.Parsef("tagged logging message too short")
		}
		l.Level = LogLevel(payload[0])
		l.Tag = binary.LittleEndian.Uint16(payload[1:3])
		l.Timestamp = binary.LittleEndian.Uint64(payload[3:11])
		l.Message = string(payload[11:])
	} else {
		if len(payload) < 10 {
			return l, ulog.Parsef("logging message too short")
		}
		l.Level = LogLevel(payload[0])
		l.Timestamp = binary.LittleEndian.Uint64(payload[1:9])
		l.Message = string(payload[9:])
	}
	if l.Level < LevelEmergency || l.Level > LevelDebug {
		l.Level = LevelDebug
	}
	return l, nil
}

// Serialize writes the record under the tagged or untagged type as
// appropriate.
func (l Logging) Serialize(w WriteFn) error {
	if l.HasTag {
		var fixed [11]byte
		fixed[0] = byte(l.Level)
		binary.LittleEndian.PutUint16(fixed[1:3], l.Tag)
		binary.LittleEndian.PutUint64(fixed[3:11], l.Timestamp)
		return emit(w, TypeLoggingTagged, fixed[:], []byte(l.Message))
	}
	var fixed [9]byte
	fixed[0] = byte(l.Level)
	binary.LittleEndian.PutUint64(fixed[1:9], l.Timestamp)
	return emit(w, TypeLogging, fixed[:], []byte(l.Message))
}

// Data is one sample on a subscription: the subscription's message ID plus
// the raw sample bytes, decoded on demand against the subscribed format.
type Data struct {
	MsgID uint16
	Data  []byte
}

// ParseData reads a DATA payload.
func ParseData(payload []byte) (Data, error) {
	if len(payload) < 3 {
		return Data{}, ulog.Parsef("data message too short")
	}
	return Data{
		MsgID: binary.LittleEndian.Uint16(payload[:2]),
		Data:  append([]byte(nil), payload[2:]...),
	}, nil
}

// Serialize writes the record.
func (d Data) Serialize(w WriteFn) error {
	var fixed [2]byte
	binary.LittleEndian.PutUint16(fixed[:], d.MsgID)
	return emit(w, TypeData, fixed[:], d.Data)
}

// Equal reports whether two data records are identical.
func (d Data) Equal(other Data) bool {
	return d.MsgID == other.MsgID && bytes.Equal(d.Data, other.Data)
}

// Dropout marks a logging gap of the given duration.
type Dropout struct {
	DurationMS uint16
}

// ParseDropout reads a DROPOUT payload.
func ParseDropout(payload []byte) (Dropout, error) {
	if len(payload) < 2 {
		return Dropout{}, ulog.Parsef("dropout message too short")
	}
	return Dropout{DurationMS: binary.LittleEndian.Uint16(payload[:2])}, nil
}

// Serialize writes the record.
func (d Dropout) Serialize(w WriteFn) error {
	var fixed [2]byte
	binary.LittleEndian.PutUint16(fixed[:], d.DurationMS)
	return emit(w, TypeDropout, fixed[:])
}

// Sync is a resynchronization anchor: a record holding a fixed magic byte
// sequence.
type Sync struct{}

// ParseSync reads a SYNC payload and validates the magic bytes.
func ParseSync(payload []byte) (Sync, error) {
	if len(payload) < len(syncMagic) {
		return Sync{}, ulog.Parsef("sync message too short")
	}
	if !bytes.Equal(payload[:len(syncMagic)], syncMagic[:]) {
		return Sync{}, ulog.Parsef("invalid sync magic bytes")
	}
	return Sync{}, nil
}

// Serialize writes the record.
func (s Sync) Serialize(w WriteFn) error {
	return emit(w, TypeSync, syncMagic[:])
}

// SerializeFormat writes a format definition record. Parsing of the text
// form lives in the schema package; this is its wire-level counterpart.
func SerializeFormat(f *schema.MessageFormat, w WriteFn) error {
	return emit(w, TypeFormat, []byte(f.Encode()))
}
