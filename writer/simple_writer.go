package writer

import (
	"os"
	"regexp"

	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
)

/*
SimpleWriter wraps Writer with the call-order and schema validation a
library user wants: formats are checked for naming, a leading uint64
timestamp and the absence of padding before they are written, message IDs
are assigned sequentially, and data is cut to the exact declared message
size. Violations come back as usage errors and leave no partial record on
the wire.

Nested formats are intentionally not writable here, although the reader
accepts them. Downstream tooling assumes flat, padding-free layouts for
logged topics.
*/

////////////////////////////////////////////////////////////////////////////////

// nolint:gochecknoglobals
var (
	formatNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-/]+$`)
	fieldNameRegex  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// SimpleWriter is a validating ULog writer.
type SimpleWriter struct {
	writer *Writer
	file   *os.File

	headerComplete bool
	formats        map[string]int // declared name -> message size
	subscriptions  []int          // msg_id -> message size
}

// NewSimpleWriter returns a SimpleWriter emitting through sink. The file
// header with the given start timestamp (microseconds) is written
// immediately.
func NewSimpleWriter(sink record.WriteFn, timestamp uint64) (*SimpleWriter, error) {
	w := &SimpleWriter{
		writer:  New(sink),
		formats: make(map[string]int),
	}
	if err := w.writer.FileHeader(record.NewFileHeader(timestamp, false)); err != nil {
		return nil, err
	}
	return w, nil
}

// NewSimpleWriterFile returns a SimpleWriter writing to a file, which is
// created or truncated. Close releases it.
func NewSimpleWriterFile(path string, timestamp uint64) (*SimpleWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, ulog.Usagef("failed to open %s: %s", path, err)
	}
	w, err := NewSimpleWriter(func(p []byte) {
		f.Write(p) // nolint:errcheck
	}, timestamp)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// WriteInfoString writes a string-valued info record to the header.
func (w *SimpleWriter) WriteInfoString(key, val string) error {
	return w.writer.MessageInfo(record.NewStringInfo(key, val))
}

// WriteInfoInt32 writes an int32-valued info record to the header.
func (w *SimpleWriter) WriteInfoInt32(key string, val int32) error {
	return w.writer.MessageInfo(record.NewInt32Info(key, val))
}

// WriteInfoFloat32 writes a float-valued info record to the header.
func (w *SimpleWriter) WriteInfoFloat32(key string, val float32) error {
	return w.writer.MessageInfo(record.NewFloat32Info(key, val))
}

// WriteParameterInt32 writes an initial parameter value to the header.
func (w *SimpleWriter) WriteParameterInt32(key string, val int32) error {
	if w.headerComplete {
		return ulog.Usagef("header already complete")
	}
	return w.writer.Parameter(record.NewInt32Info(key, val))
}

// WriteParameterFloat32 writes an initial parameter value to the header.
func (w *SimpleWriter) WriteParameterFloat32(key string, val float32) error {
	if w.headerComplete {
		return ulog.Usagef("header already complete")
	}
	return w.writer.Parameter(record.NewFloat32Info(key, val))
}

// WriteMessageFormat writes a format definition to the header. The first
// field must be "uint64_t timestamp", all fields must be of basic type,
// and field offsets must be naturally aligned so the layout carries no
// implicit padding - ordering fields by decreasing type size is the usual
// way to satisfy that.
func (w *SimpleWriter) WriteMessageFormat(name string, fields []*schema.Field) error {
	if w.headerComplete {
		return ulog.Usagef("header already complete")
	}
	if len(fields) == 0 || fields[0].Name != "timestamp" ||
		fields[0].Type != schema.UINT64 || fields[0].ArrayLength != -1 {
		return ulog.Usagef("first message field must be 'uint64_t timestamp'")
	}
	if _, ok := w.formats[name]; ok {
		return ulog.Usagef("duplicate format: %s", name)
	}
	if !formatNameRegex.MatchString(name) {
		return ulog.Usagef("invalid format name: %s, must match %s", name, formatNameRegex)
	}
	for _, f := range fields {
		if !fieldNameRegex.MatchString(f.Name) {
			return ulog.Usagef("invalid field name: %s, must match %s", f.Name, fieldNameRegex)
		}
	}
	messageSize := 0
	for _, f := range fields {
		size, ok := schema.BasicTypeSize(f.TypeName)
		if !ok {
			return ulog.Usagef("invalid field type (nested formats are not supported): %s", f.TypeName)
		}
		if messageSize%size != 0 {
			return ulog.Usagef(
				"format requires padding, reorder fields by decreasing type size: padding before field %s",
				f.Name)
		}
		arraySize := 1
		if f.ArrayLength > 0 {
			arraySize = f.ArrayLength
		}
		messageSize += arraySize * size
	}
	w.formats[name] = messageSize
	return w.writer.MessageFormat(schema.NewMessageFormat(name, fields))
}

// HeaderComplete ends the header section. Formats, info and initial
// parameters must be written before; subscriptions and data after.
func (w *SimpleWriter) HeaderComplete() error {
	if w.headerComplete {
		return ulog.Usagef("header already complete")
	}
	w.headerComplete = true
	return w.writer.HeaderComplete()
}

// WriteParameterChangeInt32 writes a parameter change to the data section.
func (w *SimpleWriter) WriteParameterChangeInt32(key string, val int32) error {
	if !w.headerComplete {
		return ulog.Usagef("header not yet complete")
	}
	return w.writer.Parameter(record.NewInt32Info(key, val))
}

// WriteParameterChangeFloat32 writes a parameter change to the data
// section.
func (w *SimpleWriter) WriteParameterChangeFloat32(key string, val float32) error {
	if !w.headerComplete {
		return ulog.Usagef("header not yet complete")
	}
	return w.writer.Parameter(record.NewFloat32Info(key, val))
}

// WriteAddLoggedMessage opens a time series over a declared format and
// returns the message ID to pass to WriteData.
func (w *SimpleWriter) WriteAddLoggedMessage(formatName string, multiID uint8) (uint16, error) {
	if !w.headerComplete {
		return 0, ulog.Usagef("header not yet complete")
	}
	size, ok := w.formats[formatName]
	if !ok {
		return 0, ulog.Usagef("format not found: %s", formatName)
	}
	msgID := uint16(len(w.subscriptions))
	w.subscriptions = append(w.subscriptions, size)
	err := w.writer.AddLoggedMessage(record.AddLoggedMessage{
		MultiID:     multiID,
		MsgID:       msgID,
		MessageName: formatName,
	})
	if err != nil {
		return 0, err
	}
	return msgID, nil
}

// WriteTextMessage writes a log line.
func (w *SimpleWriter) WriteTextMessage(level record.LogLevel, message string, timestamp uint64) error {
	if !w.headerComplete {
		return ulog.Usagef("header not yet complete")
	}
	return w.writer.Logging(record.NewLogging(level, message, timestamp))
}

// WriteData writes one sample for a subscription. Exactly the declared
// message size is taken from data; trailing bytes (struct padding) are
// ignored, a short buffer is an error.
func (w *SimpleWriter) WriteData(msgID uint16, data []byte) error {
	if !w.headerComplete {
		return ulog.Usagef("header not yet complete")
	}
	if int(msgID) >= len(w.subscriptions) {
		return ulog.Usagef("invalid message ID: %d", msgID)
	}
	expected := w.subscriptions[msgID]
	if len(data) < expected {
		return ulog.Usagef("data too small: %d bytes, format requires %d", len(data), expected)
	}
	return w.writer.Data(record.Data{
		MsgID: msgID,
		Data:  append([]byte(nil), data[:expected]...),
	})
}

// Fsync flushes the file to stable storage. A no-op for sink-backed
// writers.
func (w *SimpleWriter) Fsync() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return ulog.Usagef("fsync failed: %s", err)
	}
	return nil
}

// Close releases the file, if any.
func (w *SimpleWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
