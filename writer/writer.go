package writer

import (
	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
)

/*
Writer is the low-level serializer: each method emits one record through
the write sink, byte-identically to the wire form the reader accepts. The
only stream discipline it enforces is the header boundary - formats cannot
follow HeaderComplete and subscriptions cannot precede it. SimpleWriter
layers full validation on top.

Writer implements reader.Handler (HeaderComplete, Error and the per-record
methods), so one can be attached directly to a reader as the sink to echo a
parsed stream back out. Round-tripping a well-formed log this way
reproduces it byte for byte.
*/

////////////////////////////////////////////////////////////////////////////////

// Writer serializes records through a write sink.
type Writer struct {
	sink           record.WriteFn
	headerComplete bool
}

// New returns a Writer emitting through sink.
func New(sink record.WriteFn) *Writer {
	return &Writer{sink: sink}
}

// HeaderComplete marks the end of the header section.
func (w *Writer) HeaderComplete() error {
	w.headerComplete = true
	return nil
}

// Error satisfies reader.Handler; the writer has nothing to record.
func (w *Writer) Error(string, bool) {}

// FileHeader writes the file preamble and flag bits.
func (w *Writer) FileHeader(h record.FileHeader) error {
	return h.Serialize(w.sink)
}

// MessageInfo writes an info record.
func (w *Writer) MessageInfo(m record.MessageInfo) error {
	return m.Serialize(w.sink)
}

// MessageFormat writes a format definition record.
func (w *Writer) MessageFormat(f *schema.MessageFormat) error {
	if w.headerComplete {
		return ulog.Parsef("header complete, cannot write formats")
	}
	return record.SerializeFormat(f, w.sink)
}

// Parameter writes a parameter record.
func (w *Writer) Parameter(p record.Parameter) error {
	return p.SerializeAs(w.sink, record.TypeParameter)
}

// ParameterDefault writes a parameter default record.
func (w *Writer) ParameterDefault(p record.ParameterDefault) error {
	return p.Serialize(w.sink)
}

// AddLoggedMessage writes a subscription record.
func (w *Writer) AddLoggedMessage(a record.AddLoggedMessage) error {
	if !w.headerComplete {
		return ulog.Parsef("header not yet complete, cannot write add logged message")
	}
	return a.Serialize(w.sink)
}

// Logging writes a log line record.
func (w *Writer) Logging(l record.Logging) error {
	return l.Serialize(w.sink)
}

// Data writes a sample record.
func (w *Writer) Data(d record.Data) error {
	return d.Serialize(w.sink)
}

// Dropout writes a dropout record.
func (w *Writer) Dropout(d record.Dropout) error {
	return d.Serialize(w.sink)
}

// Sync writes a sync record.
func (w *Writer) Sync(s record.Sync) error {
	return s.Serialize(w.sink)
}
