package reader

import (
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
)

/*
Handler is the sink the streaming reader dispatches into: one method per
record kind, plus HeaderComplete (called exactly once, before the first
record of the data section) and Error (called for every stream problem,
with recoverable=false reserved for problems that end parsing).

A returned error wrapping ulog.ErrParse marks the record as malformed; the
reader reports it as a recoverable stream error and enters corruption
recovery. Any other error aborts ReadChunk and is returned to the caller.

Embed NopHandler to implement only the methods of interest. The container
package provides the standard accumulating implementation, and
writer.Writer satisfies Handler too, so a parsed stream can be re-emitted
byte-identically by wiring a writer in as the sink.
*/

////////////////////////////////////////////////////////////////////////////////

type Handler interface {
	HeaderComplete() error
	Error(msg string, recoverable bool)

	FileHeader(record.FileHeader) error
	MessageInfo(record.MessageInfo) error
	MessageFormat(*schema.MessageFormat) error
	Parameter(record.Parameter) error
	ParameterDefault(record.ParameterDefault) error
	AddLoggedMessage(record.AddLoggedMessage) error
	Logging(record.Logging) error
	Data(record.Data) error
	Dropout(record.Dropout) error
	Sync(record.Sync) error
}

// NopHandler implements Handler with no-ops, for embedding.
type NopHandler struct{}

func (NopHandler) HeaderComplete() error                        { return nil }
func (NopHandler) Error(string, bool)                           {}
func (NopHandler) FileHeader(record.FileHeader) error           { return nil }
func (NopHandler) MessageInfo(record.MessageInfo) error         { return nil }
func (NopHandler) MessageFormat(*schema.MessageFormat) error    { return nil }
func (NopHandler) Parameter(record.Parameter) error             { return nil }
func (NopHandler) ParameterDefault(record.ParameterDefault) error {
	return nil
}
func (NopHandler) AddLoggedMessage(record.AddLoggedMessage) error {
	return nil
}
func (NopHandler) Logging(record.Logging) error { return nil }
func (NopHandler) Data(record.Data) error       { return nil }
func (NopHandler) Dropout(record.Dropout) error { return nil }
func (NopHandler) Sync(record.Sync) error       { return nil }

var _ Handler = NopHandler{}
