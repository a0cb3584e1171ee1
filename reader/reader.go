package reader

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/util/log"
)

/*
Streaming ULog parser. Callers feed byte chunks of arbitrary size through
ReadChunk; the reader reassembles records across chunk boundaries and
dispatches exactly one handler call per complete record, in file order.

The stream is parsed by a small state machine: the file magic first, then
the optional flag bits record, then the header section (formats, info,
parameters), then the data section. The first add-logged-message or logging
record ends the header; HeaderComplete fires exactly once at that point.

A record whose header is impossible (zero size or type) or whose body fails
to parse puts the reader into recovery: it reports one recoverable error
for the episode and scans forward a byte at a time for the next plausible
record header, then resumes. Recovery only ever skips bytes; records after
the skip are dispatched in their natural order.

Everything is synchronous on the caller's goroutine; there is no internal
buffering of handler calls and no I/O.
*/

////////////////////////////////////////////////////////////////////////////////

type state int

const (
	stateReadMagic state = iota
	stateReadFlagBits
	stateReadHeader
	stateReadData
	stateInvalidData
)

// Recovery never resynchronizes on a header claiming a payload this large;
// real records are far smaller and corrupt headers routinely claim huge
// sizes.
const maxRecoverySize = 10000

const initialBufferCap = 2048

// flagBitsRecordLen is the full wire size of a flag bits record.
const flagBitsRecordLen = 43

// Reader incrementally parses a ULog byte stream, dispatching records to a
// Handler.
type Reader struct {
	ctx     context.Context
	handler Handler

	state state

	// partial holds at most one in-progress record, except during
	// recovery, where it is the scan window. partialCap bounds how far it
	// may grow before the in-place path must drain it.
	partial    []byte
	partialCap int

	needRecovery       bool
	corruptionReported bool

	totalRead int

	fileHeader record.FileHeader
}

// New returns a Reader dispatching into handler.
func New(handler Handler) *Reader {
	return &Reader{
		ctx:        context.Background(),
		handler:    handler,
		partial:    make([]byte, 0, initialBufferCap),
		partialCap: initialBufferCap,
	}
}

// ReadChunk parses the next chunk of the stream. Handler methods are
// invoked synchronously before it returns. Parse problems are reported
// through the handler's Error method, never returned; a returned error is
// a non-parse failure from a handler and aborts processing of the chunk.
func (r *Reader) ReadChunk(data []byte) error {
	if r.state == stateInvalidData {
		return nil
	}

	if r.state == stateReadMagic {
		n := r.readMagic(data)
		data = data[n:]
		r.totalRead += n
		if r.state == stateInvalidData {
			return nil
		}
	}

	if r.state == stateReadFlagBits && len(data) > 0 {
		n, err := r.readFlagBits(data)
		if err != nil {
			return err
		}
		data = data[n:]
		r.totalRead += n
		if r.state == stateInvalidData {
			return nil
		}
	}

	for (len(data) > 0 || len(r.partial) > 0) && !r.needRecovery {
		// Assemble one full record: either the partial buffer holds the
		// head of one and is topped up from data, or data's head is a
		// complete record and is consumed in place without copying.
		var msg []byte
		fromPartial := false
		if len(r.partial) > 0 {
			ensure := func(required int) bool {
				if len(r.partial) < required {
					n := min(required-len(r.partial), len(data))
					if len(r.partial)+n > r.partialCap {
						r.partialCap = len(r.partial) + n
					}
					r.partial = append(r.partial, data[:n]...)
					data = data[n:]
					r.totalRead += n
				}
				return len(r.partial) >= required
			}
			if ensure(record.HeaderLen) {
				msgSize := int(binary.LittleEndian.Uint16(r.partial))
				if ensure(msgSize + record.HeaderLen) {
					msg = r.partial[:msgSize+record.HeaderLen]
					fromPartial = true
				}
			}
			if msg == nil {
				// the buffered record is incomplete and data is used up
				break
			}
		} else {
			if len(data) > record.HeaderLen {
				msgSize := int(binary.LittleEndian.Uint16(data))
				if len(data) >= msgSize+record.HeaderLen {
					msg = data[:msgSize+record.HeaderLen]
					data = data[msgSize+record.HeaderLen:]
					r.totalRead += len(msg)
				}
			}
			if msg == nil {
				n := r.appendPartial(data)
				data = data[n:]
				r.totalRead += n
			}
		}

		if msg != nil {
			msgSize := int(binary.LittleEndian.Uint16(msg))
			msgType := msg[2]
			if msgSize == 0 || msgType == 0 {
				r.corruptionDetected("message corruption detected")
			} else {
				err := r.dispatch(msg)
				if err != nil && !errors.Is(err, ulog.ErrParse) {
					return err
				}
				if err != nil {
					log.Debugf(r.ctx, "offset %d: dropping malformed record: %s", r.totalRead, err)
					r.corruptionDetected(err.Error())
				}
			}
			if fromPartial {
				n := msgSize + record.HeaderLen
				r.partial = r.partial[:copy(r.partial, r.partial[n:])]
			}
		}
	}

	if r.needRecovery {
		return r.tryToRecover(data)
	}
	return nil
}

// dispatch routes one complete record through the state machine. The
// record ending the header section is itself dispatched as a data-section
// record, after HeaderComplete.
func (r *Reader) dispatch(msg []byte) error {
	if r.state == stateReadHeader {
		if err := r.readHeaderMessage(msg); err != nil {
			return err
		}
	}
	if r.state == stateReadData {
		return r.readDataMessage(msg)
	}
	return nil
}

func (r *Reader) readHeaderMessage(msg []byte) error {
	payload := msg[record.HeaderLen:]
	switch record.MessageType(msg[2]) {
	case record.TypeInfo:
		m, err := record.ParseMessageInfo(payload, false)
		if err != nil {
			return err
		}
		return r.handler.MessageInfo(m)
	case record.TypeInfoMultiple:
		m, err := record.ParseMessageInfo(payload, true)
		if err != nil {
			return err
		}
		return r.handler.MessageInfo(m)
	case record.TypeFormat:
		f, err := schema.ParseFormat(payload)
		if err != nil {
			return err
		}
		return r.handler.MessageFormat(f)
	case record.TypeParameter:
		p, err := record.ParseMessageInfo(payload, false)
		if err != nil {
			return err
		}
		return r.handler.Parameter(p)
	case record.TypeParameterDefault:
		p, err := record.ParseParameterDefault(payload)
		if err != nil {
			return err
		}
		return r.handler.ParameterDefault(p)
	case record.TypeAddLoggedMsg, record.TypeLogging, record.TypeLoggingTagged:
		log.Debugf(r.ctx, "offset %d: header complete", r.totalRead)
		r.state = stateReadData
		return r.handler.HeaderComplete()
	}
	return nil
}

func (r *Reader) readDataMessage(msg []byte) error {
	payload := msg[record.HeaderLen:]
	switch record.MessageType(msg[2]) {
	case record.TypeInfo:
		m, err := record.ParseMessageInfo(payload, false)
		if err != nil {
			return err
		}
		return r.handler.MessageInfo(m)
	case record.TypeInfoMultiple:
		m, err := record.ParseMessageInfo(payload, true)
		if err != nil {
			return err
		}
		return r.handler.MessageInfo(m)
	case record.TypeParameter:
		p, err := record.ParseMessageInfo(payload, false)
		if err != nil {
			return err
		}
		return r.handler.Parameter(p)
	case record.TypeParameterDefault:
		p, err := record.ParseParameterDefault(payload)
		if err != nil {
			return err
		}
		return r.handler.ParameterDefault(p)
	case record.TypeFormat:
		f, err := schema.ParseFormat(payload)
		if err != nil {
			return err
		}
		return r.handler.MessageFormat(f)
	case record.TypeAddLoggedMsg:
		a, err := record.ParseAddLoggedMessage(payload)
		if err != nil {
			return err
		}
		return r.handler.AddLoggedMessage(a)
	case record.TypeLogging:
		l, err := record.ParseLogging(payload, false)
		if err != nil {
			return err
		}
		return r.handler.Logging(l)
	case record.TypeLoggingTagged:
		l, err := record.ParseLogging(payload, true)
		if err != nil {
			return err
		}
		return r.handler.Logging(l)
	case record.TypeData:
		d, err := record.ParseData(payload)
		if err != nil {
			return err
		}
		return r.handler.Data(d)
	case record.TypeDropout:
		d, err := record.ParseDropout(payload)
		if err != nil {
			return err
		}
		return r.handler.Dropout(d)
	case record.TypeSync:
		s, err := record.ParseSync(payload)
		if err != nil {
			return err
		}
		return r.handler.Sync(s)
	}
	return nil
}

// readMagic consumes the sixteen-byte file preamble. It must arrive within
// a single chunk; a short first chunk or wrong magic ends parsing.
func (r *Reader) readMagic(data []byte) int {
	if len(data) < record.FileHeaderLen {
		r.handler.Error("not enough data to read file magic", false)
		r.state = stateInvalidData
		return 0
	}
	header, err := record.ParseFileHeader(data)
	if err != nil {
		r.handler.Error("invalid file format (incorrect header bytes)", false)
		r.state = stateInvalidData
		return 0
	}
	r.fileHeader = header
	r.state = stateReadFlagBits
	return record.FileHeaderLen
}

// readFlagBits consumes the optional flag bits record directly after the
// preamble. Like the magic it must arrive in one piece. When the next
// record is not a flag bits record, the file header is emitted without
// flags and nothing is consumed.
func (r *Reader) readFlagBits(data []byte) (int, error) {
	if len(data) < flagBitsRecordLen {
		r.handler.Error("not enough data to read file flags", false)
		r.state = stateInvalidData
		return 0, nil
	}
	if record.MessageType(data[2]) != record.TypeFlagBits {
		r.state = stateReadHeader
		return 0, r.handler.FileHeader(r.fileHeader)
	}
	msgSize := int(binary.LittleEndian.Uint16(data))
	flags, err := record.ParseFlagBits(data[record.HeaderLen:flagBitsRecordLen])
	if err != nil {
		r.handler.Error("invalid flag bits record", false)
		r.state = stateInvalidData
		return 0, nil
	}
	if flags.HasAppendedData() {
		r.handler.Error("file contains appended offsets - this is not supported", true)
	}
	if flags.HasUnknownIncompat() {
		r.handler.Error("unknown incompatible flag set: cannot parse the log", false)
		r.state = stateInvalidData
		return 0, nil
	}
	r.fileHeader.FlagBits = &flags
	r.state = stateReadHeader
	return msgSize + record.HeaderLen, r.handler.FileHeader(r.fileHeader)
}

// corruptionDetected reports the start of a corruption episode with msg and
// flags the stream for recovery. Repeat detections within one episode stay
// silent.
func (r *Reader) corruptionDetected(msg string) {
	if !r.corruptionReported {
		r.handler.Error(msg, true)
		r.corruptionReported = true
	}
	r.needRecovery = true
}

// appendPartial moves bytes from data into the partial buffer, up to its
// current capacity bound, and returns how many were taken.
func (r *Reader) appendPartial(data []byte) int {
	n := min(len(data), r.partialCap-len(r.partial))
	r.partial = append(r.partial, data[:n]...)
	return n
}

// tryToRecover scans forward through the partial buffer, refilling it from
// data, for a byte position that looks like a valid record header: a known
// type, a nonzero size under the recovery bound. Bytes before the
// candidate are discarded and normal parsing resumes on the remainder.
func (r *Reader) tryToRecover(data []byte) error {
	for len(data) > 0 {
		n := r.appendPartial(data)
		data = data[n:]
		r.totalRead += n

		if len(r.partial) < record.HeaderLen {
			continue
		}
		found := false
		index := 0
		// A full buffer that accepted no new bytes must give up its
		// first byte, or the scan could repeat forever.
		if n == 0 {
			index = 1
		}
		for ; index < len(r.partial)-record.HeaderLen; index++ {
			msgSize := int(binary.LittleEndian.Uint16(r.partial[index:]))
			msgType := record.MessageType(r.partial[index+2])
			if msgSize != 0 && msgType != 0 && msgSize < maxRecoverySize &&
				record.KnownType(msgType) {
				found = true
				break
			}
		}
		if index > 0 {
			r.partial = r.partial[:copy(r.partial, r.partial[index:])]
		}
		if found {
			log.Debugf(r.ctx, "offset %d: recovered, resuming parse", r.totalRead)
			r.needRecovery = false
			r.corruptionReported = false
			return r.ReadChunk(data)
		}
	}
	return nil
}
