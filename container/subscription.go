package container

import (
	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/value"
)

/*
A Subscription binds a runtime message ID to a format and accumulates the
raw samples logged under that ID. Samples are stored untyped; TypedDataView
pairs one sample with the subscription's format for decoding. Views borrow
the sample bytes and the format, so they are valid only while the container
is.
*/

////////////////////////////////////////////////////////////////////////////////

// Subscription is one logged time series: the add-logged-message record
// that opened it, the format it is typed by, and its samples in file order.
type Subscription struct {
	addLogged record.AddLoggedMessage
	format    *schema.MessageFormat
	samples   []record.Data
}

// AddLoggedMessage returns the record that opened the subscription.
func (s *Subscription) AddLoggedMessage() record.AddLoggedMessage {
	return s.addLogged
}

// Format returns the subscribed format.
func (s *Subscription) Format() *schema.MessageFormat {
	return s.format
}

// RawSamples returns the accumulated samples.
func (s *Subscription) RawSamples() []record.Data {
	return s.samples
}

// Size returns the number of samples.
func (s *Subscription) Size() int {
	return len(s.samples)
}

// Field returns a field of the subscribed format by name.
func (s *Subscription) Field(name string) (*schema.Field, error) {
	return s.format.Field(name)
}

// FieldNames returns the field names of the subscribed format in order.
func (s *Subscription) FieldNames() []string {
	return s.format.FieldNames()
}

// At returns a typed view of the nth sample.
func (s *Subscription) At(n int) (TypedDataView, error) {
	if n < 0 || n >= len(s.samples) {
		return TypedDataView{}, ulog.Accessf("sample index out of range: %d", n)
	}
	return TypedDataView{data: s.samples[n], format: s.format}, nil
}

func (s *Subscription) append(data record.Data) {
	s.samples = append(s.samples, data)
}

// TypedDataView pairs one raw sample with its format, decoding fields on
// demand. It is a short-lived accessor; it holds references into the
// container's storage.
type TypedDataView struct {
	data   record.Data
	format *schema.MessageFormat
}

// Name returns the name of the format the sample is typed by.
func (v TypedDataView) Name() string {
	return v.format.Name()
}

// Format returns the underlying format.
func (v TypedDataView) Format() *schema.MessageFormat {
	return v.format
}

// RawData returns the raw sample bytes.
func (v TypedDataView) RawData() []byte {
	return v.data.Data
}

// HasField reports whether the format has a resolved field of that name.
func (v TypedDataView) HasField(name string) bool {
	return v.format.HasField(name)
}

// Value returns a typed value view of the named field. Lookup failures
// surface at the value's terminal call.
func (v TypedDataView) Value(name string) value.Value {
	field, err := v.format.Field(name)
	if err != nil {
		return value.Invalid(err)
	}
	return v.ValueRef(field)
}

// ValueRef returns a typed value view using a field handle.
func (v TypedDataView) ValueRef(field *schema.Field) value.Value {
	if !field.Resolved() {
		return value.Invalid(ulog.Parsef("field %s is not resolved", field.Name))
	}
	return value.New(field, v.data.Data)
}
