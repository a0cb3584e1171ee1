package container

import (
	"github.com/wkalt/ulog"
	"github.com/wkalt/ulog/record"
	"github.com/wkalt/ulog/schema"
	"github.com/wkalt/ulog/util"
)

/*
DataContainer is the standard reader.Handler: it accumulates everything the
stream dispatches and serves queries over the result. During parsing it is
append-only; once the header section ends it resolves every format (wiring
nested references and assigning field offsets) and from then on new formats
are rejected. Callers treat it as read-only.

With StorageHeader the container keeps only header-derived state - formats,
info, initial and default parameters - and discards the data section as it
streams past, which is how log metadata is inspected without holding the
log in memory.

Record-level invariant violations (duplicate formats, duplicate message
IDs, subscriptions to unknown formats, continued info-multi records with no
predecessor) are returned as parse errors; the reader reports them as
recoverable stream errors, so they also land in ParsingErrors.
*/

////////////////////////////////////////////////////////////////////////////////

// StorageConfig selects how much of the stream the container retains.
type StorageConfig int

const (
	// StorageHeader keeps only the header section in memory.
	StorageHeader StorageConfig = iota
	// StorageFullLog keeps the entire log in memory.
	StorageFullLog
)

// NameAndMultiID identifies a subscription by format name and instance.
type NameAndMultiID struct {
	Name    string
	MultiID uint8
}

// DataContainer accumulates parsed records and indexes subscriptions.
type DataContainer struct {
	storageConfig StorageConfig

	headerComplete bool
	hadFatalError  bool
	parsingErrors  []string

	fileHeader        record.FileHeader
	messageInfo       map[string]record.MessageInfo
	messageInfoMulti  map[string][][]record.MessageInfo
	messageFormats    map[string]*schema.MessageFormat
	initialParameters map[string]record.Parameter
	defaultParameters map[string]record.ParameterDefault
	changedParameters []record.Parameter

	subsByMsgID map[uint16]*Subscription
	subsByName  map[NameAndMultiID]*Subscription

	logging  []record.Logging
	dropouts []record.Dropout
	syncs    []record.Sync
}

// New returns an empty container with the given storage configuration.
func New(storageConfig StorageConfig) *DataContainer {
	return &DataContainer{
		storageConfig:     storageConfig,
		messageInfo:       make(map[string]record.MessageInfo),
		messageInfoMulti:  make(map[string][][]record.MessageInfo),
		messageFormats:    make(map[string]*schema.MessageFormat),
		initialParameters: make(map[string]record.Parameter),
		defaultParameters: make(map[string]record.ParameterDefault),
		subsByMsgID:       make(map[uint16]*Subscription),
		subsByName:        make(map[NameAndMultiID]*Subscription),
	}
}

////////////////////////////////////////////////////////////////////////////////
// reader.Handler implementation

// Error records a stream error. A non-recoverable error latches the fatal
// flag.
func (c *DataContainer) Error(msg string, recoverable bool) {
	if !recoverable {
		c.hadFatalError = true
	}
	c.parsingErrors = append(c.parsingErrors, msg)
}

// HeaderComplete marks the end of the header section and resolves every
// format against the registry, along with the key fields of info and
// parameter records received so far. Individual resolution failures are
// recorded and do not stop the remaining formats from resolving.
func (c *DataContainer) HeaderComplete() error {
	c.headerComplete = true
	for _, name := range util.Okeys(c.messageFormats) {
		if err := c.messageFormats[name].Resolve(c.messageFormats); err != nil {
			c.Error(err.Error(), true)
		}
	}
	for _, m := range c.messageInfo {
		c.resolveKeyField(m.Field)
	}
	for _, lists := range c.messageInfoMulti {
		for _, list := range lists {
			for _, m := range list {
				c.resolveKeyField(m.Field)
			}
		}
	}
	for _, p := range c.initialParameters {
		c.resolveKeyField(p.Field)
	}
	for _, p := range c.defaultParameters {
		c.resolveKeyField(p.Field)
	}
	return nil
}

// resolveKeyField resolves a single-field key at offset zero, recording a
// recoverable error when the key references something unknown.
func (c *DataContainer) resolveKeyField(f *schema.Field) {
	if err := f.Resolve(c.messageFormats, 0); err != nil {
		c.Error(err.Error(), true)
	}
}

// FileHeader stores the file header.
func (c *DataContainer) FileHeader(h record.FileHeader) error {
	c.fileHeader = h
	return nil
}

// MessageInfo stores an info record. Continued info-multi records extend
// the most recent list entry for their key.
func (c *DataContainer) MessageInfo(m record.MessageInfo) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	if c.headerComplete {
		if err := m.Field.Resolve(c.messageFormats, 0); err != nil {
			return err
		}
	}
	if m.IsMulti {
		key := m.Key()
		if m.Continued {
			lists := c.messageInfoMulti[key]
			if len(lists) == 0 {
				return ulog.Parsef("continued info-multi message without predecessor: %s", key)
			}
			lists[len(lists)-1] = append(lists[len(lists)-1], m)
			return nil
		}
		c.messageInfoMulti[key] = append(c.messageInfoMulti[key], []record.MessageInfo{m})
		return nil
	}
	c.messageInfo[m.Key()] = m
	return nil
}

// MessageFormat registers a format. Formats only occur in the header
// section; duplicates and post-header formats are malformed.
func (c *DataContainer) MessageFormat(f *schema.MessageFormat) error {
	if c.headerComplete {
		return ulog.Parsef("message format after end of header: %s", f.Name())
	}
	if _, ok := c.messageFormats[f.Name()]; ok {
		return ulog.Parsef("duplicate message format: %s", f.Name())
	}
	c.messageFormats[f.Name()] = f
	return nil
}

// Parameter stores a parameter record: initial values before the header
// ends (last write wins), changes afterwards.
func (c *DataContainer) Parameter(p record.Parameter) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	if c.headerComplete {
		if err := p.Field.Resolve(c.messageFormats, 0); err != nil {
			return err
		}
		c.changedParameters = append(c.changedParameters, p)
		return nil
	}
	c.initialParameters[p.Key()] = p
	return nil
}

// ParameterDefault stores a default parameter value, keyed by name.
func (c *DataContainer) ParameterDefault(p record.ParameterDefault) error {
	if c.headerComplete {
		if err := p.Field.Resolve(c.messageFormats, 0); err != nil {
			return err
		}
	}
	c.defaultParameters[p.Key()] = p
	return nil
}

// AddLoggedMessage opens a subscription for a message ID, indexed both by
// ID and by (name, multi ID).
func (c *DataContainer) AddLoggedMessage(a record.AddLoggedMessage) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	if _, ok := c.subsByMsgID[a.MsgID]; ok {
		return ulog.Parsef("duplicate message ID in add logged message: %d", a.MsgID)
	}
	format, ok := c.messageFormats[a.MessageName]
	if !ok {
		return ulog.Parsef("add logged message for unknown format: %s", a.MessageName)
	}
	if len(format.Fields()) == 0 {
		return ulog.Parsef("add logged message for empty format: %s", a.MessageName)
	}
	sub := &Subscription{addLogged: a, format: format}
	c.subsByMsgID[a.MsgID] = sub
	c.subsByName[NameAndMultiID{Name: a.MessageName, MultiID: a.MultiID}] = sub
	return nil
}

// Logging appends a log line.
func (c *DataContainer) Logging(l record.Logging) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	c.logging = append(c.logging, l)
	return nil
}

// Data appends a sample to its subscription. The payload may be shorter
// than the subscribed format; bounds are enforced per field access.
func (c *DataContainer) Data(d record.Data) error {
	if c.storageConfig == StorageHeader {
		return nil
	}
	sub, ok := c.subsByMsgID[d.MsgID]
	if !ok {
		return ulog.Parsef("data message for unknown message ID: %d", d.MsgID)
	}
	sub.append(d)
	return nil
}

// Dropout appends a dropout marker.
func (c *DataContainer) Dropout(d record.Dropout) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	c.dropouts = append(c.dropouts, d)
	return nil
}

// Sync appends a sync marker.
func (c *DataContainer) Sync(s record.Sync) error {
	if c.headerComplete && c.storageConfig == StorageHeader {
		return nil
	}
	c.syncs = append(c.syncs, s)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// queries

// IsHeaderComplete reports whether the header section has ended.
func (c *DataContainer) IsHeaderComplete() bool {
	return c.headerComplete
}

// HadFatalError reports whether a non-recoverable stream error occurred.
func (c *DataContainer) HadFatalError() bool {
	return c.hadFatalError
}

// ParsingErrors returns every stream error reported during parsing.
func (c *DataContainer) ParsingErrors() []string {
	return c.parsingErrors
}

// GetFileHeader returns the file header.
func (c *DataContainer) GetFileHeader() record.FileHeader {
	return c.fileHeader
}

// MessageInfos returns the info records by key.
func (c *DataContainer) MessageInfos() map[string]record.MessageInfo {
	return c.messageInfo
}

// MessageInfoMulti returns the list-valued info records by key. Each key
// holds one list per uncontinued start record, in file order, with
// continuation records appended to their list.
func (c *DataContainer) MessageInfoMulti() map[string][][]record.MessageInfo {
	return c.messageInfoMulti
}

// MessageFormats returns the format registry.
func (c *DataContainer) MessageFormats() map[string]*schema.MessageFormat {
	return c.messageFormats
}

// InitialParameters returns the parameter values seen before the header
// ended.
func (c *DataContainer) InitialParameters() map[string]record.Parameter {
	return c.initialParameters
}

// DefaultParameters returns the default parameter values by name.
func (c *DataContainer) DefaultParameters() map[string]record.ParameterDefault {
	return c.defaultParameters
}

// ChangedParameters returns parameter changes from the data section, in
// file order.
func (c *DataContainer) ChangedParameters() []record.Parameter {
	return c.changedParameters
}

// LogMessages returns the logging records in file order.
func (c *DataContainer) LogMessages() []record.Logging {
	return c.logging
}

// Dropouts returns the dropout records in file order.
func (c *DataContainer) Dropouts() []record.Dropout {
	return c.dropouts
}

// Syncs returns the sync records in file order.
func (c *DataContainer) Syncs() []record.Sync {
	return c.syncs
}

// SubscriptionsByMessageID returns the subscription index keyed by message
// ID.
func (c *DataContainer) SubscriptionsByMessageID() map[uint16]*Subscription {
	return c.subsByMsgID
}

// SubscriptionsByNameAndMultiID returns the subscription index keyed by
// format name and instance.
func (c *DataContainer) SubscriptionsByNameAndMultiID() map[NameAndMultiID]*Subscription {
	return c.subsByName
}

// Subscription returns the subscription for a format name and instance.
func (c *DataContainer) Subscription(name string, multiID uint8) (*Subscription, error) {
	sub, ok := c.subsByName[NameAndMultiID{Name: name, MultiID: multiID}]
	if !ok {
		return nil, ulog.Accessf("subscription not found: %s", name)
	}
	return sub, nil
}

// SubscriptionNames returns the distinct subscribed format names, sorted.
func (c *DataContainer) SubscriptionNames() []string {
	seen := make(map[string]struct{}, len(c.subsByName))
	for key := range c.subsByName {
		seen[key.Name] = struct{}{}
	}
	return util.Okeys(seen)
}
