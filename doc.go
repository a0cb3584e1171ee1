/*
Package ulog is a reader and writer for the ULog logging format used by
flight controllers. A ULog file is self-describing: message layouts are
declared in the file header as text format definitions, subscriptions bind
runtime message IDs to those layouts, and data records carry raw
little-endian samples that are decoded on demand against the declared
layout.

The packages underneath split the work up:

  - schema: format definitions, field type resolution, offset assignment
  - value: typed on-demand decoding of raw sample bytes
  - record: the wire-level record model, parse and serialize per kind
  - reader: chunked streaming parser with corruption recovery
  - container: in-memory log representation with subscription indexes
  - writer: low-level serializer and a validating high-level writer

This root package holds only the error taxonomy shared by all of them.
*/
package ulog
