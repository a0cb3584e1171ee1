package ulog

import (
	"errors"
	"fmt"
)

/*
The library distinguishes three failure families. Stream-level code (the
reader) inspects these with errors.Is to decide whether a failure is a
recoverable stream problem or a caller mistake.

  - ErrParse: the byte stream or a record within it is malformed, either
    during deserialization or serialization. Recoverable at stream level.
  - ErrUsage: the API was called in the wrong order or with invalid
    arguments. Always surfaced to the caller.
  - ErrAccess: a typed-view lookup failed - unknown field, index out of
    range, or an impossible conversion.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrParse is the root of all stream parse/serialize errors.
var ErrParse = errors.New("parse error")

// ErrUsage is the root of all API misuse errors.
var ErrUsage = errors.New("usage error")

// ErrAccess is the root of all typed-access errors.
var ErrAccess = errors.New("access error")

// Parsef returns an error wrapping ErrParse.
func Parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Usagef returns an error wrapping ErrUsage.
func Usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// Accessf returns an error wrapping ErrAccess.
func Accessf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAccess, fmt.Sprintf(format, args...))
}
