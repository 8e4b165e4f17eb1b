// Package errors provides structured error reporting for the bridge.
//
// Errors that can be returned to a caller travel as ordinary Go errors and
// become channel replies. Errors that have nowhere to go (a failed snapshot
// write, an event that could not be sent, a panic on a callback goroutine)
// are handed to Report, which forwards them to the installed ErrorHandler.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies where a reported error came from.
type ErrorKind int

const (
	// KindPlatform is a channel or transport failure.
	KindPlatform ErrorKind = iota + 1
	// KindIO is a file write or read failure.
	KindIO
	// KindInvariant is a broken bridge invariant, such as a request
	// resolved twice.
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindIO:
		return "io"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// BridgeError is an error with no reply path.
type BridgeError struct {
	// Op names the failing operation, e.g. "maps.snapshot".
	Op      string
	Kind    ErrorKind
	Err     error
	Channel string
	// StackTrace is filled by Report when empty.
	StackTrace string
	Timestamp  time.Time
}

func (e *BridgeError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// PanicError is a recovered panic.
type PanicError struct {
	Op         string
	Value      any
	StackTrace string
	Timestamp  time.Time
}

func (e *PanicError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// ErrorHandler receives reported errors. Implementations must be safe for
// concurrent use; reports arrive from background jobs too.
type ErrorHandler interface {
	HandleError(err *BridgeError)
	HandlePanic(err *PanicError)
}
