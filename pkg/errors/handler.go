package errors

import (
	"runtime/debug"
	"sync"
	"time"
)

var (
	handlerMu sync.RWMutex
	handler   ErrorHandler = &LogHandler{}
)

// SetHandler installs h and returns the handler it replaced. Nil restores
// a LogHandler writing to the default logger.
func SetHandler(h ErrorHandler) (previous ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	defer handlerMu.Unlock()
	previous, handler = handler, h
	return previous
}

// Handler returns the installed handler.
func Handler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return handler
}

// Report stamps err with the time and the reporting stack and hands it to
// the installed handler.
func Report(err *BridgeError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if err.StackTrace == "" {
		err.StackTrace = string(debug.Stack())
	}
	Handler().HandleError(err)
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandlePanic(err)
}

// Recorder is an ErrorHandler that keeps every report. Tests install it
// with SetHandler.
type Recorder struct {
	mu     sync.Mutex
	errors []*BridgeError
	panics []*PanicError
}

func (r *Recorder) HandleError(err *BridgeError) {
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.mu.Unlock()
}

func (r *Recorder) HandlePanic(err *PanicError) {
	r.mu.Lock()
	r.panics = append(r.panics, err)
	r.mu.Unlock()
}

// Errors returns the reported errors in order.
func (r *Recorder) Errors() []*BridgeError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*BridgeError(nil), r.errors...)
}

// Panics returns the reported panics in order.
func (r *Recorder) Panics() []*PanicError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*PanicError(nil), r.panics...)
}
