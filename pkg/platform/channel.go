package platform

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"

	"github.com/go-drift/mapbridge/pkg/errors"
)

// MethodCall is a single incoming request.
type MethodCall struct {
	Method    string
	Arguments any
}

// ArgumentMap returns the arguments as a map, or nil when they are not one.
func (c MethodCall) ArgumentMap() map[string]any {
	m, _ := AsMap(c.Arguments)
	return m
}

// Argument returns a single named argument, or nil.
func (c MethodCall) Argument(key string) any {
	return c.ArgumentMap()[key]
}

// Result receives the outcome of a MethodCall. Exactly one of its methods
// must be called, exactly once, possibly after the handler has returned.
type Result interface {
	Success(value any)
	Error(code, message string, details any)
	NotImplemented()
}

// ErrorFrom resolves result with the code and message of err. A *ChannelError
// keeps its own code; anything else is reported as Internal.
func ErrorFrom(result Result, err error) {
	if ce, ok := err.(*ChannelError); ok {
		result.Error(ce.Code, ce.Message, ce.Details)
		return
	}
	result.Error(CodeInternal, err.Error(), nil)
}

// MethodCallHandler handles incoming method calls on a channel.
type MethodCallHandler func(call MethodCall, result Result)

// MethodChannel provides request/reply communication with the remote caller
// and fire-and-forget invocations in the other direction.
type MethodChannel struct {
	name    string
	codec   MessageCodec
	mu      sync.RWMutex
	handler MethodCallHandler
	closed  atomic.Bool
}

// NewMethodChannel creates a new method channel with the given name and
// registers it so HandleMethodCall can route to it.
func NewMethodChannel(name string) *MethodChannel {
	ch := &MethodChannel{
		name:  name,
		codec: DefaultCodec,
	}
	registry.registerMethod(name, ch)
	return ch
}

// Name returns the channel name.
func (c *MethodChannel) Name() string {
	return c.name
}

// SetHandler sets the handler for incoming method calls. A nil handler makes
// every call resolve as not implemented.
func (c *MethodChannel) SetHandler(handler MethodCallHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// InvokeMethod sends a method invocation to the remote caller without
// waiting for a reply.
func (c *MethodChannel) InvokeMethod(method string, args any) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return sendMessage(c.codec, c.name, method, args)
}

// Close clears the handler and unregisters the channel. Later calls routed
// to this name resolve as not implemented.
func (c *MethodChannel) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.SetHandler(nil)
	registry.unregisterMethod(c.name, c)
}

// handleCall processes an incoming method call. A panicking handler is
// reported and resolves the call with an Internal error if it has not been
// resolved yet.
func (c *MethodChannel) handleCall(call MethodCall, result Result) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler == nil {
		result.NotImplemented()
		return
	}

	var pc panics.Catcher
	pc.Try(func() { handler(call, result) })
	r := pc.Recovered()
	if r == nil {
		return
	}
	errors.ReportPanic(&errors.PanicError{
		Op:         "platform." + c.name + "." + call.Method,
		Value:      r.Value,
		StackTrace: string(r.Stack),
	})
	if or, ok := result.(*onceResult); ok && or.resolved.Load() {
		return
	}
	result.Error(CodeInternal, fmt.Sprint(r.Value), nil)
}

// onceResult encodes a single reply envelope and hands it to reply. Any
// resolution after the first is reported and dropped.
type onceResult struct {
	channel  string
	method   string
	codec    MessageCodec
	reply    func([]byte)
	resolved atomic.Bool
}

func newOnceResult(codec MessageCodec, channel, method string, reply func([]byte)) *onceResult {
	return &onceResult{channel: channel, method: method, codec: codec, reply: reply}
}

func (r *onceResult) claim() bool {
	if r.resolved.CompareAndSwap(false, true) {
		return true
	}
	errors.Report(&errors.BridgeError{
		Op:      "platform.reply",
		Kind:    errors.KindInvariant,
		Channel: r.channel,
		Err:     fmt.Errorf("method %q resolved more than once", r.method),
	})
	return false
}

func (r *onceResult) send(data []byte, err error) {
	if err != nil {
		errors.Report(&errors.BridgeError{
			Op:      "platform.reply",
			Kind:    errors.KindPlatform,
			Channel: r.channel,
			Err:     fmt.Errorf("encode reply for %q: %w", r.method, err),
		})
		data, _ = encodeError(r.codec, CodeInternal, err.Error(), nil)
	}
	if r.reply != nil {
		r.reply(data)
	}
}

func (r *onceResult) Success(value any) {
	if !r.claim() {
		return
	}
	r.send(encodeSuccess(r.codec, value))
}

func (r *onceResult) Error(code, message string, details any) {
	if !r.claim() {
		return
	}
	r.send(encodeError(r.codec, code, message, details))
}

func (r *onceResult) NotImplemented() {
	if !r.claim() {
		return
	}
	r.send(encodeNotImplemented(r.codec))
}
