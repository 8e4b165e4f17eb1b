package platform

import (
	"fmt"
	"sync"

	"github.com/go-drift/mapbridge/pkg/errors"
)

// channelRegistry manages all registered method channels.
type channelRegistry struct {
	methodChannels map[string]*MethodChannel
	mu             sync.RWMutex
}

var registry = &channelRegistry{
	methodChannels: make(map[string]*MethodChannel),
}

func (r *channelRegistry) registerMethod(name string, ch *MethodChannel) {
	r.mu.Lock()
	r.methodChannels[name] = ch
	r.mu.Unlock()
}

// unregisterMethod removes name only if it still maps to ch, so a channel
// re-created under the same name is not dropped by a late Close.
func (r *channelRegistry) unregisterMethod(name string, ch *MethodChannel) {
	r.mu.Lock()
	if r.methodChannels[name] == ch {
		delete(r.methodChannels, name)
	}
	r.mu.Unlock()
}

func (r *channelRegistry) getMethodChannel(name string) *MethodChannel {
	r.mu.RLock()
	ch := r.methodChannels[name]
	r.mu.RUnlock()
	return ch
}

// Messenger delivers outbound messages to the remote caller.
type Messenger interface {
	// Send delivers a fire-and-forget method invocation. It must not block
	// waiting for the remote side to handle the message.
	Send(channel, method string, args []byte) error
}

var (
	messengerMu sync.RWMutex
	messenger   Messenger
)

// SetMessenger installs the transport used for outbound messages.
// Called by the embedding host during initialization.
func SetMessenger(m Messenger) {
	messengerMu.Lock()
	messenger = m
	messengerMu.Unlock()
}

func currentMessenger() Messenger {
	messengerMu.RLock()
	defer messengerMu.RUnlock()
	return messenger
}

// sendMessage encodes args and sends them through the messenger.
func sendMessage(codec MessageCodec, channel, method string, args any) error {
	m := currentMessenger()
	if m == nil {
		return ErrNotConnected
	}
	data, err := codec.Encode(args)
	if err != nil {
		return err
	}
	return m.Send(channel, method, data)
}

// HandleMethodCall is called by the transport when the remote caller invokes
// a method. reply receives exactly one encoded envelope: a success, an error,
// or not-implemented. It may be called after HandleMethodCall returns.
func HandleMethodCall(channel, method string, argsData []byte, reply func([]byte)) {
	result := newOnceResult(DefaultCodec, channel, method, reply)

	ch := registry.getMethodChannel(channel)
	if ch == nil {
		errors.Report(&errors.BridgeError{
			Op:      "platform.HandleMethodCall",
			Kind:    errors.KindPlatform,
			Channel: channel,
			Err:     fmt.Errorf("%w: %s", ErrChannelNotFound, channel),
		})
		result.NotImplemented()
		return
	}

	args, err := ch.codec.Decode(argsData)
	if err != nil {
		result.Error(CodeInvalidArgument, fmt.Sprintf("malformed arguments: %v", err), nil)
		return
	}

	ch.handleCall(MethodCall{Method: method, Arguments: args}, result)
}

// ResetForTest clears all global platform state for test isolation.
// This should only be called from tests.
func ResetForTest() {
	SetMessenger(nil)

	registry.mu.Lock()
	registry.methodChannels = make(map[string]*MethodChannel)
	registry.mu.Unlock()

	platformViewRegistryMu.Lock()
	platformViewRegistry = nil
	platformViewRegistryMu.Unlock()
}
