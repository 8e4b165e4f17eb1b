// Package platform provides the channel layer between the bridge and its remote
// caller. Requests arrive as method calls on named channels and are answered
// exactly once through a Result; outbound events are fire-and-forget method
// invocations sent through the installed Messenger. The package also carries
// the platform view registry that creates embedded views on request and the
// observable host lifecycle those views synchronize with.
package platform

import (
	"encoding/json"
	"errors"
)

// MessageCodec encodes and decodes messages for channel communication.
type MessageCodec interface {
	// Encode converts a Go value to bytes for transmission.
	Encode(value any) ([]byte, error)

	// Decode converts received bytes to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DecodeInto deserializes JSON bytes into a specific type.
func (c JsonCodec) DecodeInto(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DefaultCodec is the codec used by channels.
var DefaultCodec MessageCodec = JsonCodec{}

// Standard errors for channel operations.
var (
	// ErrChannelNotFound indicates the requested channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMethodNotFound indicates the method is not implemented by the handler.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to the method were invalid.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrViewTypeNotFound indicates the platform view type is not registered.
	ErrViewTypeNotFound = errors.New("platform view type not registered")

	// ErrViewNotFound indicates no live platform view has the requested id.
	ErrViewNotFound = errors.New("platform view not found")
)

// Error codes carried by error replies.
const (
	CodeInvalidArgument     = "InvalidArgument"
	CodeUnknownIdentifier   = "UnknownIdentifier"
	CodeDuplicateIdentifier = "DuplicateIdentifier"
	CodeRecognitionFailure  = "RecognitionFailure"
	CodeIOFailure           = "IOFailure"
	CodeViewNotReady        = "ViewNotReady"
	CodeInternal            = "Internal"
)

// ChannelError represents an error reply.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a new ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}

// NewChannelErrorWithDetails creates a new ChannelError with additional details.
func NewChannelErrorWithDetails(code, message string, details any) *ChannelError {
	return &ChannelError{Code: code, Message: message, Details: details}
}

// Reply is the decoded form of a reply envelope.
type Reply struct {
	Result         any    `json:"result,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	ErrorDetails   any    `json:"errorDetails,omitempty"`
	NotImplemented bool   `json:"notImplemented,omitempty"`
}

// IsError reports whether the reply carries an error.
func (r Reply) IsError() bool {
	return r.ErrorCode != ""
}

// encodeSuccess builds {"result": value}. The key is always present so a
// null result is distinguishable from an empty envelope.
func encodeSuccess(codec MessageCodec, value any) ([]byte, error) {
	return codec.Encode(map[string]any{"result": value})
}

func encodeError(codec MessageCodec, code, message string, details any) ([]byte, error) {
	env := map[string]any{
		"errorCode":    code,
		"errorMessage": message,
	}
	if details != nil {
		env["errorDetails"] = details
	}
	return codec.Encode(env)
}

func encodeNotImplemented(codec MessageCodec) ([]byte, error) {
	return codec.Encode(map[string]any{"notImplemented": true})
}

// DecodeReply parses a reply envelope produced by HandleMethodCall.
func DecodeReply(data []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return Reply{}, err
	}
	return r, nil
}
