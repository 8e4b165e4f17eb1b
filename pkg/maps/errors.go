package maps

import (
	"errors"

	"github.com/go-drift/mapbridge/pkg/platform"
)

// Errors returned by map commands.
var (
	// ErrUnknownIdentifier indicates an update targeted a missing entity.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrDuplicateIdentifier indicates a minted id collided with a live one.
	// It signals a bug, not bad input.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrViewNotReady indicates the command needs the native map, which has
	// not been delivered yet. Callers should wait with map#waitForMap.
	ErrViewNotReady = errors.New("map view not ready")

	// ErrDisposed indicates the controller has been disposed.
	ErrDisposed = errors.New("map controller disposed")
)

// replyCode maps an error to the code sent to the caller.
func replyCode(err error) string {
	var ce *platform.ChannelError
	switch {
	case errors.As(err, &ce):
		return ce.Code
	case errors.Is(err, ErrUnknownIdentifier):
		return platform.CodeUnknownIdentifier
	case errors.Is(err, ErrDuplicateIdentifier):
		return platform.CodeDuplicateIdentifier
	case errors.Is(err, ErrViewNotReady):
		return platform.CodeViewNotReady
	case errors.Is(err, platform.ErrInvalidArguments):
		return platform.CodeInvalidArgument
	default:
		return platform.CodeInternal
	}
}
