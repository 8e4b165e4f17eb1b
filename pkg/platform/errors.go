package platform

import "errors"

// Sentinel errors for platform operations.
var (
	// ErrClosed is returned when operating on a channel that has been unregistered.
	ErrClosed = errors.New("platform: channel closed")

	// ErrNotConnected is returned when no Messenger is installed.
	ErrNotConnected = errors.New("platform: not connected")

	// ErrHostDestroyed is returned when attaching to a host that is already destroyed.
	ErrHostDestroyed = errors.New("platform: host destroyed")

	// ErrUnknownPhase is returned for a host phase outside the known set.
	ErrUnknownPhase = errors.New("platform: unknown host phase")
)

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
