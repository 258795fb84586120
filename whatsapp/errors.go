package whatsapp

import "errors"

var (
	// ErrConnectionTimeout means a session acquisition exceeded its ceiling.
	ErrConnectionTimeout = errors.New("timed out waiting for WhatsApp connection")

	// ErrSessionExpired means the device was logged out or rejected and the
	// credentials were wiped. A new pairing is required.
	ErrSessionExpired = errors.New("WhatsApp session expired or logged out")

	// ErrReconnectExhausted means the reconnect attempt budget was spent.
	ErrReconnectExhausted = errors.New("maximum reconnection attempts reached")
)
