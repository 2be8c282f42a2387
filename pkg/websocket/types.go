package websocket

import "time"

// MessageType represents a WebSocket message type.
// Values match RFC 6455 opcodes where applicable.
type MessageType uint8

const (
	// MessageText is a text data frame.
	MessageText MessageType = 1
	// MessageBinary is a binary data frame.
	MessageBinary MessageType = 2
	// MessageClose is a close control frame.
	MessageClose MessageType = 8
	// MessagePing is a ping control frame.
	MessagePing MessageType = 9
	// MessagePong is a pong control frame.
	MessagePong MessageType = 10
)

// IsData reports whether the message carries application payload.
func (t MessageType) IsData() bool {
	return t == MessageText || t == MessageBinary
}

// CloseCode is a WebSocket close code.
type CloseCode uint16

const (
	// CloseNormal indicates a normal closure.
	CloseNormal CloseCode = 1000
	// CloseGoingAway indicates the client is shutting down.
	CloseGoingAway CloseCode = 1001
)

// Backoff defines the wait between reconnect attempts.
//
// With Max <= Delay every attempt waits exactly Delay.
type Backoff struct {
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Max caps the grown delay. Growth is disabled when Max <= Delay.
	Max time.Duration
	// Factor multiplies the delay for each retry attempt. Optional; default 2.
	Factor float64
	// Jitter adds randomization as a fraction of the delay (0-1).
	Jitter float64
}
