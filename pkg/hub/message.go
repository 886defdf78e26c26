// Package hub is a channel-based websocket broadcast fan-out. One hub per
// topic; slow clients are dropped instead of stalling the publisher.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	// JSONMessage carries pre-encoded JSON in a text frame.
	JSONMessage MessageType = iota
	// BinaryMessage carries raw bytes, e.g. JPEG frames.
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}
