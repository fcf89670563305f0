// Package transport defines the contract with the real-time room transport
// and provides a websocket client implementation for it.
package transport

import "context"

// InboundText is one text event received from a room participant.
type InboundText struct {
	Participant string `json:"participant"`
	Text        string `json:"text"`
}

// Session exposes the slice of the room transport the agent depends on:
// room identity, metadata, inbound text events, and an out-of-band data
// channel for structured notifications. The media pipeline stays on the
// other side of this interface.
type Session interface {
	// RoomName returns the stable room identifier for this session.
	RoomName() string

	// Metadata returns the raw room metadata, possibly JSON-encoded.
	Metadata() string

	// ParticipantAttributes returns the attributes of the remote participant.
	ParticipantAttributes() map[string]string

	// TextMessages returns the stream of inbound text events. The channel is
	// closed when the room ends.
	TextMessages() <-chan InboundText

	// PublishData sends a structured payload on the room's data channel.
	PublishData(ctx context.Context, payload []byte, reliable bool) error

	// Close leaves the room and releases resources.
	Close() error
}

// DataPublisher is the narrow publish-only view of a Session used by
// components that only emit notifications.
type DataPublisher interface {
	PublishData(ctx context.Context, payload []byte, reliable bool) error
}
