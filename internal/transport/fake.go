// Package transport provides an in-memory Session used by tests across
// packages.
package transport

import (
	"context"
	"sync"
)

// FakeSession is an in-memory Session implementation. Tests feed inbound
// text with Deliver and inspect published payloads with Published.
type FakeSession struct {
	Room  string
	Meta  string
	Attrs map[string]string

	mu        sync.Mutex
	published [][]byte
	texts     chan InboundText
	closed    bool
}

// NewFakeSession creates a fake session for the given room.
func NewFakeSession(room string) *FakeSession {
	return &FakeSession{
		Room:  room,
		Attrs: make(map[string]string),
		texts: make(chan InboundText, 32),
	}
}

// RoomName implements Session.
func (f *FakeSession) RoomName() string { return f.Room }

// Metadata implements Session.
func (f *FakeSession) Metadata() string { return f.Meta }

// ParticipantAttributes implements Session.
func (f *FakeSession) ParticipantAttributes() map[string]string { return f.Attrs }

// TextMessages implements Session.
func (f *FakeSession) TextMessages() <-chan InboundText { return f.texts }

// PublishData implements Session.
func (f *FakeSession) PublishData(ctx context.Context, payload []byte, reliable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, append([]byte(nil), payload...))
	return nil
}

// Close implements Session.
func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.texts)
	}
	return nil
}

// Deliver injects an inbound text event as if the participant had spoken.
func (f *FakeSession) Deliver(participant, text string) {
	f.texts <- InboundText{Participant: participant, Text: text}
}

// Published returns a copy of every payload published so far.
func (f *FakeSession) Published() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.published))
	copy(out, f.published)
	return out
}
