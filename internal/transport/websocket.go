// Package transport provides the websocket room client.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Wire envelope types exchanged with the room server.
const (
	envelopeJoin     = "join"
	envelopeMetadata = "room_metadata"
	envelopeText     = "user_text"
	envelopeData     = "data"
	envelopeLeave    = "leave"
)

const writeTimeout = 5 * time.Second

// envelope is the framing for all messages on the room socket.
type envelope struct {
	Type        string            `json:"type"`
	Room        string            `json:"room,omitempty"`
	Token       string            `json:"token,omitempty"`
	Metadata    string            `json:"metadata,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Participant string            `json:"participant,omitempty"`
	Text        string            `json:"text,omitempty"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
	Reliable    bool              `json:"reliable,omitempty"`
}

// WSSession is a Session backed by a websocket connection to the room
// server.
type WSSession struct {
	conn     *websocket.Conn
	roomName string

	mu         sync.RWMutex
	metadata   string
	attributes map[string]string

	texts     chan InboundText
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial joins a room on the given server. The initial join acknowledgement
// carries the room metadata and participant attributes; Dial blocks until it
// arrives or the context expires.
func Dial(ctx context.Context, serverURL, roomName, token string) (*WSSession, error) {
	dialer := *websocket.DefaultDialer
	conn, resp, err := dialer.DialContext(ctx, serverURL, http.Header{})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial room server: %w", err)
	}

	s := &WSSession{
		conn:       conn,
		roomName:   roomName,
		attributes: make(map[string]string),
		texts:      make(chan InboundText, 16),
	}

	join := envelope{Type: envelopeJoin, Room: roomName, Token: token}
	if err := s.write(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to join room %s: %w", roomName, err)
	}

	// The server answers the join with a room_metadata envelope before any
	// text events flow.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	var ack envelope
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read join acknowledgement: %w", err)
	}
	conn.SetReadDeadline(time.Time{})
	if ack.Type == envelopeMetadata {
		s.metadata = ack.Metadata
		if ack.Attributes != nil {
			s.attributes = ack.Attributes
		}
	} else {
		slog.Warn("transport.Dial: unexpected first envelope", "room", roomName, "type", ack.Type)
	}

	go s.readLoop()
	slog.Info("transport.Dial: joined room", "room", roomName, "metadata_set", s.metadata != "")
	return s, nil
}

// readLoop consumes envelopes until the connection closes.
func (s *WSSession) readLoop() {
	defer close(s.texts)
	for {
		var env envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("transport.WSSession: room closed", "room", s.roomName)
			} else {
				slog.Warn("transport.WSSession: read failed", "room", s.roomName, "error", err)
			}
			return
		}
		switch env.Type {
		case envelopeText:
			s.texts <- InboundText{Participant: env.Participant, Text: env.Text}
		case envelopeMetadata:
			s.mu.Lock()
			s.metadata = env.Metadata
			if env.Attributes != nil {
				s.attributes = env.Attributes
			}
			s.mu.Unlock()
			slog.Debug("transport.WSSession: metadata updated", "room", s.roomName)
		case envelopeLeave:
			slog.Debug("transport.WSSession: remote participant left", "room", s.roomName, "participant", env.Participant)
			return
		default:
			slog.Debug("transport.WSSession: ignoring envelope", "room", s.roomName, "type", env.Type)
		}
	}
}

// write sends an envelope with a bounded deadline.
func (s *WSSession) write(env envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(env)
}

// RoomName implements Session.
func (s *WSSession) RoomName() string { return s.roomName }

// Metadata implements Session.
func (s *WSSession) Metadata() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// ParticipantAttributes implements Session.
func (s *WSSession) ParticipantAttributes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.attributes))
	for k, v := range s.attributes {
		out[k] = v
	}
	return out
}

// TextMessages implements Session.
func (s *WSSession) TextMessages() <-chan InboundText { return s.texts }

// PublishData implements Session.
func (s *WSSession) PublishData(ctx context.Context, payload []byte, reliable bool) error {
	env := envelope{Type: envelopeData, Payload: json.RawMessage(payload), Reliable: reliable}
	if err := s.write(env); err != nil {
		return fmt.Errorf("failed to publish data to room %s: %w", s.roomName, err)
	}
	return nil
}

// Close implements Session.
func (s *WSSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
