package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// GatewayDialer connects to a websocket gateway speaking the JSON live
// protocol: a hello/hello_ack handshake followed by typed frames in both
// directions, audio carried base64-encoded.
type GatewayDialer struct {
	// URL is the websocket endpoint, ws:// or wss://.
	URL string

	// APIKey authenticates the hello frame. Optional.
	APIKey string

	// HandshakeTimeout bounds the hello/hello_ack exchange.
	// Zero means 10 seconds.
	HandshakeTimeout time.Duration
}

// Dial connects, performs the handshake, and starts the receive loop.
func (d *GatewayDialer) Dial(ctx context.Context, config Config, callbacks Callbacks) (Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	if err := handshake(conn, d.APIKey, config, timeout); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &gatewaySession{
		conn:      conn,
		callbacks: callbacks,
	}
	go s.readLoop()
	return s, nil
}

// handshake sends hello and waits for hello_ack under deadlines, then clears
// the deadlines for the session proper.
func handshake(conn *websocket.Conn, apiKey string, config Config, timeout time.Duration) error {
	hello := clientHello{
		Type:            "hello",
		ProtocolVersion: protocolVersion,
		APIKey:          apiKey,
		Model:           config.Model,
		Voice:           config.Voice,
		System:          config.System,
		AudioIn: audioFormat{
			Encoding:     encodingPCM16LE,
			SampleRateHz: config.InputSampleRate,
			Channels:     1,
		},
		AudioOut: audioFormat{
			Encoding:     encodingPCM16LE,
			SampleRateHz: config.OutputSampleRate,
			Channels:     1,
		},
	}

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	if typ != websocket.TextMessage {
		return fmt.Errorf("expected hello_ack text frame, got messageType=%d", typ)
	}

	var ack helloAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("invalid hello_ack json: %w", err)
	}
	if err := ack.validate(); err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	return nil
}

// gatewaySession is one open gateway connection. Writes are serialized by
// writeMu; the read loop is the single goroutine invoking callbacks.
type gatewaySession struct {
	conn      *websocket.Conn
	callbacks Callbacks

	writeMu sync.Mutex
	seq     atomic.Int64
	closed  atomic.Bool
}

func (s *gatewaySession) SendAudio(data []byte, mimeType string) error {
	return s.writeJSON(clientAudioFrame{
		Type:     "audio_frame",
		Seq:      s.seq.Add(1),
		MIMEType: mimeType,
		DataB64:  base64.StdEncoding.EncodeToString(data),
	})
}

func (s *gatewaySession) SendText(text string) error {
	return s.writeJSON(clientText{
		Type: "text",
		Text: text,
	})
}

func (s *gatewaySession) writeJSON(v any) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *gatewaySession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}

// readLoop decodes inbound frames until the connection ends. Terminal
// conditions fire OnClose for an orderly close and OnError otherwise;
// nothing fires after a local Close.
func (s *gatewaySession) readLoop() {
	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.closed.Store(true)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if s.callbacks.OnClose != nil {
					s.callbacks.OnClose()
				}
			} else if s.callbacks.OnError != nil {
				s.callbacks.OnError(err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if done := s.handleFrame(data); done {
			return
		}
	}
}

// handleFrame dispatches one server frame. Returns true when the session is
// finished and the loop should stop.
func (s *gatewaySession) handleFrame(data []byte) bool {
	var env serverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}

	switch env.Type {
	case "assistant_audio_chunk":
		var frame serverAudioChunk
		if err := json.Unmarshal(data, &frame); err != nil {
			return false
		}
		audio, err := base64.StdEncoding.DecodeString(frame.DataB64)
		if err != nil || len(audio) == 0 {
			return false
		}
		s.deliver(ServerMessage{Audio: audio})

	case "audio_reset":
		// The in-progress assistant turn was cut off server-side.
		s.deliver(ServerMessage{Interrupted: true})

	case "transcript_delta":
		var frame serverTranscriptDelta
		if err := json.Unmarshal(data, &frame); err != nil {
			return false
		}
		switch frame.Role {
		case "user":
			s.deliver(ServerMessage{InputTranscript: frame.Text})
		case "assistant":
			s.deliver(ServerMessage{OutputTranscript: frame.Text})
		}

	case "turn_complete":
		s.deliver(ServerMessage{TurnComplete: true})

	case "error":
		var frame serverError
		if err := json.Unmarshal(data, &frame); err != nil {
			return false
		}
		if s.closed.CompareAndSwap(false, true) {
			if s.callbacks.OnError != nil {
				s.callbacks.OnError(frame.err())
			}
		}
		_ = s.conn.Close()
		return true
	}
	return false
}

func (s *gatewaySession) deliver(msg ServerMessage) {
	if s.callbacks.OnMessage != nil {
		s.callbacks.OnMessage(msg)
	}
}
