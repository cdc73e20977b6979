package remote

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeGateway upgrades one connection, answers the handshake, and hands the
// server side of the socket to the test.
type fakeGateway struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conn  *websocket.Conn
	hello clientHello
	ready chan struct{}
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	g := &fakeGateway{t: t, ready: make(chan struct{})}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		var hello clientHello
		if err := conn.ReadJSON(&hello); err != nil {
			t.Errorf("read hello: %v", err)
			return
		}
		if err := conn.WriteJSON(helloAck{Type: "hello_ack", SessionID: "sess-1"}); err != nil {
			t.Errorf("write hello_ack: %v", err)
			return
		}

		g.mu.Lock()
		g.conn = conn
		g.hello = hello
		g.mu.Unlock()
		close(g.ready)
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGateway) url() string {
	return "ws" + strings.TrimPrefix(g.server.URL, "http")
}

func (g *fakeGateway) serverConn() *websocket.Conn {
	g.t.Helper()
	select {
	case <-g.ready:
	case <-time.After(2 * time.Second):
		g.t.Fatal("handshake never completed")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn
}

func (g *fakeGateway) send(v any) {
	g.t.Helper()
	if err := g.serverConn().WriteJSON(v); err != nil {
		g.t.Fatalf("server write: %v", err)
	}
}

func (g *fakeGateway) readFrame() map[string]any {
	g.t.Helper()
	conn := g.serverConn()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		g.t.Fatalf("server read: %v", err)
	}
	return frame
}

// messageCollector gathers callback invocations for assertions.
type messageCollector struct {
	mu       sync.Mutex
	messages []ServerMessage
	errs     []error
	closes   int
}

func (c *messageCollector) callbacks() Callbacks {
	return Callbacks{
		OnMessage: func(msg ServerMessage) {
			c.mu.Lock()
			c.messages = append(c.messages, msg)
			c.mu.Unlock()
		},
		OnClose: func() {
			c.mu.Lock()
			c.closes++
			c.mu.Unlock()
		},
		OnError: func(err error) {
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
		},
	}
}

func (c *messageCollector) waitMessages(t *testing.T, n int) []ServerMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.messages) >= n {
			out := make([]ServerMessage, len(c.messages))
			copy(out, c.messages)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func dialTestGateway(t *testing.T, g *fakeGateway, collector *messageCollector) Session {
	t.Helper()
	dialer := &GatewayDialer{URL: g.url(), APIKey: "test-key"}
	sess, err := dialer.Dial(context.Background(), Config{
		Model:            "gemini-2.0-flash-live-001",
		Voice:            "Aoede",
		InputSampleRate:  16000,
		OutputSampleRate: 24000,
	}, collector.callbacks())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestGatewayHandshake(t *testing.T) {
	g := newFakeGateway(t)
	dialTestGateway(t, g, &messageCollector{})

	g.serverConn()
	g.mu.Lock()
	hello := g.hello
	g.mu.Unlock()

	if hello.Type != "hello" || hello.ProtocolVersion != protocolVersion {
		t.Errorf("hello = %+v", hello)
	}
	if hello.AudioIn.SampleRateHz != 16000 || hello.AudioOut.SampleRateHz != 24000 {
		t.Errorf("negotiated rates = %d/%d", hello.AudioIn.SampleRateHz, hello.AudioOut.SampleRateHz)
	}
	if hello.AudioIn.Encoding != encodingPCM16LE {
		t.Errorf("encoding = %q", hello.AudioIn.Encoding)
	}
	if hello.APIKey != "test-key" {
		t.Errorf("api key = %q", hello.APIKey)
	}
}

func TestGatewaySendAudioFramesAreSequenced(t *testing.T) {
	g := newFakeGateway(t)
	sess := dialTestGateway(t, g, &messageCollector{})

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	if err := sess.SendAudio(payload, "audio/pcm;rate=16000"); err != nil {
		t.Fatalf("send audio: %v", err)
	}
	if err := sess.SendAudio(payload, "audio/pcm;rate=16000"); err != nil {
		t.Fatalf("send audio: %v", err)
	}

	first := g.readFrame()
	second := g.readFrame()

	if first["type"] != "audio_frame" {
		t.Fatalf("type = %v", first["type"])
	}
	if first["seq"].(float64) != 1 || second["seq"].(float64) != 2 {
		t.Errorf("seq = %v, %v", first["seq"], second["seq"])
	}
	decoded, err := base64.StdEncoding.DecodeString(first["data_b64"].(string))
	if err != nil || string(decoded) != string(payload) {
		t.Errorf("payload did not round-trip: %v %v", decoded, err)
	}
	if first["mime_type"] != "audio/pcm;rate=16000" {
		t.Errorf("mime = %v", first["mime_type"])
	}
}

func TestGatewaySendText(t *testing.T) {
	g := newFakeGateway(t)
	sess := dialTestGateway(t, g, &messageCollector{})

	if err := sess.SendText("hello"); err != nil {
		t.Fatalf("send text: %v", err)
	}

	frame := g.readFrame()
	if frame["type"] != "text" || frame["text"] != "hello" {
		t.Errorf("frame = %v", frame)
	}
}

func TestGatewayInboundFrames(t *testing.T) {
	g := newFakeGateway(t)
	collector := &messageCollector{}
	dialTestGateway(t, g, collector)

	audio := []byte{0x10, 0x20, 0x30, 0x40}
	g.send(serverAudioChunk{Type: "assistant_audio_chunk", DataB64: base64.StdEncoding.EncodeToString(audio)})
	g.send(serverTranscriptDelta{Type: "transcript_delta", Role: "user", Text: "hi "})
	g.send(serverTranscriptDelta{Type: "transcript_delta", Role: "assistant", Text: "Hello!"})
	g.send(serverEnvelope{Type: "audio_reset"})
	g.send(serverEnvelope{Type: "turn_complete"})

	msgs := collector.waitMessages(t, 5)

	if string(msgs[0].Audio) != string(audio) {
		t.Errorf("audio = %v", msgs[0].Audio)
	}
	if msgs[1].InputTranscript != "hi " {
		t.Errorf("input transcript = %q", msgs[1].InputTranscript)
	}
	if msgs[2].OutputTranscript != "Hello!" {
		t.Errorf("output transcript = %q", msgs[2].OutputTranscript)
	}
	if !msgs[3].Interrupted {
		t.Error("audio_reset did not map to interrupted")
	}
	if !msgs[4].TurnComplete {
		t.Error("turn_complete not mapped")
	}
}

func TestGatewayServerErrorIsTerminal(t *testing.T) {
	g := newFakeGateway(t)
	collector := &messageCollector{}
	dialTestGateway(t, g, collector)

	g.send(serverError{Type: "error", Code: "overloaded", Message: "try later"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		collector.mu.Lock()
		n := len(collector.errs)
		collector.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	collector.mu.Lock()
	defer collector.mu.Unlock()
	if len(collector.errs) != 1 {
		t.Fatalf("errors = %v", collector.errs)
	}
	if !strings.Contains(collector.errs[0].Error(), "overloaded") {
		t.Errorf("error = %v", collector.errs[0])
	}
	if collector.closes != 0 {
		t.Errorf("OnClose fired alongside OnError")
	}
}

func TestGatewayLocalCloseIsSilent(t *testing.T) {
	g := newFakeGateway(t)
	collector := &messageCollector{}
	sess := dialTestGateway(t, g, collector)

	if err := sess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("repeat close: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	collector.mu.Lock()
	defer collector.mu.Unlock()
	if collector.closes != 0 || len(collector.errs) != 0 {
		t.Errorf("local close invoked callbacks: closes=%d errs=%v", collector.closes, collector.errs)
	}

	if err := sess.SendText("late"); err == nil {
		t.Error("send on closed session did not fail")
	}
}

func TestGatewayHandshakeRejectsBadAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var hello clientHello
		_ = conn.ReadJSON(&hello)
		_ = conn.WriteJSON(serverError{Type: "error", Code: "unauthorized", Message: "bad key"})
	}))
	defer server.Close()

	dialer := &GatewayDialer{URL: "ws" + strings.TrimPrefix(server.URL, "http")}
	_, err := dialer.Dial(context.Background(), Config{Model: "m"}, Callbacks{})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if !strings.Contains(err.Error(), "hello_ack") {
		t.Errorf("error = %v", err)
	}
}
