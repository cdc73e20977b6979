package remote

import (
	"fmt"
	"strings"
)

const (
	protocolVersion = "1"

	encodingPCM16LE = "pcm_s16le"
)

// audioFormat describes a negotiated live audio shape.
type audioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

// clientHello opens the gateway handshake. First frame on the wire.
type clientHello struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	APIKey          string      `json:"api_key,omitempty"`
	Model           string      `json:"model"`
	Voice           string      `json:"voice,omitempty"`
	System          string      `json:"system,omitempty"`
	AudioIn         audioFormat `json:"audio_in"`
	AudioOut        audioFormat `json:"audio_out"`
}

// helloAck is the gateway's reply completing the handshake.
type helloAck struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	AudioOut  audioFormat `json:"audio_out,omitempty"`
}

func (a helloAck) validate() error {
	if strings.TrimSpace(a.Type) != "hello_ack" {
		return fmt.Errorf("expected hello_ack, got %q", strings.TrimSpace(a.Type))
	}
	if strings.TrimSpace(a.SessionID) == "" {
		return fmt.Errorf("hello_ack missing session_id")
	}
	return nil
}

// clientAudioFrame carries one outbound audio chunk. Seq is monotonically
// increasing per session.
type clientAudioFrame struct {
	Type     string `json:"type"`
	Seq      int64  `json:"seq"`
	MIMEType string `json:"mime_type"`
	DataB64  string `json:"data_b64"`
}

// clientText carries a text-only user turn.
type clientText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// serverEnvelope carries just the type discriminator; frames are decoded a
// second time into their concrete shape.
type serverEnvelope struct {
	Type string `json:"type"`
}

// serverAudioChunk carries one inbound chunk of synthesized assistant audio.
type serverAudioChunk struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

// serverTranscriptDelta carries one transcription fragment for either side
// of the conversation. Role is "user" or "assistant".
type serverTranscriptDelta struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// serverError carries a fatal session error. The gateway closes the
// connection after sending one.
type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e serverError) err() error {
	if strings.TrimSpace(e.Code) == "" {
		return fmt.Errorf("gateway error: %s", e.Message)
	}
	return fmt.Errorf("gateway error %s: %s", e.Code, e.Message)
}
