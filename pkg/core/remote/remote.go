// Package remote defines the abstract bidirectional session to the
// conversational speech service, plus concrete implementations: the Gemini
// Live API and a websocket JSON gateway.
package remote

import "context"

// Config describes the session to establish.
type Config struct {
	// Model is the remote conversational speech model.
	Model string `json:"model"`

	// Voice is the synthesized voice identity.
	Voice string `json:"voice"`

	// System is the fixed system instruction for the session.
	System string `json:"system,omitempty"`

	// InputSampleRate is the PCM rate of outbound audio in Hz.
	InputSampleRate int `json:"input_sample_rate"`

	// OutputSampleRate is the PCM rate of inbound audio in Hz.
	OutputSampleRate int `json:"output_sample_rate"`
}

// ServerMessage is one inbound message from the remote session. Any subset
// of the fields may be populated.
type ServerMessage struct {
	// Audio is synthesized 16-bit PCM for the assistant turn.
	Audio []byte

	// Interrupted signals the assistant's in-progress turn was cut off,
	// typically by user barge-in.
	Interrupted bool

	// InputTranscript is a transcription fragment of the user's speech.
	InputTranscript string

	// OutputTranscript is a transcription fragment of the assistant's speech.
	OutputTranscript string

	// TurnComplete signals the assistant finished its turn.
	TurnComplete bool
}

// Callbacks are invoked by a Session's receive loop. OnClose and OnError are
// terminal; no callback fires after either.
type Callbacks struct {
	OnMessage func(ServerMessage)
	OnClose   func()
	OnError   func(error)
}

// Session is one open connection to the remote service.
type Session interface {
	// SendAudio transmits an encoded audio chunk with its mime descriptor.
	SendAudio(data []byte, mimeType string) error

	// SendText transmits a text-only user turn.
	SendText(text string) error

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// Dialer establishes sessions. Implementations must deliver inbound traffic
// through the callbacks from a single goroutine.
type Dialer interface {
	Dial(ctx context.Context, config Config, callbacks Callbacks) (Session, error)
}
