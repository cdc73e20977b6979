package live

import "sync"

// Role identifies the speaker of a transcript message.
type Role string

const (
	// RoleUser marks messages transcribed from the user's speech or typed in.
	RoleUser Role = "user"
	// RoleModel marks messages transcribed from the assistant's speech.
	RoleModel Role = "model"
)

// Message is one transcript entry.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// TranscriptAggregator is an append-only log of transcription fragments in
// arrival order. User and model fragments arrive on independent streams, so
// entries interleave by arrival time rather than speech chronology.
// Consecutive fragments from the same turn are kept as discrete messages.
type TranscriptAggregator struct {
	mu       sync.Mutex
	messages []Message

	onAppend func(Message)
}

// NewTranscriptAggregator creates an empty transcript log.
func NewTranscriptAggregator() *TranscriptAggregator {
	return &TranscriptAggregator{}
}

// SetOnAppend sets the callback invoked for every appended message.
func (t *TranscriptAggregator) SetOnAppend(fn func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAppend = fn
}

// Append adds a transcription fragment for the given role.
// Empty fragments are dropped.
func (t *TranscriptAggregator) Append(role Role, text string) {
	if text == "" {
		return
	}

	msg := Message{Role: role, Text: text}

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	fn := t.onAppend
	t.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

// Messages returns a copy of the log in arrival order.
func (t *TranscriptAggregator) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the log.
func (t *TranscriptAggregator) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
