package live

import "time"

// Event is the interface for all session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the connection state changes.
type StateChangedEvent struct {
	From ConnState `json:"from"`
	To   ConnState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// UserTalkingEvent is emitted when the user talk-activity flag flips.
type UserTalkingEvent struct {
	Talking bool `json:"talking"`
}

func (e *UserTalkingEvent) EventType() string { return "user.talking" }

// AssistantTalkingEvent is emitted when the assistant talk flag flips.
type AssistantTalkingEvent struct {
	Talking bool `json:"talking"`
}

func (e *AssistantTalkingEvent) EventType() string { return "assistant.talking" }

// MessageAppendedEvent is emitted when a transcript message is appended.
type MessageAppendedEvent struct {
	Message Message `json:"message"`
}

func (e *MessageAppendedEvent) EventType() string { return "message.appended" }

// SegmentScheduledEvent is emitted when an inbound audio segment is placed
// on the output timeline.
type SegmentScheduledEvent struct {
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
}

func (e *SegmentScheduledEvent) EventType() string { return "segment.scheduled" }

// PlaybackInterruptedEvent is emitted when the assistant turn is cut off
// and the output timeline is reset.
type PlaybackInterruptedEvent struct{}

func (e *PlaybackInterruptedEvent) EventType() string { return "playback.interrupted" }

// SessionClosedEvent is emitted after a full teardown.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }

// ErrorEvent is emitted when a session failure is surfaced.
type ErrorEvent struct {
	Err *Error `json:"error"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// DebugEvent is emitted for debugging information.
type DebugEvent struct {
	Category string `json:"category"` // AUDIO, CAPTURE, PLAYBACK, TALK, SESSION, REMOTE
	Message  string `json:"message"`
}

func (e *DebugEvent) EventType() string { return "debug" }
