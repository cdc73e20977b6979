package live

import "time"

// ConnState represents the connection state of the session controller.
type ConnState int

const (
	// StateIdle is the resting state with no session and no devices held.
	StateIdle ConnState = iota
	// StateConnecting is while devices are being acquired and the remote
	// session is being established.
	StateConnecting
	// StateOpen is when the session is live and audio flows both ways.
	StateOpen
	// StateClosing is the transient state during an orderly teardown.
	StateClosing
	// StateFailed is the transient state after a fatal error, before Idle.
	StateFailed
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a voice session.
type SessionConfig struct {
	// Model is the remote conversational speech model.
	Model string `json:"model"`

	// Voice is the synthesized voice identity.
	Voice string `json:"voice"`

	// System is the system instruction sent with session setup.
	System string `json:"system,omitempty"`

	// Capture is the microphone audio format. Default: 16 kHz mono 16-bit.
	Capture AudioConfig `json:"capture"`

	// Playback is the output audio format. Default: 24 kHz mono 16-bit.
	Playback AudioConfig `json:"playback"`

	// Talk configures user talk-activity detection.
	Talk TalkConfig `json:"talk"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:    "gemini-2.0-flash-live-001",
		Voice:    "Aoede",
		System:   DefaultSystemInstruction,
		Capture:  CaptureAudioConfig(),
		Playback: PlaybackAudioConfig(),
		Talk:     DefaultTalkConfig(),
	}
}

// DefaultSystemInstruction is the system prompt sent with session setup.
const DefaultSystemInstruction = `You are a helpful voice assistant. You are speaking with the user in real time over audio, so keep responses short and conversational. A single sentence is often enough.`

// TalkConfig configures the user talk-activity detector.
type TalkConfig struct {
	// Threshold is the RMS energy level at or above which a frame counts
	// as speech. Range: 0.0 to 1.0. Default: 0.02
	Threshold float64 `json:"threshold"`

	// Hold is how long the talking flag stays up after the last frame
	// that met the threshold. Default: 500ms
	Hold time.Duration `json:"hold"`
}

// DefaultTalkConfig returns a TalkConfig with sensible defaults.
func DefaultTalkConfig() TalkConfig {
	return TalkConfig{
		Threshold: 0.02,
		Hold:      500 * time.Millisecond,
	}
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. 16000 for capture, 24000 for playback.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// CaptureAudioConfig returns the microphone-side audio format.
func CaptureAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    16000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// PlaybackAudioConfig returns the output-side audio format.
func PlaybackAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    24000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// MIMEType returns the wire mime descriptor for raw PCM at this rate.
func (c AudioConfig) MIMEType() string {
	return pcmMIMEType(c.SampleRate)
}

// Duration returns the playback duration of the given PCM byte count.
func (c AudioConfig) Duration(bytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// BytesForDuration returns the PCM byte count for the given duration.
func (c AudioConfig) BytesForDuration(d time.Duration) int {
	return int(int64(c.BytesPerSecond()) * int64(d) / int64(time.Second))
}
