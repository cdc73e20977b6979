package live

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/murmurlabs/murmur/pkg/core/remote"
)

// CaptureDevice produces float32 sample frames at the capture rate.
// Acquisition may fail (permission denied, no device); pkg/device provides
// the microphone implementation and tests inject fakes.
type CaptureDevice interface {
	// Start begins delivering frames to onFrame until Close.
	Start(onFrame func(samples []float32)) error

	// Close stops the frame stream and releases the device.
	Close() error
}

// OutputDevice is an OutputSink that can be released.
type OutputDevice interface {
	OutputSink
	Close() error
}

// DeviceOpener acquires audio devices during connect.
type DeviceOpener interface {
	OpenCapture(config AudioConfig) (CaptureDevice, error)
	OpenOutput(config AudioConfig) (OutputDevice, error)
}

// SessionController owns the connection state machine and composes the
// capture, playback, talk-detection, and transcript components around one
// live remote session.
//
// The active flag is the single cancellation token: it flips false
// synchronously on any teardown trigger and is consulted by every in-flight
// operation (outbound send, inbound decode, playback scheduling) before it
// acts. The check is advisory only; teardown also detaches the capture
// stream and releases devices rather than relying on the flag alone.
type SessionController struct {
	config  SessionConfig
	dialer  remote.Dialer
	devices DeviceOpener

	active atomic.Bool

	mu       sync.Mutex
	state    ConnState
	session  remote.Session
	capture  CaptureDevice
	output   OutputDevice
	playback *PlaybackScheduler
	lastErr  *Error

	detector   *TalkActivityDetector
	transcript *TranscriptAggregator
	processor  *CaptureProcessor

	events chan Event

	debugEnabled bool
}

// NewSessionController creates a controller in the Idle state.
func NewSessionController(config SessionConfig, dialer remote.Dialer, devices DeviceOpener) *SessionController {
	s := &SessionController{
		config:     config,
		dialer:     dialer,
		devices:    devices,
		state:      StateIdle,
		detector:   NewTalkActivityDetector(config.Talk),
		transcript: NewTranscriptAggregator(),
		events:     make(chan Event, 100),
	}

	s.detector.SetOnChange(func(talking bool) {
		s.emit(&UserTalkingEvent{Talking: talking})
	})
	s.transcript.SetOnAppend(func(msg Message) {
		s.emit(&MessageAppendedEvent{Message: msg})
	})
	s.processor = NewCaptureProcessor(config.Capture, s.detector, s.active.Load, s.sendChunk)

	return s
}

// EnableDebug enables debug logging and DebugEvent emission.
func (s *SessionController) EnableDebug() {
	s.debugEnabled = true
}

// Events returns the channel for receiving session events.
func (s *SessionController) Events() <-chan Event {
	return s.events
}

// State returns the current connection state.
func (s *SessionController) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserTalking reports whether the user is currently talking.
func (s *SessionController) UserTalking() bool {
	return s.detector.Talking()
}

// AssistantTalking reports whether assistant audio is currently scheduled.
func (s *SessionController) AssistantTalking() bool {
	s.mu.Lock()
	playback := s.playback
	s.mu.Unlock()
	return playback != nil && playback.Talking()
}

// Messages returns the transcript log in arrival order.
func (s *SessionController) Messages() []Message {
	return s.transcript.Messages()
}

// LastError returns the last surfaced session failure, or nil.
func (s *SessionController) LastError() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect acquires the audio devices and establishes the remote session.
// A no-op when already Connecting or Open. If Disconnect is called while the
// dial is still in flight, the eventually-opened session is closed
// immediately and the controller settles back to Idle without entering Open.
func (s *SessionController) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateOpen {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.active.Store(true)
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	s.debug("SESSION", "connecting")

	capture, err := s.devices.OpenCapture(s.config.Capture)
	if err != nil {
		return s.failConnect(NewDeviceError(err))
	}
	output, err := s.devices.OpenOutput(s.config.Playback)
	if err != nil {
		_ = capture.Close()
		return s.failConnect(NewDeviceError(err))
	}

	playback := NewPlaybackScheduler(s.config.Playback, output, s.active.Load)
	playback.SetCallbacks(
		func(talking bool) { s.emit(&AssistantTalkingEvent{Talking: talking}) },
		func(start, duration time.Duration) { s.emit(&SegmentScheduledEvent{Start: start, Duration: duration}) },
		func(category, message string) { s.debug(category, message) },
	)

	s.mu.Lock()
	if !s.active.Load() {
		// Disconnect raced device acquisition.
		s.mu.Unlock()
		_ = capture.Close()
		_ = output.Close()
		s.settleIdle()
		return nil
	}
	s.capture = capture
	s.output = output
	s.playback = playback
	s.mu.Unlock()

	sess, err := s.dialer.Dial(ctx, remote.Config{
		Model:            s.config.Model,
		Voice:            s.config.Voice,
		System:           s.config.System,
		InputSampleRate:  s.config.Capture.SampleRate,
		OutputSampleRate: s.config.Playback.SampleRate,
	}, remote.Callbacks{
		OnMessage: s.onMessage,
		OnClose:   s.onClose,
		OnError:   s.onError,
	})
	if err != nil {
		return s.failConnect(NewConnectError(err))
	}

	s.mu.Lock()
	if !s.active.Load() {
		// Disconnect raced the dial: the teardown request and the
		// connection completion crossed in flight. Close the fresh
		// session; no outbound audio may ever be sent on it.
		s.mu.Unlock()
		_ = sess.Close()
		s.teardown(nil, "disconnect")
		s.debug("SESSION", "dial completed after disconnect, session closed")
		return nil
	}
	s.session = sess
	s.setStateLocked(StateOpen)
	s.mu.Unlock()

	s.debug("SESSION", "open")

	if err := capture.Start(s.processor.OnFrame); err != nil {
		e := NewDeviceError(err)
		s.teardown(e, "capture_failure")
		return e
	}

	return nil
}

// Disconnect tears the session down. Idempotent. The active flag drops
// synchronously so any in-flight capture or inbound callback observes it on
// its next check and stops acting.
func (s *SessionController) Disconnect() {
	s.active.Store(false)
	s.teardown(nil, "disconnect")
}

// SendText injects a text-only outbound payload, bypassing audio encoding.
// The text is appended to the message log as a user message immediately;
// delivery is fire-and-forget.
func (s *SessionController) SendText(text string) {
	if text == "" {
		return
	}
	s.transcript.Append(RoleUser, text)

	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return
	}
	if err := session.SendText(text); err != nil {
		s.sendFailed(err)
	}
}

// sendChunk is the outbound audio path, invoked by the capture processor.
// The liveness re-check here is the second half of the double check; the
// first happens in the processor before the payload is constructed.
func (s *SessionController) sendChunk(chunk EncodedChunk) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return
	}
	if err := session.SendAudio(chunk.Data, chunk.MIMEType); err != nil {
		s.sendFailed(err)
	}
}

// sendFailed handles a transmit failure on a logically-active session.
// Fatal for the session: no retry, the channel cannot resume a partial
// stream without re-establishing state. The liveness flag drops here,
// synchronously, so no further payload leaves after this call returns.
// Device release runs on its own goroutine: the failing send is usually on
// the capture device's data callback thread, and a capture device must not
// be stopped from inside its own callback.
func (s *SessionController) sendFailed(err error) {
	if !s.active.CompareAndSwap(true, false) {
		// Teardown already in flight; a failed send on a dying session
		// is expected.
		return
	}
	s.debug("SESSION", "send failed: "+err.Error())
	go s.teardown(NewSendError(err), "send_failure")
}

// onMessage handles one inbound message from the remote session.
func (s *SessionController) onMessage(msg remote.ServerMessage) {
	if !s.active.Load() {
		return
	}
	s.mu.Lock()
	playback := s.playback
	s.mu.Unlock()

	if msg.Interrupted && playback != nil {
		s.debug("PLAYBACK", "assistant turn interrupted")
		playback.Interrupt()
		s.emit(&PlaybackInterruptedEvent{})
	}
	if len(msg.Audio) > 0 && playback != nil {
		playback.Schedule(EncodedChunk{
			Data:     msg.Audio,
			MIMEType: s.config.Playback.MIMEType(),
		})
	}
	if msg.InputTranscript != "" {
		s.transcript.Append(RoleUser, msg.InputTranscript)
	}
	if msg.OutputTranscript != "" {
		s.transcript.Append(RoleModel, msg.OutputTranscript)
	}
}

// onClose handles an unsolicited close from the remote side.
func (s *SessionController) onClose() {
	if !s.active.Load() {
		return
	}
	s.active.Store(false)
	s.debug("SESSION", "remote closed")
	s.teardown(nil, "remote_close")
}

// onError handles an unsolicited error from the remote side.
func (s *SessionController) onError(err error) {
	if !s.active.Load() {
		return
	}
	s.active.Store(false)
	s.debug("SESSION", "remote error: "+err.Error())
	s.teardown(NewRemoteError(err), "remote_error")
}

// failConnect surfaces a connect-phase failure and releases anything
// acquired so far.
func (s *SessionController) failConnect(cause *Error) error {
	s.teardown(cause, "connect_failure")
	return cause
}

// teardown releases devices, closes the session, resets the output timeline
// and talk state, and settles to Idle. Safe to call from any path; a second
// call with nothing left to release is a no-op.
func (s *SessionController) teardown(cause *Error, reason string) {
	s.active.Store(false)

	s.mu.Lock()
	capture := s.capture
	output := s.output
	session := s.session
	playback := s.playback
	s.capture, s.output, s.session, s.playback = nil, nil, nil, nil
	if cause != nil {
		s.lastErr = cause
	}
	alreadyDown := s.state == StateIdle && capture == nil && output == nil && session == nil
	if !alreadyDown {
		if cause != nil {
			s.setStateLocked(StateFailed)
		} else {
			s.setStateLocked(StateClosing)
		}
	}
	s.mu.Unlock()

	if alreadyDown {
		if cause != nil {
			s.emit(&ErrorEvent{Err: cause})
		}
		return
	}

	if capture != nil {
		_ = capture.Close()
	}
	if playback != nil {
		playback.Reset()
	}
	if session != nil {
		_ = session.Close()
	}
	if output != nil {
		_ = output.Close()
	}
	s.detector.Reset()

	s.settleIdle()

	if cause != nil {
		s.emit(&ErrorEvent{Err: cause})
	}
	s.emit(&SessionClosedEvent{Reason: reason})
	s.debug("SESSION", "idle ("+reason+")")
}

// settleIdle moves the state machine to Idle.
func (s *SessionController) settleIdle() {
	s.mu.Lock()
	s.setStateLocked(StateIdle)
	s.mu.Unlock()
}

// setStateLocked updates the state and emits a change event.
// Caller holds the mutex.
func (s *SessionController) setStateLocked(next ConnState) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	s.emit(&StateChangedEvent{From: prev, To: next})
}

// emit sends an event to the events channel without blocking.
func (s *SessionController) emit(event Event) {
	select {
	case s.events <- event:
	default:
		// Channel full, drop event
	}
}

// debug logs a debug message if debug mode is enabled.
func (s *SessionController) debug(category, message string) {
	if !s.debugEnabled {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(os.Stderr, "\033[90m%s\033[0m [\033[36m%-8s\033[0m] %s\n", timestamp, category, message)
	s.emit(&DebugEvent{Category: category, Message: message})
}
