package live

import (
	"fmt"
	"sync"
	"time"
)

// talkReleaseGuard is the window before the end of the scheduled timeline in
// which the assistant is already considered done talking. A just-scheduled
// segment extends the timeline past the guard and keeps the flag up.
const talkReleaseGuard = 80 * time.Millisecond

// OutputSink is the playback side of an output device. Interface defined
// where it is consumed; pkg/device provides the speaker implementation and
// tests inject fakes.
type OutputSink interface {
	// Now returns the current position of the monotonic output clock.
	Now() time.Duration

	// ScheduleAt queues samples to begin playing at the given clock position.
	ScheduleAt(samples []float32, start time.Duration) error

	// Flush discards all queued audio immediately.
	Flush()
}

// PlaybackScheduler places inbound assistant audio on a gapless output
// timeline. Segments are scheduled back to back: each segment starts at
// max(clock now, end of the previous segment), and the end of the timeline
// is advanced at scheduling time, before the segment plays, so concurrently
// arriving chunks queue correctly. An interruption discards timeline
// continuity so the next segment starts fresh.
type PlaybackScheduler struct {
	config AudioConfig
	sink   OutputSink
	active func() bool

	mu       sync.Mutex
	nextFree time.Duration
	talking  bool
	release  *time.Timer

	onTalking   func(talking bool)
	onScheduled func(start, duration time.Duration)
	onDebug     func(category, message string)
}

// NewPlaybackScheduler creates a scheduler feeding the given sink.
// The active func is the session liveness check consulted before any chunk
// is decoded; inbound audio for a torn-down session is dropped.
func NewPlaybackScheduler(config AudioConfig, sink OutputSink, active func() bool) *PlaybackScheduler {
	return &PlaybackScheduler{
		config: config,
		sink:   sink,
		active: active,
	}
}

// SetCallbacks sets the event callbacks for the scheduler.
func (p *PlaybackScheduler) SetCallbacks(
	onTalking func(talking bool),
	onScheduled func(start, duration time.Duration),
	onDebug func(category, message string),
) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTalking = onTalking
	p.onScheduled = onScheduled
	p.onDebug = onDebug
}

// Schedule decodes an inbound audio chunk and places it on the timeline.
func (p *PlaybackScheduler) Schedule(chunk EncodedChunk) {
	if p.active != nil && !p.active() {
		return
	}

	samples := Float32FromPCM16(chunk.Data)
	if len(samples) == 0 {
		return
	}
	duration := time.Duration(len(samples)) * time.Second / time.Duration(p.config.SampleRate)

	p.mu.Lock()
	now := p.sink.Now()
	start := now
	if p.nextFree > start {
		start = p.nextFree
	}
	p.nextFree = start + duration

	raisedTalking := !p.talking
	p.talking = true
	p.armReleaseLocked(p.nextFree - now)

	if err := p.sink.ScheduleAt(samples, start); err != nil {
		p.debugLocked("PLAYBACK", fmt.Sprintf("schedule failed: %v", err))
	}
	onTalking := p.onTalking
	onScheduled := p.onScheduled
	p.mu.Unlock()

	if raisedTalking && onTalking != nil {
		onTalking(true)
	}
	if onScheduled != nil {
		onScheduled(start, duration)
	}
}

// armReleaseLocked (re)arms the talk-release timer. Caller holds the mutex.
func (p *PlaybackScheduler) armReleaseLocked(delay time.Duration) {
	if p.release != nil {
		p.release.Stop()
	}
	if delay < 0 {
		delay = 0
	}
	p.release = time.AfterFunc(delay, p.checkRelease)
}

// checkRelease drops the assistant-talking flag once the output clock has
// advanced past the end of the scheduled timeline, minus the guard window.
// If more audio arrived in the meantime, the timer re-arms for the new end.
func (p *PlaybackScheduler) checkRelease() {
	p.mu.Lock()
	if !p.talking {
		p.mu.Unlock()
		return
	}
	remaining := p.nextFree - p.sink.Now()
	if remaining > talkReleaseGuard {
		p.armReleaseLocked(remaining)
		p.mu.Unlock()
		return
	}
	p.talking = false
	fn := p.onTalking
	p.mu.Unlock()

	if fn != nil {
		fn(false)
	}
}

// Interrupt handles the remote barge-in signal: the assistant turn is cut
// off, so timeline continuity is discarded and queued audio is dropped. The
// next segment starts at the current clock position rather than queuing
// after now-irrelevant future segments.
func (p *PlaybackScheduler) Interrupt() {
	p.mu.Lock()
	p.nextFree = 0
	if p.release != nil {
		p.release.Stop()
		p.release = nil
	}
	wasTalking := p.talking
	p.talking = false
	fn := p.onTalking
	p.mu.Unlock()

	p.sink.Flush()

	if wasTalking && fn != nil {
		fn(false)
	}
}

// Reset clears the timeline and talk state without invoking callbacks.
// Called on session teardown.
func (p *PlaybackScheduler) Reset() {
	p.mu.Lock()
	p.nextFree = 0
	if p.release != nil {
		p.release.Stop()
		p.release = nil
	}
	p.talking = false
	p.mu.Unlock()

	p.sink.Flush()
}

// Talking returns whether the assistant is currently considered talking.
func (p *PlaybackScheduler) Talking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.talking
}

// NextFree returns the current end of the scheduled timeline.
func (p *PlaybackScheduler) NextFree() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextFree
}

func (p *PlaybackScheduler) debugLocked(category, message string) {
	if p.onDebug != nil {
		go p.onDebug(category, message)
	}
}
