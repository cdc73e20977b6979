package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/murmurlabs/murmur/pkg/core/live"
)

// speakerOutput plays scheduled PCM through an oto player and exposes a
// monotonic output clock derived from bytes the player has consumed.
//
// The player pulls continuously from the moment the output opens; when the
// queue is empty the reader feeds silence, so the clock keeps advancing in
// real time. ScheduleAt pads the queue with silence up to the requested
// start position, which realizes the gapless timeline: back-to-back
// segments need no padding while a segment scheduled in the future gets
// exactly the gap it asked for.
type speakerOutput struct {
	config live.AudioConfig

	mu       sync.Mutex
	player   *oto.Player
	buf      []byte
	consumed int64
	closed   bool
}

func newSpeakerOutput(ctx *oto.Context, config live.AudioConfig) *speakerOutput {
	s := &speakerOutput{config: config}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return s
}

// Read implements io.Reader for the oto player. Never blocks: missing audio
// is replaced with silence so the output clock tracks real time.
func (s *speakerOutput) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	s.consumed += int64(len(p))
	return len(p), nil
}

// Now returns the position of the output clock.
func (s *speakerOutput) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Duration(int(s.consumed))
}

// ScheduleAt queues samples to begin playing at the given clock position.
func (s *speakerOutput) ScheduleAt(samples []float32, start time.Duration) error {
	data := live.PCM16FromFloat32(samples)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("speaker closed")
	}

	queuedEnd := s.config.Duration(int(s.consumed) + len(s.buf))
	if start > queuedEnd {
		pad := s.config.BytesForDuration(start - queuedEnd)
		pad &^= 1
		s.buf = append(s.buf, make([]byte, pad)...)
	}
	s.buf = append(s.buf, data...)
	return nil
}

// Flush discards all queued audio. The clock keeps running.
func (s *speakerOutput) Flush() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
}

// Close stops playback and releases the player.
func (s *speakerOutput) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	s.mu.Unlock()

	return s.player.Close()
}
