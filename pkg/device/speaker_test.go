package device

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/murmurlabs/murmur/pkg/core/live"
)

func newTestSpeaker() *speakerOutput {
	return &speakerOutput{config: live.PlaybackAudioConfig()}
}

func TestSpeakerClockAdvancesWithConsumption(t *testing.T) {
	s := newTestSpeaker()

	if got := s.Now(); got != 0 {
		t.Fatalf("initial clock = %v", got)
	}

	// Pulling 48000 bytes of 24kHz mono s16le advances the clock one
	// second, queued audio or not.
	buf := make([]byte, 48000)
	n, err := s.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("read = %d, %v", n, err)
	}
	if got := s.Now(); got != time.Second {
		t.Errorf("clock = %v, want 1s", got)
	}
}

func TestSpeakerReadDrainsQueueThenSilence(t *testing.T) {
	s := newTestSpeaker()

	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = 0.5
	}
	if err := s.ScheduleAt(samples, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	buf := make([]byte, 400)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	// First 200 bytes are the queued audio, the rest silence.
	if buf[0] == 0 && buf[1] == 0 {
		t.Error("queued audio not delivered")
	}
	for i := 200; i < 400; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#x, want silence", i, buf[i])
		}
	}
}

func TestSpeakerScheduleAtPadsToStart(t *testing.T) {
	s := newTestSpeaker()
	cfg := live.PlaybackAudioConfig()

	// Scheduling 50ms into the future inserts 50ms of silence first.
	if err := s.ScheduleAt(make([]float32, 240), 50*time.Millisecond); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	wantPad := cfg.BytesForDuration(50 * time.Millisecond)
	wantLen := wantPad + 480
	s.mu.Lock()
	got := len(s.buf)
	s.mu.Unlock()
	if got != wantLen {
		t.Errorf("queue length = %d, want %d", got, wantLen)
	}
}

func TestSpeakerBackToBackNeedsNoPadding(t *testing.T) {
	s := newTestSpeaker()

	seg := make([]float32, 2400) // 100ms
	if err := s.ScheduleAt(seg, 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.ScheduleAt(seg, 100*time.Millisecond); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	s.mu.Lock()
	got := len(s.buf)
	s.mu.Unlock()
	if got != 2*2400*2 {
		t.Errorf("queue length = %d, want %d", got, 2*2400*2)
	}
}

func TestSpeakerFlushDropsQueueKeepsClock(t *testing.T) {
	s := newTestSpeaker()

	if err := s.ScheduleAt(make([]float32, 2400), 0); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	s.Read(make([]byte, 1000))
	before := s.Now()

	s.Flush()

	s.mu.Lock()
	queued := len(s.buf)
	s.mu.Unlock()
	if queued != 0 {
		t.Errorf("queue not empty after flush: %d bytes", queued)
	}
	if got := s.Now(); got != before {
		t.Errorf("flush moved the clock: %v -> %v", before, got)
	}
}

func TestSamplesFromF32Bytes(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(data[4:], math.Float32bits(-1.0))

	samples := samplesFromF32Bytes(data)
	if len(samples) != 2 || samples[0] != 0.25 || samples[1] != -1.0 {
		t.Errorf("samples = %v", samples)
	}
}
