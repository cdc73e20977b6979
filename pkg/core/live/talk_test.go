package live

import (
	"sync"
	"testing"
	"time"
)

func loudFrame(n int) []float32 {
	frame := make([]float32, n)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = 0.5
		} else {
			frame[i] = -0.5
		}
	}
	return frame
}

func TestTalkDetectorRaisesOnSpeech(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: time.Second})

	if d.Talking() {
		t.Fatal("detector started in talking state")
	}

	d.Feed(loudFrame(160))
	if !d.Talking() {
		t.Error("loud frame did not raise talking flag")
	}
}

func TestTalkDetectorIgnoresSilence(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: time.Second})

	d.Feed(make([]float32, 160))
	d.Feed(nil)
	if d.Talking() {
		t.Error("silent frames raised talking flag")
	}
}

func TestTalkDetectorHoldDecay(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: 40 * time.Millisecond})

	d.Feed(loudFrame(160))
	if !d.Talking() {
		t.Fatal("flag not raised")
	}

	// Within the hold window the flag stays up.
	time.Sleep(15 * time.Millisecond)
	if !d.Talking() {
		t.Error("flag dropped before hold elapsed")
	}

	time.Sleep(150 * time.Millisecond)
	if d.Talking() {
		t.Error("flag did not drop after hold elapsed")
	}
}

func TestTalkDetectorRenewalExtendsHold(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: 60 * time.Millisecond})

	d.Feed(loudFrame(160))
	time.Sleep(35 * time.Millisecond)
	d.Feed(loudFrame(160))
	time.Sleep(35 * time.Millisecond)

	// 70ms after the first frame but only 35ms after the renewal.
	if !d.Talking() {
		t.Error("renewal did not extend the hold window")
	}
}

func TestTalkDetectorCallbackFiresOncePerFlip(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: 30 * time.Millisecond})

	var mu sync.Mutex
	var flips []bool
	d.SetOnChange(func(talking bool) {
		mu.Lock()
		flips = append(flips, talking)
		mu.Unlock()
	})

	d.Feed(loudFrame(160))
	d.Feed(loudFrame(160))
	d.Feed(loudFrame(160))
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(flips) != 2 || !flips[0] || flips[1] {
		t.Errorf("expected [true false], got %v", flips)
	}
}

func TestTalkDetectorResetIsSilent(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: 30 * time.Millisecond})

	var mu sync.Mutex
	var flips []bool
	d.SetOnChange(func(talking bool) {
		mu.Lock()
		flips = append(flips, talking)
		mu.Unlock()
	})

	d.Feed(loudFrame(160))
	d.Reset()

	if d.Talking() {
		t.Error("flag up after reset")
	}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(flips) != 1 || !flips[0] {
		t.Errorf("reset invoked callbacks: %v", flips)
	}
}

func TestTalkDetectorDefaultsZeroConfig(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{})
	if d.config.Threshold != DefaultTalkConfig().Threshold {
		t.Errorf("threshold default not applied: %v", d.config.Threshold)
	}
	if d.config.Hold != DefaultTalkConfig().Hold {
		t.Errorf("hold default not applied: %v", d.config.Hold)
	}
}
