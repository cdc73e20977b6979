package live

import (
	"sync"
	"time"
)

// TalkActivityDetector turns per-frame energy into a debounced "user talking"
// boolean. A frame whose RMS energy meets the threshold raises the flag
// immediately and re-arms a decay timer; the flag drops only once the hold
// window elapses without another qualifying frame. The hysteresis prevents
// flicker between words.
type TalkActivityDetector struct {
	config TalkConfig

	mu      sync.Mutex
	talking bool
	timer   *time.Timer

	onChange func(talking bool)
}

// NewTalkActivityDetector creates a detector with the given configuration.
func NewTalkActivityDetector(config TalkConfig) *TalkActivityDetector {
	if config.Threshold <= 0 {
		config.Threshold = DefaultTalkConfig().Threshold
	}
	if config.Hold <= 0 {
		config.Hold = DefaultTalkConfig().Hold
	}
	return &TalkActivityDetector{config: config}
}

// SetOnChange sets the callback invoked whenever the talking flag flips.
func (d *TalkActivityDetector) SetOnChange(fn func(talking bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// Feed processes one frame of samples.
func (d *TalkActivityDetector) Feed(samples []float32) {
	rms := RMSFloat32(samples)
	if rms < d.config.Threshold {
		return
	}

	d.mu.Lock()
	changed := !d.talking
	d.talking = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.config.Hold, d.decay)
	fn := d.onChange
	d.mu.Unlock()

	if changed && fn != nil {
		fn(true)
	}
}

// decay is called when the hold window elapses without renewal.
func (d *TalkActivityDetector) decay() {
	d.mu.Lock()
	changed := d.talking
	d.talking = false
	fn := d.onChange
	d.mu.Unlock()

	if changed && fn != nil {
		fn(false)
	}
}

// Talking returns whether the user is currently considered talking.
func (d *TalkActivityDetector) Talking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.talking
}

// Reset drops the flag and stops the decay timer without invoking callbacks.
func (d *TalkActivityDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.talking = false
}
