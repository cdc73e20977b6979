// Package device provides the real microphone and speaker backing a voice
// session, built on malgo for capture and oto for playback.
package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/murmurlabs/murmur/pkg/core/live"
)

// Devices acquires audio hardware on behalf of a session controller.
// One Devices value is shared across reconnects: the malgo context is
// process-wide and the oto context can only be created once.
type Devices struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	otoCtx *oto.Context
}

// Open initializes the audio backend.
func Open() (*Devices, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Devices{ctx: ctx}, nil
}

// OpenCapture acquires the default microphone.
func (d *Devices) OpenCapture(config live.AudioConfig) (live.CaptureDevice, error) {
	return newMicCapture(d.ctx.Context, config)
}

// OpenOutput acquires the speaker.
func (d *Devices) OpenOutput(config live.AudioConfig) (live.OutputDevice, error) {
	ctx, err := d.playbackContext(config)
	if err != nil {
		return nil, err
	}
	return newSpeakerOutput(ctx, config), nil
}

// playbackContext returns the process-wide oto context, creating it on first
// use.
func (d *Devices) playbackContext(config live.AudioConfig) (*oto.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.otoCtx != nil {
		return d.otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(playbackContextOptions(config))
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready
	d.otoCtx = ctx
	return ctx, nil
}

// playbackContextOptions shapes the oto context. BufferSize is a duration;
// 100ms keeps latency low without starving the device.
func playbackContextOptions(config live.AudioConfig) *oto.NewContextOptions {
	return &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
}

// Close releases the audio backend. Open devices must be closed first.
func (d *Devices) Close() error {
	if err := d.ctx.Uninit(); err != nil {
		return err
	}
	d.ctx.Free()
	return nil
}
