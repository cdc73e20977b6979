package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/murmurlabs/murmur/pkg/core/live"
)

// micCapture wraps a malgo capture device delivering float32 frames.
type micCapture struct {
	device *malgo.Device

	mu      sync.Mutex
	onFrame func([]float32)
	closed  bool
}

func newMicCapture(ctx malgo.Context, config live.AudioConfig) (*micCapture, error) {
	m := &micCapture{}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(config.Channels)
	deviceConfig.SampleRate = uint32(config.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.mu.Lock()
			fn := m.onFrame
			m.mu.Unlock()
			if fn != nil {
				fn(samplesFromF32Bytes(input))
			}
		},
	}

	device, err := malgo.InitDevice(ctx, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init microphone: %w", err)
	}
	m.device = device
	return m, nil
}

// Start begins frame delivery.
func (m *micCapture) Start(onFrame func([]float32)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("microphone closed")
	}
	m.onFrame = onFrame
	m.mu.Unlock()

	if err := m.device.Start(); err != nil {
		return fmt.Errorf("start microphone: %w", err)
	}
	return nil
}

// Close stops capture and releases the device.
func (m *micCapture) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.onFrame = nil
	m.mu.Unlock()

	_ = m.device.Stop()
	m.device.Uninit()
	return nil
}

// samplesFromF32Bytes reinterprets little-endian float32 PCM bytes.
func samplesFromF32Bytes(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
