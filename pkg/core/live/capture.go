package live

// CaptureProcessor handles raw frames from the capture device. Each frame is
// fed to the talk detector, converted to 16-bit PCM, wrapped with the wire
// mime descriptor, and handed to the controller's outbound path while the
// session is still logically active. Frames arrive at the device's natural
// cadence and are processed synchronously; nothing is buffered.
type CaptureProcessor struct {
	config   AudioConfig
	detector *TalkActivityDetector
	active   func() bool
	outbound func(EncodedChunk)
}

// NewCaptureProcessor creates a processor forwarding encoded frames through
// the outbound func. The active func is the session liveness check consulted
// before any payload is constructed.
func NewCaptureProcessor(config AudioConfig, detector *TalkActivityDetector, active func() bool, outbound func(EncodedChunk)) *CaptureProcessor {
	return &CaptureProcessor{
		config:   config,
		detector: detector,
		active:   active,
		outbound: outbound,
	}
}

// OnFrame processes one capture frame of float32 samples in [-1, 1].
func (c *CaptureProcessor) OnFrame(samples []float32) {
	if len(samples) == 0 {
		return
	}

	// The talk signal keeps updating regardless of whether the frame is
	// forwarded; teardown resets the detector separately.
	if c.detector != nil {
		c.detector.Feed(samples)
	}

	// First liveness check, before the payload is built. The outbound path
	// re-checks immediately before transmission.
	if c.active != nil && !c.active() {
		return
	}
	if c.outbound == nil {
		return
	}

	c.outbound(EncodedChunk{
		Data:     PCM16FromFloat32(samples),
		MIMEType: c.config.MIMEType(),
	})
}
