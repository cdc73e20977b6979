package live

import (
	"testing"
	"time"
)

func TestCaptureProcessorForwardsEncodedFrames(t *testing.T) {
	var sent []EncodedChunk
	p := NewCaptureProcessor(CaptureAudioConfig(), nil, alwaysActive, func(chunk EncodedChunk) {
		sent = append(sent, chunk)
	})

	p.OnFrame([]float32{0.0, 1.0, -1.0})

	if len(sent) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(sent))
	}
	if sent[0].MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime = %q", sent[0].MIMEType)
	}
	want := []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80}
	if len(sent[0].Data) != len(want) {
		t.Fatalf("payload length = %d, want %d", len(sent[0].Data), len(want))
	}
	for i := range want {
		if sent[0].Data[i] != want[i] {
			t.Errorf("payload byte %d = %#x, want %#x", i, sent[0].Data[i], want[i])
		}
	}
}

func TestCaptureProcessorDropsFramesWhenInactive(t *testing.T) {
	var sent int
	p := NewCaptureProcessor(CaptureAudioConfig(), nil, func() bool { return false }, func(EncodedChunk) {
		sent++
	})

	p.OnFrame(loudFrame(160))

	if sent != 0 {
		t.Errorf("inactive processor forwarded %d chunks", sent)
	}
}

func TestCaptureProcessorFeedsDetectorWhileInactive(t *testing.T) {
	d := NewTalkActivityDetector(TalkConfig{Threshold: 0.1, Hold: time.Second})
	p := NewCaptureProcessor(CaptureAudioConfig(), d, func() bool { return false }, nil)

	p.OnFrame(loudFrame(160))

	if !d.Talking() {
		t.Error("detector not fed when session inactive")
	}
}

func TestCaptureProcessorSkipsEmptyFrames(t *testing.T) {
	var sent int
	p := NewCaptureProcessor(CaptureAudioConfig(), nil, alwaysActive, func(EncodedChunk) {
		sent++
	})

	p.OnFrame(nil)
	p.OnFrame([]float32{})

	if sent != 0 {
		t.Errorf("empty frames produced %d chunks", sent)
	}
}
