package live

import (
	"fmt"
	"math"
)

// RMSFloat32 computes the root-mean-square energy of a float32 sample frame.
// Samples are expected in the range -1.0 to 1.0.
func RMSFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// PCM16FromFloat32 converts float32 samples in [-1, 1] to 16-bit signed
// little-endian PCM. The clamp is symmetric: +1.0 maps to 32767 and -1.0
// maps to -32768; values outside the range are clamped.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s <= -1.0:
			v = -32768
		case s >= 0:
			v = int16(s * 32767.0)
		default:
			v = int16(s * 32768.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Float32FromPCM16 converts 16-bit signed little-endian PCM to float32
// samples in [-1, 1]. A trailing odd byte is ignored.
func Float32FromPCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// pcmMIMEType builds the mime descriptor for raw 16-bit PCM at the given rate.
func pcmMIMEType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// EncodedChunk is an immutable binary payload plus its mime descriptor,
// as sent to or received from the remote session.
type EncodedChunk struct {
	Data     []byte
	MIMEType string
}
