package audio

import "encoding/binary"

// pcm16Scale converts between the int16 sample range and the [-1, 1]
// float32 range used internally by the recognizer pipeline.
const pcm16Scale = 32768.0

// DecodePCM16 converts little-endian 16-bit PCM samples into float32
// samples in [-1, 1]. Trailing odd bytes (a partial sample) are dropped.
func DecodePCM16(raw []byte) []float32 {
	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		out[i] = float32(v) / pcm16Scale
	}
	return out
}

// EncodePCM16 converts float32 samples in [-1, 1] back into little-endian
// 16-bit PCM bytes, clamping out-of-range samples.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * (pcm16Scale - 1))
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}
