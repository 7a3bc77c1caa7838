package testsupport

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"phono/internal/fingerprint"
)

// Sine generates mono samples mixing the given frequencies, in [-1, 1].
func Sine(freqs []float64, seconds float64, rate int) []float64 {
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / float64(rate)
		var v float64
		for _, f := range freqs {
			v += math.Sin(2 * math.Pi * f * t)
		}
		samples[i] = v / float64(len(freqs))
	}
	return samples
}

// Signature fingerprints generated audio, failing the test on error.
func Signature(t testing.TB, freqs []float64, seconds float64, rate int) fingerprint.Signature {
	t.Helper()
	sig, err := fingerprint.Compute(Sine(freqs, seconds, rate), rate, 0.1)
	if err != nil {
		t.Fatalf("fingerprint.Compute: %v", err)
	}
	return sig
}

// SignatureWithBits returns a copy of sig with the first n bits flipped,
// for constructing near-duplicates at a known Hamming distance.
func SignatureWithBits(sig fingerprint.Signature, n int) fingerprint.Signature {
	out := sig
	for bit := 0; bit < n && bit < fingerprint.Bits; bit++ {
		out[bit/8] ^= 1 << uint(bit%8)
	}
	return out
}

// WriteWAV writes 16-bit mono PCM to path, creating parent directories.
func WriteWAV(t testing.TB, path string, samples []float64, rate int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for wav: %v", err)
	}

	dataLen := len(samples) * 2
	buf := make([]byte, 0, 44+dataLen)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rate*2))
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataLen))
	for _, sample := range samples {
		clamped := math.Max(-1, math.Min(1, sample))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(clamped*32767)))
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}
