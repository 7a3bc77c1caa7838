package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrFingerprintUnavailable indicates the audio could not be fingerprinted,
// either because decoded samples were missing or too short for a stable
// signature.
var ErrFingerprintUnavailable = errors.New("fingerprint unavailable")

const (
	// Bits is the fixed signature width.
	Bits = 1024
	// SizeBytes is the signature width in bytes.
	SizeBytes = Bits / 8

	// segments is the number of equal time slices the audio is folded into.
	// Each segment contributes bandsPerSegment bits of spectral shape.
	segments        = 32
	bandsPerSegment = Bits / segments

	// Band edges in Hz. bandsPerSegment+1 log-spaced probe frequencies give
	// bandsPerSegment adjacent-band comparisons per segment.
	bandLowHz  = 200.0
	bandHighHz = 4000.0
)

// Signature is a fixed-length acoustic fingerprint. Signatures of the same
// recording are identical; signatures of the same recording under lossy
// re-encoding differ by a small Hamming distance.
type Signature [SizeBytes]byte

// String renders the signature as lowercase hex.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// Parse decodes a hex-encoded signature.
func Parse(value string) (Signature, error) {
	var sig Signature
	raw, err := hex.DecodeString(value)
	if err != nil {
		return sig, fmt.Errorf("parse fingerprint: %w", err)
	}
	if len(raw) != SizeBytes {
		return sig, fmt.Errorf("parse fingerprint: expected %d bytes, got %d", SizeBytes, len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}

// FromBytes copies a raw signature, validating its length.
func FromBytes(raw []byte) (Signature, error) {
	var sig Signature
	if len(raw) != SizeBytes {
		return sig, fmt.Errorf("fingerprint: expected %d bytes, got %d", SizeBytes, len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}

// Compute derives a signature from decoded mono samples. Samples are expected
// in the range [-1, 1]. minSeconds is the policy floor below which no stable
// signature exists.
//
// The audio is split into a fixed number of equal segments; per segment, the
// energy at log-spaced probe frequencies is measured with the Goertzel
// recurrence and each bit records whether one band carries more energy than
// its upper neighbour. Comparing adjacent bands makes the signature
// insensitive to overall volume, and folding into fixed segments makes it
// length-independent, so the same recording fingerprints identically on every
// run.
func Compute(samples []float64, sampleRate int, minSeconds float64) (Signature, error) {
	var sig Signature
	if sampleRate <= 0 {
		return sig, fmt.Errorf("%w: sample rate %d", ErrFingerprintUnavailable, sampleRate)
	}
	if len(samples) == 0 {
		return sig, fmt.Errorf("%w: no samples", ErrFingerprintUnavailable)
	}
	duration := float64(len(samples)) / float64(sampleRate)
	if duration < minSeconds {
		return sig, fmt.Errorf("%w: %.2fs of audio, need at least %.2fs", ErrFingerprintUnavailable, duration, minSeconds)
	}

	freqs := probeFrequencies()
	bit := 0
	for seg := 0; seg < segments; seg++ {
		lo := seg * len(samples) / segments
		hi := (seg + 1) * len(samples) / segments
		window := samples[lo:hi]

		energies := make([]float64, len(freqs))
		for i, freq := range freqs {
			energies[i] = goertzel(window, freq, sampleRate)
		}
		for b := 0; b < bandsPerSegment; b++ {
			if energies[b] > energies[b+1] {
				sig[bit/8] |= 1 << uint(bit%8)
			}
			bit++
		}
	}
	return sig, nil
}

// Distance returns the Hamming distance between two signatures in bits.
func Distance(a, b Signature) int {
	total := 0
	for i := range a {
		total += bits.OnesCount8(a[i] ^ b[i])
	}
	return total
}

// FractionalDistance returns the Hamming distance as a fraction of total bits.
func FractionalDistance(a, b Signature) float64 {
	return float64(Distance(a, b)) / float64(Bits)
}

// Similar reports whether two signatures fall within the duplicate threshold,
// expressed as a maximum fraction of differing bits.
func Similar(a, b Signature, maxFraction float64) bool {
	return FractionalDistance(a, b) <= maxFraction
}

func probeFrequencies() []float64 {
	freqs := make([]float64, bandsPerSegment+1)
	ratio := bandHighHz / bandLowHz
	for i := range freqs {
		freqs[i] = bandLowHz * math.Pow(ratio, float64(i)/float64(bandsPerSegment))
	}
	return freqs
}

// goertzel measures signal energy at a single frequency.
func goertzel(samples []float64, freq float64, sampleRate int) float64 {
	if len(samples) == 0 {
		return 0
	}
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)
	var s0, s1, s2 float64
	for _, sample := range samples {
		s0 = sample + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		return 0
	}
	return power / float64(len(samples))
}
