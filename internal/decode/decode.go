package decode

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mewkiz/flac"

	"phono/internal/fingerprint"
)

// Audio is a decoded mono sample buffer ready for fingerprinting. Samples are
// normalized to [-1, 1]; multi-channel sources are averaged down to mono.
type Audio struct {
	Samples    []float64
	SampleRate int
	// Bitrate is the average encoded bitrate in kbit/s, estimated from the
	// container when the codec does not declare one.
	Bitrate int
}

// Duration returns the decoded length in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// FileDecoder decodes local audio files by extension. Formats without a
// decoder fail with a fingerprint-unavailable error so a scan pass records
// the file as failed instead of aborting.
type FileDecoder struct{}

// Decode reads and decodes the file at path.
func (FileDecoder) Decode(path string) (Audio, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return decodeFLAC(path)
	case ".wav":
		return decodeWAV(path)
	default:
		return Audio{}, fmt.Errorf("%w: no decoder for %q files", fingerprint.ErrFingerprintUnavailable, filepath.Ext(path))
	}
}

func decodeFLAC(path string) (Audio, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: parse flac: %v", fingerprint.ErrFingerprintUnavailable, err)
	}
	defer stream.Close()

	info := stream.Info
	if info.BitsPerSample == 0 || info.SampleRate == 0 {
		return Audio{}, fmt.Errorf("%w: flac stream info incomplete", fingerprint.ErrFingerprintUnavailable)
	}
	scale := float64(int64(1) << (info.BitsPerSample - 1))

	samples := make([]float64, 0, int(info.NSamples))
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Audio{}, fmt.Errorf("%w: decode flac frame: %v", fingerprint.ErrFingerprintUnavailable, err)
		}
		channels := len(frame.Subframes)
		if channels == 0 {
			continue
		}
		for i := 0; i < len(frame.Subframes[0].Samples); i++ {
			var sum float64
			for _, sub := range frame.Subframes {
				sum += float64(sub.Samples[i])
			}
			samples = append(samples, sum/float64(channels)/scale)
		}
	}

	audio := Audio{
		Samples:    samples,
		SampleRate: int(info.SampleRate),
	}
	audio.Bitrate = estimateBitrate(path, audio.Duration())
	return audio, nil
}
