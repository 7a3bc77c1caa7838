package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"phono/internal/fingerprint"
)

// decodeWAV reads a RIFF/WAVE file with 16-bit PCM samples, the only WAV
// variant the scanner recognizes.
func decodeWAV(path string) (Audio, error) {
	file, err := os.Open(path)
	if err != nil {
		return Audio{}, fmt.Errorf("%w: open wav: %v", fingerprint.ErrFingerprintUnavailable, err)
	}
	defer file.Close()

	var riff [12]byte
	if _, err := io.ReadFull(file, riff[:]); err != nil {
		return Audio{}, fmt.Errorf("%w: wav header: %v", fingerprint.ErrFingerprintUnavailable, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Audio{}, fmt.Errorf("%w: not a wav file", fingerprint.ErrFingerprintUnavailable)
	}

	info, err := file.Stat()
	if err != nil {
		return Audio{}, fmt.Errorf("%w: stat wav: %v", fingerprint.ErrFingerprintUnavailable, err)
	}

	var (
		channels   int
		sampleRate int
		byteRate   int
		bitsPer    int
		data       []byte
	)
	offset := int64(len(riff))
	for {
		var header [8]byte
		if _, err := io.ReadFull(file, header[:]); err != nil {
			if err == io.EOF {
				break
			}
			return Audio{}, fmt.Errorf("%w: wav chunk header: %v", fingerprint.ErrFingerprintUnavailable, err)
		}
		offset += int64(len(header))
		chunkID := string(header[0:4])
		size := int64(binary.LittleEndian.Uint32(header[4:8]))
		if size > info.Size()-offset {
			return Audio{}, fmt.Errorf("%w: wav chunk %q overruns file", fingerprint.ErrFingerprintUnavailable, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if size < 16 {
				return Audio{}, fmt.Errorf("%w: wav fmt chunk truncated", fingerprint.ErrFingerprintUnavailable)
			}
			fmtChunk := make([]byte, size)
			if _, err := io.ReadFull(file, fmtChunk); err != nil {
				return Audio{}, fmt.Errorf("%w: wav fmt chunk: %v", fingerprint.ErrFingerprintUnavailable, err)
			}
			if format := binary.LittleEndian.Uint16(fmtChunk[0:2]); format != 1 {
				return Audio{}, fmt.Errorf("%w: wav format %d is not PCM", fingerprint.ErrFingerprintUnavailable, format)
			}
			channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			byteRate = int(binary.LittleEndian.Uint32(fmtChunk[8:12]))
			bitsPer = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
		case "data":
			data = make([]byte, size)
			if _, err := io.ReadFull(file, data); err != nil {
				return Audio{}, fmt.Errorf("%w: wav data chunk: %v", fingerprint.ErrFingerprintUnavailable, err)
			}
		default:
			if _, err := file.Seek(size, io.SeekCurrent); err != nil {
				return Audio{}, fmt.Errorf("%w: wav seek: %v", fingerprint.ErrFingerprintUnavailable, err)
			}
		}
		offset += size

		// Chunks are word-aligned; an odd-sized chunk carries a pad byte.
		if size%2 != 0 {
			if _, err := file.Seek(1, io.SeekCurrent); err != nil {
				return Audio{}, fmt.Errorf("%w: wav seek: %v", fingerprint.ErrFingerprintUnavailable, err)
			}
			offset++
		}
	}

	if channels == 0 || sampleRate == 0 || data == nil {
		return Audio{}, fmt.Errorf("%w: wav missing fmt or data chunk", fingerprint.ErrFingerprintUnavailable)
	}
	if bitsPer != 16 {
		return Audio{}, fmt.Errorf("%w: wav bit depth %d unsupported", fingerprint.ErrFingerprintUnavailable, bitsPer)
	}

	frameBytes := channels * 2
	frames := len(data) / frameBytes
	samples := make([]float64, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			offset := i*frameBytes + c*2
			sample := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
			sum += float64(sample)
		}
		samples = append(samples, sum/float64(channels)/32768)
	}

	return Audio{
		Samples:    samples,
		SampleRate: sampleRate,
		Bitrate:    byteRate * 8 / 1000,
	}, nil
}
