package decode

import "os"

// estimateBitrate derives an average kbit/s figure from the encoded file size
// when the codec does not carry a nominal bitrate. Good enough for quality
// ranking between encodings of the same recording.
func estimateBitrate(path string, durationSecs float64) int {
	if durationSecs <= 0 {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return int(float64(info.Size()) * 8 / durationSecs / 1000)
}
