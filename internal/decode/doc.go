// Package decode turns local audio files into normalized mono sample buffers
// for the fingerprint generator. It is deliberately small: FLAC and 16-bit
// PCM WAV decode natively, everything else reports fingerprint unavailability
// and is handled as a per-file scan failure.
package decode
