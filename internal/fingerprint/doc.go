// Package fingerprint computes fixed-length acoustic signatures from decoded
// audio samples and compares them by Hamming distance.
//
// Signatures encode relative spectral shape over fixed time segments, so the
// same recording always produces the same signature and lossy re-encodings
// land within a small distance. The duplicate threshold itself is policy and
// lives in configuration; this package only measures.
package fingerprint
