// Package storage keeps recorded answer audio. Blobs are opaque
// (single-channel 16 kHz WAV by contract); only the transcription
// collaborator ever interprets them.
package storage

import "io"

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}
