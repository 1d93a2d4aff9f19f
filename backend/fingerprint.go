package backend

import farm "github.com/dgryski/go-farm"

// Fingerprint content-hashes a blob for the test harness's corruption/
// round-trip detector. It is not part of the wire format — two blobs
// with different fingerprints are definitely different, but the
// fingerprint itself is never written to or read from the stream. The
// same role go-farm plays in the teacher's fusion/kmer_index.go:
// an internal, non-wire hash.
func Fingerprint(data []byte) uint64 {
	return farm.Hash64(data)
}
