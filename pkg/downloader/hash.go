package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// HashString generates a short SHA256 prefix used to keep cached
// downloads from different sources apart.
// It should not be used for cryptographic operations.
func HashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:12]
}

// digestWriter tees everything written to w into a SHA256 hash.
type digestWriter struct {
	w io.Writer
	h hash.Hash
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, h: sha256.New()}
}

func (d *digestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.h.Write(p[:n])
	return n, err
}

func (d *digestWriter) Sum() string {
	return "sha256:" + hex.EncodeToString(d.h.Sum(nil))
}
