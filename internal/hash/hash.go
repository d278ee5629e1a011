package hash

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
)

// chunkSize is the fixed read size used when hashing a stream. The digest is
// independent of how the input was chunked.
const chunkSize = 1024

// Sum computes the base64-encoded SHA-256 digest of everything read from r,
// consuming it in fixed-size chunks.
func Sum(r io.Reader) (string, error) {
	digest := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading input for hashing: %w", err)
		}
	}
	return base64.StdEncoding.EncodeToString(digest.Sum(nil)), nil
}

// SumBytes computes the base64-encoded SHA-256 digest of a byte slice.
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SumString computes the base64-encoded SHA-256 digest of a string.
func SumString(s string) string {
	return SumBytes([]byte(s))
}

// SumFile computes the digest of a file on disk, streamed.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	return Sum(f)
}
