// Package checksum provides fast content digests for snapshot manifests
// and diff short-circuiting.
package checksum

import (
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Sum returns the xxh3 64-bit digest of data.
func Sum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// SumFile streams the file at path through xxh3 and returns its digest.
func SumFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
