package fs

import (
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/parcel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes sha256 digests of installed payloads.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile returns the size and hex sha256 of the file at path.
func (h *Hasher) HashFile(path string) (int64, string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digester := digest.SHA256.Digester()
	size, err := io.Copy(digester.Hash(), f)
	if err != nil {
		return 0, "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return size, digester.Digest().Encoded(), nil
}
