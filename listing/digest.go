package listing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/spf13/afero"
)

// Digest returns the hex sha256 of the raw, still compressed listing
// artifact. Comparing digests of the cached and the freshly fetched
// artifact is the integrity gate deciding whether anything changed
// upstream at all.
func Digest(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
