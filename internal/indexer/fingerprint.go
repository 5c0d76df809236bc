package indexer

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/lunar-hook/sessionidx/internal/scan"
)

// fingerprint summarizes a source file for change detection. The default
// is an md5 over "size:mtime". Strict mode hashes the content itself,
// trading speed for exactness.
func fingerprint(fi scan.FileInfo, strict bool) (string, error) {
	if strict {
		return contentHash(fi.Path)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%d", fi.Size, fi.Mtime.UnixNano())))
	return hex.EncodeToString(sum[:]), nil
}

func contentHash(path string) (string, error) {
	f, err := os.Open(path)
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
