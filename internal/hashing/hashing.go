// Package hashing computes content digests for dependency artifacts found on disk.
package hashing

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Hasher computes the SHA-1 digest of a file
type Hasher interface {
	SHA1(path string) (string, error)
}

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// FileHasher hashes files and remembers recent digests. An entry is reused
// only while the file's size and modification time are unchanged.
type FileHasher struct {
	cache *lru.Cache[cacheKey, string]
}

// NewFileHasher creates a hasher caching up to size digests
func NewFileHasher(size int) (*FileHasher, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest cache: %w", err)
	}
	return &FileHasher{cache: cache}, nil
}

// SHA1 returns the lowercase hex SHA-1 of the file at path
func (h *FileHasher) SHA1(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if digest, ok := h.cache.Get(key); ok {
		return digest, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum := sha1.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	digest := hex.EncodeToString(sum.Sum(nil))
	h.cache.Add(key, digest)
	return digest, nil
}

// Len returns the number of cached digests
func (h *FileHasher) Len() int {
	return h.cache.Len()
}
