package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher computes content digests of archives and strings
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

func (h *Hasher) newHash() hash.Hash {
	switch h.algorithm {
	case SHA256:
		return sha256.New()
	default:
		return sha256.New()
	}
}

// HashReader streams r through the digest
func (h *Hasher) HashReader(r io.Reader) (string, int64, error) {
	d := h.newHash()
	n, err := io.Copy(d, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(d.Sum(nil)), n, nil
}

// HashFile computes the digest and size of the file at path
func (h *Hasher) HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sum, n, err := h.HashReader(f)
	if err != nil {
		return "", n, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, n, nil
}

// EqualDigest compares two hex digests ignoring case and surrounding space
func EqualDigest(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
