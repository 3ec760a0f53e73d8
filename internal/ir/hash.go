package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStream     = "loom/stream/v1"
	DomainDescriptor = "loom/descriptor/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content-addressed identity of a stream.
// Stable across restarts and across Unicode-equivalent symbol spellings
// (canonical encoding NFC-normalizes).
func (s *Stream) Hash() (string, error) {
	canonical, err := MarshalCanonical(s.canonicalValue())
	if err != nil {
		return "", fmt.Errorf("stream hash: %w", err)
	}
	return HashWithDomain(DomainStream, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the stream is known to contain no Refs.
func (s *Stream) MustHash() string {
	h, err := s.Hash()
	if err != nil {
		panic(err)
	}
	return h
}
