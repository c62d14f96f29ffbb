// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"crypto/sha1" //nolint:gosec // legacy pins are SHA-1 digests of the SPKI
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Digest identifies the hash function used to turn a SubjectPublicKeyInfo
// into a fingerprint. Pins are computed out-of-band, so the digest used to
// verify must be the digest used to generate: switching digests invalidates
// every configured pin.
type Digest uint8

const (
	// DigestSHA256 is the default digest (32-byte fingerprints).
	DigestSHA256 Digest = iota

	// DigestSHA1 produces 20-byte fingerprints. It exists for pins generated
	// by older tooling and should not be chosen for new deployments.
	DigestSHA1

	// DigestSHA384 produces 48-byte fingerprints.
	DigestSHA384

	// DigestSHA512 produces 64-byte fingerprints.
	DigestSHA512

	// DigestSHA3_256 produces 32-byte SHA3-256 fingerprints.
	DigestSHA3_256

	// DigestBLAKE2b256 produces 32-byte BLAKE2b-256 fingerprints.
	DigestBLAKE2b256
)

// DefaultDigest is used when no digest is configured.
const DefaultDigest = DigestSHA256

type digestInfo struct {
	name string
	size int
	new  func() hash.Hash
}

// digests provides O(1) lookup for digest metadata.
var digests = map[Digest]digestInfo{
	DigestSHA256:     {"sha256", sha256.Size, sha256.New},
	DigestSHA1:       {"sha1", sha1.Size, sha1.New},
	DigestSHA384:     {"sha384", sha512.Size384, sha512.New384},
	DigestSHA512:     {"sha512", sha512.Size, sha512.New},
	DigestSHA3_256:   {"sha3-256", 32, sha3.New256},
	DigestBLAKE2b256: {"blake2b-256", blake2b.Size256, newBLAKE2b256},
}

// newBLAKE2b256 adapts blake2b.New256 to a plain hash constructor. New256
// only fails for keys longer than 64 bytes and no key is used here.
func newBLAKE2b256() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

// ParseDigest maps a digest name (case-insensitive, e.g. "sha256", "SHA-1")
// to a Digest. An empty name selects DefaultDigest.
func ParseDigest(name string) (Digest, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return DefaultDigest, nil
	}
	normalized = strings.Replace(normalized, "sha-", "sha", 1)
	for d, info := range digests {
		if info.name == normalized {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDigest, name)
}

// Digests returns the names of all supported digests.
func Digests() []string {
	return []string{"sha256", "sha1", "sha384", "sha512", "sha3-256", "blake2b-256"}
}

// Valid reports whether d is a known digest.
func (d Digest) Valid() bool {
	_, ok := digests[d]
	return ok
}

// String returns the canonical digest name.
func (d Digest) String() string {
	if info, ok := digests[d]; ok {
		return info.name
	}
	return fmt.Sprintf("Digest(%d)", uint8(d))
}

// Size returns the digest output length in bytes, or 0 for an unknown digest.
func (d Digest) Size() int {
	return digests[d].size
}

// Sum hashes data. It panics for an unknown digest; callers validate digests
// at construction time.
func (d Digest) Sum(data []byte) []byte {
	info, ok := digests[d]
	if !ok {
		panic(fmt.Sprintf("spkipin: Sum called with unknown digest %d", uint8(d)))
	}
	h := info.new()
	h.Write(data)
	return h.Sum(nil)
}
