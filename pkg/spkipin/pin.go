// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package spkipin

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint is the digest of a certificate's SubjectPublicKeyInfo.
// Two fingerprints are equal only if their bytes are identical.
type Fingerprint []byte

// String returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f)
}

// Equal reports whether f and other contain the same bytes.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return bytes.Equal(f, other)
}

// ComputeFingerprint hashes the certificate's raw SubjectPublicKeyInfo with
// the given digest.
func ComputeFingerprint(d Digest, cert *x509.Certificate) Fingerprint {
	return Fingerprint(d.Sum(cert.RawSubjectPublicKeyInfo))
}

// ComputeSPKIPin computes the SHA-256 hash of a certificate's SubjectPublicKeyInfo (SPKI).
// Returns the hex-encoded hash string.
func ComputeSPKIPin(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(hash[:])
}

// PinSet is an immutable set of fingerprints computed with a single digest.
// It is safe for concurrent use.
type PinSet struct {
	digest Digest
	pins   map[string]struct{}
}

// NewPinSet parses hex-encoded pins into a PinSet. Surrounding whitespace is
// ignored and hex is accepted in either case. Construction fails if the list
// is empty, if any entry is blank, not hex, of odd length, or not exactly
// d.Size() bytes long once decoded. Duplicate pins collapse into one entry.
func NewPinSet(d Digest, pins ...string) (*PinSet, error) {
	if !d.Valid() {
		return nil, ErrUnsupportedDigest
	}
	if len(pins) == 0 {
		return nil, ErrNoPinConfigured
	}

	set := &PinSet{
		digest: d,
		pins:   make(map[string]struct{}, len(pins)),
	}
	for i, pin := range pins {
		fp, err := parsePin(d, pin)
		if err != nil {
			return nil, wrapPinError(err, i, pin)
		}
		set.pins[string(fp)] = struct{}{}
	}
	return set, nil
}

// parsePin decodes a single hex pin and checks its length against the digest.
func parsePin(d Digest, pin string) (Fingerprint, error) {
	normalized := strings.ToLower(strings.TrimSpace(pin))
	if normalized == "" {
		return nil, ErrNoPinConfigured
	}
	if len(normalized)%2 != 0 {
		return nil, ErrInvalidPinFormat
	}
	raw, err := hex.DecodeString(normalized)
	if err != nil {
		return nil, ErrInvalidPinFormat
	}
	if len(raw) != d.Size() {
		return nil, ErrInvalidPinFormat
	}
	return Fingerprint(raw), nil
}

// Digest returns the digest every pin in the set was computed with.
func (s *PinSet) Digest() Digest {
	return s.digest
}

// Len returns the number of distinct pins.
func (s *PinSet) Len() int {
	return len(s.pins)
}

// Contains reports whether fp is one of the configured pins.
func (s *PinSet) Contains(fp Fingerprint) bool {
	_, ok := s.pins[string(fp)]
	return ok
}

// Fingerprint computes the fingerprint of cert using the set's digest.
func (s *PinSet) Fingerprint(cert *x509.Certificate) Fingerprint {
	return ComputeFingerprint(s.digest, cert)
}

// Match returns the fingerprint of the first certificate whose SPKI is
// pinned. Nil certificates are skipped.
func (s *PinSet) Match(certs ...*x509.Certificate) (Fingerprint, bool) {
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		fp := s.Fingerprint(cert)
		if s.Contains(fp) {
			return fp, true
		}
	}
	return nil, false
}

// Pins returns the configured pins as sorted lowercase hex strings.
func (s *PinSet) Pins() []string {
	out := make([]string, 0, len(s.pins))
	for raw := range s.pins {
		out = append(out, hex.EncodeToString([]byte(raw)))
	}
	sort.Strings(out)
	return out
}
