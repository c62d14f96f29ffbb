// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Chain is a certificate chain ordered leaf first, followed by zero or more
// intermediates and optionally the root. The caller guarantees the order.
type Chain []*x509.Certificate

// ChainIdentity is the cache key of a chain. Chains holding byte-identical
// certificates in the same order share an identity.
type ChainIdentity [sha256.Size]byte

// String returns the hex encoding of the identity.
func (id ChainIdentity) String() string {
	return hex.EncodeToString(id[:])
}

// ParseChain parses DER-encoded certificates as presented by a TLS peer.
func ParseChain(raw [][]byte) (Chain, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyChain
	}
	chain := make(Chain, 0, len(raw))
	for i, der := range raw {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("pinning: parse certificate %d: %w", i, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

// Leaf returns the end-entity certificate, or nil for an empty chain.
func (c Chain) Leaf() *x509.Certificate {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// Intermediates returns a pool holding every certificate after the leaf.
func (c Chain) Intermediates() *x509.CertPool {
	pool := x509.NewCertPool()
	if len(c) < 2 {
		return pool
	}
	for _, cert := range c[1:] {
		pool.AddCert(cert)
	}
	return pool
}

// Identity hashes each certificate's DER prefixed with its 4-byte length, so
// different splits of the same byte stream never collide. Nil entries are
// skipped.
func (c Chain) Identity() ChainIdentity {
	h := sha256.New()
	var length [4]byte
	for _, cert := range c {
		if cert == nil {
			continue
		}
		binary.BigEndian.PutUint32(length[:], uint32(len(cert.Raw))) //nolint:gosec // DER certificates are far below 4 GiB
		h.Write(length[:])
		h.Write(cert.Raw)
	}
	var id ChainIdentity
	h.Sum(id[:0])
	return id
}

// wellFormed rejects empty chains and chains holding a nil certificate.
func (c Chain) wellFormed() error {
	if len(c) == 0 {
		return newCertificateError(ReasonEmptyChain, nil)
	}
	for i, cert := range c {
		if cert == nil {
			return newCertificateError(ReasonEmptyChain, fmt.Errorf("certificate %d is nil", i))
		}
	}
	return nil
}
