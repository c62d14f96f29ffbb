// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package truststore

import (
	"crypto/sha256"
	"crypto/x509"
)

// Store is an immutable set of trusted root certificates. The pool and the
// lookup index are built once in New and never modified, so a Store may be
// shared by any number of goroutines.
type Store struct {
	certs []*x509.Certificate
	pool  *x509.CertPool
	index map[[sha256.Size]byte]*x509.Certificate
}

// New creates a Store from certs. Nil entries are skipped and duplicate
// certificates (by DER encoding) are kept once. Returns ErrEmptyStore when
// nothing remains.
func New(certs ...*x509.Certificate) (*Store, error) {
	s := &Store{
		pool:  x509.NewCertPool(),
		index: make(map[[sha256.Size]byte]*x509.Certificate, len(certs)),
	}
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		key := sha256.Sum256(cert.Raw)
		if _, dup := s.index[key]; dup {
			continue
		}
		s.index[key] = cert
		s.certs = append(s.certs, cert)
		s.pool.AddCert(cert)
	}
	if len(s.certs) == 0 {
		return nil, ErrEmptyStore
	}
	return s, nil
}

// Pool returns the certificate pool used as verification roots. Callers must
// not add certificates to it.
func (s *Store) Pool() *x509.CertPool {
	return s.pool
}

// Certificates returns a copy of the trusted certificates in insertion order.
func (s *Store) Certificates() []*x509.Certificate {
	out := make([]*x509.Certificate, len(s.certs))
	copy(out, s.certs)
	return out
}

// Lookup returns the store's own copy of cert if an identical certificate
// (same DER encoding) is trusted.
func (s *Store) Lookup(cert *x509.Certificate) (*x509.Certificate, bool) {
	if cert == nil {
		return nil, false
	}
	found, ok := s.index[sha256.Sum256(cert.Raw)]
	return found, ok
}

// Contains reports whether cert is trusted by the store.
func (s *Store) Contains(cert *x509.Certificate) bool {
	_, ok := s.Lookup(cert)
	return ok
}

// Len returns the number of distinct trusted certificates.
func (s *Store) Len() int {
	return len(s.certs)
}
