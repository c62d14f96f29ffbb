// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// AnchorResolver finds the trusted root that closes a chain. A nil
// certificate with a nil error means no anchor was found, which is not a
// failure. A non-nil error is an internal resolution failure.
type AnchorResolver interface {
	Resolve(chain Chain) (*x509.Certificate, error)
}

// ResolverFunc adapts an ordinary function to an AnchorResolver.
type ResolverFunc func(chain Chain) (*x509.Certificate, error)

// Resolve calls f(chain).
func (f ResolverFunc) Resolve(chain Chain) (*x509.Certificate, error) {
	return f(chain)
}

// TrustAnchorResolver builds a certification path from a chain to the trust
// store and reports the root that closed it, even when the peer never sent
// that root. Revocation is not checked.
type TrustAnchorResolver struct {
	store *truststore.Store
	clock clockwork.Clock
}

// NewTrustAnchorResolver creates a resolver over store. A nil clock selects
// the real clock.
func NewTrustAnchorResolver(store *truststore.Store, clock clockwork.Clock) (*TrustAnchorResolver, error) {
	if store == nil {
		return nil, ErrNoTrustStore
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TrustAnchorResolver{store: store, clock: clock}, nil
}

// Resolve returns the trust store's copy of the anchor selected for chain,
// so its fingerprint is computed from the store's SPKI bytes rather than
// from a certificate the peer supplied.
func (r *TrustAnchorResolver) Resolve(chain Chain) (*x509.Certificate, error) {
	if err := chain.wellFormed(); err != nil {
		return nil, err
	}

	paths, err := chain.Leaf().Verify(x509.VerifyOptions{
		Roots:         r.store.Pool(),
		Intermediates: chain.Intermediates(),
		CurrentTime:   r.clock.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		if isNoPath(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		root := path[len(path)-1]
		if anchor, ok := r.store.Lookup(root); ok {
			return anchor, nil
		}
		return nil, fmt.Errorf("pinning: selected anchor %q is not in the trust store", root.Subject.String())
	}
	return nil, nil
}

// isNoPath reports whether err means no valid path to a trusted root exists.
func isNoPath(err error) bool {
	var (
		unknownAuthority  x509.UnknownAuthorityError
		certInvalid       x509.CertificateInvalidError
		constraint        x509.ConstraintViolationError
		unhandledCritical x509.UnhandledCriticalExtension
		insecureAlgorithm x509.InsecureAlgorithmError
	)
	switch {
	case errors.As(err, &unknownAuthority),
		errors.As(err, &certInvalid),
		errors.As(err, &constraint),
		errors.As(err, &unhandledCritical),
		errors.As(err, &insecureAlgorithm):
		return true
	}
	return false
}
