// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-pintrust/internal/testpki"
	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// hierarchy is a root, an intermediate signed by it and a leaf signed by the
// intermediate.
type hierarchy struct {
	root  *testpki.Cert
	inter *testpki.Cert
	leaf  *testpki.Cert
}

func newHierarchy(t *testing.T, name string) *hierarchy {
	t.Helper()
	root := testpki.Root(t, name+" Root CA")
	inter := root.Intermediate(t, name+" Issuing CA")
	leaf := inter.Leaf(t, name+".example.com", name+".example.com", "127.0.0.1")
	return &hierarchy{root: root, inter: inter, leaf: leaf}
}

// chain returns [leaf, intermediate].
func (h *hierarchy) chain() Chain {
	return Chain{h.leaf.Certificate, h.inter.Certificate}
}

func newStore(t *testing.T, roots ...*testpki.Cert) *truststore.Store {
	t.Helper()
	certs := make([]*x509.Certificate, 0, len(roots))
	for _, r := range roots {
		certs = append(certs, r.Certificate)
	}
	store, err := truststore.New(certs...)
	require.NoError(t, err)
	return store
}

func pinsFor(t *testing.T, certs ...*testpki.Cert) *spkipin.PinSet {
	t.Helper()
	pins := make([]string, 0, len(certs))
	for _, c := range certs {
		pins = append(pins, spkipin.ComputeSPKIPin(c.Certificate))
	}
	set, err := spkipin.NewPinSet(spkipin.DigestSHA256, pins...)
	require.NoError(t, err)
	return set
}

// countingResolver records how often the wrapped resolver runs.
type countingResolver struct {
	next  AnchorResolver
	calls atomic.Int32
}

func (r *countingResolver) Resolve(chain Chain) (*x509.Certificate, error) {
	r.calls.Add(1)
	return r.next.Resolve(chain)
}

// countingValidator records how often the wrapped validator runs.
type countingValidator struct {
	next  ChainValidator
	calls atomic.Int32
}

func (v *countingValidator) Validate(chain Chain, authType string) error {
	v.calls.Add(1)
	return v.next.Validate(chain, authType)
}

var acceptAll = ChainValidatorFunc(func(Chain, string) error { return nil })

var errResolverBroken = errors.New("resolver broken")
