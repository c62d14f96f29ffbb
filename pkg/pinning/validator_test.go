// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemChainValidator_NoStore(t *testing.T) {
	v, err := NewSystemChainValidator(nil, nil)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrNoTrustStore)
}

func TestSystemChainValidator_Valid(t *testing.T) {
	h := newHierarchy(t, "acme")
	v, err := NewSystemChainValidator(newStore(t, h.root), nil)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(h.chain(), "ECDSA"))
}

func TestSystemChainValidator_UntrustedRoot(t *testing.T) {
	h := newHierarchy(t, "acme")
	other := newHierarchy(t, "other")
	v, err := NewSystemChainValidator(newStore(t, other.root), nil)
	require.NoError(t, err)

	err = v.Validate(h.chain(), "ECDSA")
	var unknown x509.UnknownAuthorityError
	assert.ErrorAs(t, err, &unknown)
}

func TestSystemChainValidator_MissingIntermediate(t *testing.T) {
	h := newHierarchy(t, "acme")
	v, err := NewSystemChainValidator(newStore(t, h.root), nil)
	require.NoError(t, err)

	assert.Error(t, v.Validate(Chain{h.leaf.Certificate}, "ECDSA"))
}

func TestSystemChainValidator_Expired(t *testing.T) {
	h := newHierarchy(t, "acme")
	clock := clockwork.NewFakeClockAt(time.Now().Add(72 * time.Hour))
	v, err := NewSystemChainValidator(newStore(t, h.root), clock)
	require.NoError(t, err)

	err = v.Validate(h.chain(), "ECDSA")
	var invalid x509.CertificateInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, x509.Expired, invalid.Reason)
}

func TestSystemChainValidator_EmptyChain(t *testing.T) {
	h := newHierarchy(t, "acme")
	v, err := NewSystemChainValidator(newStore(t, h.root), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Validate(nil, "ECDSA"), ErrEmptyChain)
	assert.ErrorIs(t, v.Validate(Chain{nil}, "ECDSA"), ErrEmptyChain)
}

func TestChainValidatorFunc(t *testing.T) {
	var gotAuth string
	f := ChainValidatorFunc(func(_ Chain, authType string) error {
		gotAuth = authType
		return nil
	})

	require.NoError(t, f.Validate(nil, "RSA"))
	assert.Equal(t, "RSA", gotAuth)
}
