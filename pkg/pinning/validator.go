// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"

	"github.com/jonboulle/clockwork"

	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// ChainValidator performs standard chain validation before any pin logic
// runs. authType is advisory and passed through unchanged.
type ChainValidator interface {
	Validate(chain Chain, authType string) error
}

// ChainValidatorFunc adapts an ordinary function to a ChainValidator.
type ChainValidatorFunc func(chain Chain, authType string) error

// Validate calls f(chain, authType).
func (f ChainValidatorFunc) Validate(chain Chain, authType string) error {
	return f(chain, authType)
}

// SystemChainValidator validates a chain for server authentication against
// an injected trust store. It checks signatures, validity periods and name
// constraints but not revocation or host names.
type SystemChainValidator struct {
	store *truststore.Store
	clock clockwork.Clock
}

// NewSystemChainValidator creates a validator rooted in store. A nil clock
// selects the real clock.
func NewSystemChainValidator(store *truststore.Store, clock clockwork.Clock) (*SystemChainValidator, error) {
	if store == nil {
		return nil, ErrNoTrustStore
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SystemChainValidator{store: store, clock: clock}, nil
}

// Validate verifies that chain[0] chains to a trusted root using the rest of
// the chain as intermediates.
func (v *SystemChainValidator) Validate(chain Chain, _ string) error {
	if err := chain.wellFormed(); err != nil {
		return err
	}
	_, err := chain.Leaf().Verify(x509.VerifyOptions{
		Roots:         v.store.Pool(),
		Intermediates: chain.Intermediates(),
		CurrentTime:   v.clock.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	return err
}
