// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/x509"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// Verdict is the outcome of validating one chain.
type Verdict struct {
	// Accepted is true when the chain passed validation and a pin matched.
	Accepted bool

	// Reason is ReasonNone for accepted chains.
	Reason Reason

	// Anchor is the trust store certificate that closed the chain, or nil
	// when no anchor was found.
	Anchor *x509.Certificate

	// Matched is the fingerprint that satisfied the pin set.
	Matched spkipin.Fingerprint
}

// Err returns nil for an accepted verdict and a *CertificateError otherwise.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return newCertificateError(v.Reason, nil)
}

// Config configures a TrustManager.
type Config struct {
	// Pins is the set of accepted SPKI fingerprints. Required.
	Pins *spkipin.PinSet

	// TrustStore supplies the roots for the default Validator and Resolver.
	// Required unless both are injected.
	TrustStore *truststore.Store

	// Validator performs standard chain validation.
	// Default: a SystemChainValidator over TrustStore.
	Validator ChainValidator

	// Resolver discovers the trust anchor of a chain.
	// Default: a TrustAnchorResolver over TrustStore.
	Resolver AnchorResolver

	// Cache memoizes verdicts. Default: a new MemoryCache.
	Cache ValidationCache

	// Clock supplies the verification time for the default Validator and
	// Resolver. Default: the real clock.
	Clock clockwork.Clock

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// TrustManager checks server chains against standard validation and a pin
// set. It is safe for concurrent use; the cache is its only mutable state.
type TrustManager struct {
	pins      *spkipin.PinSet
	store     *truststore.Store
	validator ChainValidator
	resolver  AnchorResolver
	cache     ValidationCache
	logger    *slog.Logger
}

// NewTrustManager creates a TrustManager. Construction fails for a missing
// or empty pin set and when a default collaborator would need a trust store
// that was not given.
func NewTrustManager(cfg *Config) (*TrustManager, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Pins == nil || cfg.Pins.Len() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, spkipin.ErrNoPinConfigured)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	validator := cfg.Validator
	if validator == nil {
		v, err := NewSystemChainValidator(cfg.TrustStore, clock)
		if err != nil {
			return nil, err
		}
		validator = v
	}

	resolver := cfg.Resolver
	if resolver == nil {
		r, err := NewTrustAnchorResolver(cfg.TrustStore, clock)
		if err != nil {
			return nil, err
		}
		resolver = r
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TrustManager{
		pins:      cfg.Pins,
		store:     cfg.TrustStore,
		validator: validator,
		resolver:  resolver,
		cache:     cache,
		logger:    logger.With("component", "pinning"),
	}, nil
}

// CheckServerTrusted accepts chain only if the validator accepts it and a
// certificate in the chain, or its resolved trust anchor, is pinned. It
// returns nil or a *CertificateError.
func (m *TrustManager) CheckServerTrusted(chain Chain, authType string) error {
	_, err := m.Validate(chain, authType)
	return err
}

// CheckClientTrusted always fails. Pinning applies to server chains only.
func (m *TrustManager) CheckClientTrusted(_ Chain, _ string) error {
	return newCertificateError(ReasonClientAuthUnsupported, nil)
}

// Validate runs the full check and returns the verdict along with the error
// CheckServerTrusted would return.
//
// The validator runs on every call. Only the pin phase is cached: accepted
// and no-pin-matched verdicts are stored by chain identity, while resolver
// failures are returned without being recorded.
func (m *TrustManager) Validate(chain Chain, authType string) (Verdict, error) {
	if err := chain.wellFormed(); err != nil {
		return Verdict{Reason: ReasonEmptyChain}, err
	}

	if err := m.validator.Validate(chain, authType); err != nil {
		m.logger.Warn("chain rejected by validator",
			"subject", chain.Leaf().Subject.String(),
			"auth_type", authType,
			"error", err)
		return Verdict{Reason: ReasonChainInvalid}, newCertificateError(ReasonChainInvalid, err)
	}

	id := chain.Identity()
	if v, ok := m.cache.Get(id); ok {
		m.logger.Debug("pin verdict served from cache",
			"chain", id.String(),
			"accepted", v.Accepted)
		return v, v.Err()
	}

	anchor, err := m.resolver.Resolve(chain)
	if err != nil {
		m.logger.Warn("trust anchor resolution failed",
			"subject", chain.Leaf().Subject.String(),
			"error", err)
		return Verdict{Reason: ReasonAnchorResolutionFailed}, newCertificateError(ReasonAnchorResolutionFailed, err)
	}

	v := m.match(chain, anchor)
	m.cache.Put(id, v)

	if !v.Accepted {
		m.logger.Warn("no pinned key in chain",
			"subject", chain.Leaf().Subject.String(),
			"chain_length", len(chain),
			"anchor_found", anchor != nil)
		return v, v.Err()
	}

	m.logger.Debug("chain accepted",
		"subject", chain.Leaf().Subject.String(),
		"matched", v.Matched.String())
	return v, nil
}

// match tests the chain certificates and then the anchor against the pins.
func (m *TrustManager) match(chain Chain, anchor *x509.Certificate) Verdict {
	candidates := make([]*x509.Certificate, 0, len(chain)+1)
	candidates = append(candidates, chain...)
	if anchor != nil {
		candidates = append(candidates, anchor)
	}

	fp, ok := m.pins.Match(candidates...)
	if !ok {
		return Verdict{Reason: ReasonNoPinMatched, Anchor: anchor}
	}
	return Verdict{Accepted: true, Anchor: anchor, Matched: fp}
}

// ClearCache drops every memoized verdict. It is safe to call while
// validations are in flight.
func (m *TrustManager) ClearCache() {
	m.cache.Clear()
	m.logger.Debug("validation cache cleared")
}

// CacheStats reports cache activity. Hit and miss counters are zero for
// caches that do not track them.
func (m *TrustManager) CacheStats() CacheStats {
	if s, ok := m.cache.(interface{ Stats() CacheStats }); ok {
		return s.Stats()
	}
	return CacheStats{Entries: m.cache.Len()}
}

// AcceptedIssuers returns the trust store roots, or nil when the manager was
// built from injected collaborators without a trust store.
func (m *TrustManager) AcceptedIssuers() []*x509.Certificate {
	if m.store == nil {
		return nil
	}
	return m.store.Certificates()
}

// Pins returns the pin set the manager enforces.
func (m *TrustManager) Pins() *spkipin.PinSet {
	return m.pins
}
