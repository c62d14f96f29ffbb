// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"bytes"
	"crypto/x509"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// newManager builds a TrustManager over the default collaborators with a
// counting resolver and validator so tests can observe cache behaviour.
func newManager(t *testing.T, store *truststore.Store, pins *spkipin.PinSet) (*TrustManager, *countingValidator, *countingResolver) {
	t.Helper()

	sysValidator, err := NewSystemChainValidator(store, nil)
	require.NoError(t, err)
	sysResolver, err := NewTrustAnchorResolver(store, nil)
	require.NoError(t, err)

	validator := &countingValidator{next: sysValidator}
	resolver := &countingResolver{next: sysResolver}

	tm, err := NewTrustManager(&Config{
		Pins:       pins,
		TrustStore: store,
		Validator:  validator,
		Resolver:   resolver,
	})
	require.NoError(t, err)
	return tm, validator, resolver
}

func TestNewTrustManager_Errors(t *testing.T) {
	h := newHierarchy(t, "acme")
	store := newStore(t, h.root)
	pins := pinsFor(t, h.root)

	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil config", cfg: nil, wantErr: ErrInvalidConfig},
		{name: "nil pins", cfg: &Config{TrustStore: store}, wantErr: ErrInvalidConfig},
		{name: "empty pins", cfg: &Config{Pins: &spkipin.PinSet{}, TrustStore: store}, wantErr: ErrInvalidConfig},
		{name: "no store for default validator", cfg: &Config{Pins: pins}, wantErr: ErrNoTrustStore},
		{name: "no store for default resolver", cfg: &Config{Pins: pins, Validator: acceptAll}, wantErr: ErrNoTrustStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := NewTrustManager(tt.cfg)
			assert.Nil(t, tm)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewTrustManager_InjectedCollaboratorsNeedNoStore(t *testing.T) {
	h := newHierarchy(t, "acme")
	resolver := ResolverFunc(func(Chain) (*x509.Certificate, error) { return nil, nil })

	tm, err := NewTrustManager(&Config{
		Pins:      pinsFor(t, h.leaf),
		Validator: acceptAll,
		Resolver:  resolver,
	})
	require.NoError(t, err)
	assert.Nil(t, tm.AcceptedIssuers())
	assert.NoError(t, tm.CheckServerTrusted(Chain{h.leaf.Certificate}, "ECDSA"))
}

// Scenario A: the intermediate is pinned, the unsent root is not.
func TestCheckServerTrusted_MatchOnIntermediate(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, _, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.inter))

	v, err := tm.Validate(h.chain(), "ECDSA")
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.Equal(t, ReasonNone, v.Reason)
	assert.Same(t, h.root.Certificate, v.Anchor)
	assert.True(t, v.Matched.Equal(spkipin.ComputeFingerprint(spkipin.DigestSHA256, h.inter.Certificate)))
}

// Scenario B: only the resolved but unsent root is pinned.
func TestCheckServerTrusted_MatchOnResolvedAnchor(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, _, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	v, err := tm.Validate(h.chain(), "ECDSA")
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.True(t, v.Matched.Equal(spkipin.ComputeFingerprint(spkipin.DigestSHA256, h.root.Certificate)))
}

// Scenario C: a valid chain from a different PKI than the pinned one.
func TestCheckServerTrusted_OtherPKIRejected(t *testing.T) {
	pinned := newHierarchy(t, "pinned")
	other := newHierarchy(t, "other")
	tm, _, _ := newManager(t, newStore(t, pinned.root, other.root), pinsFor(t, pinned.inter))

	err := tm.CheckServerTrusted(other.chain(), "ECDSA")
	assert.ErrorIs(t, err, ErrNoPinMatched)

	var certErr *CertificateError
	require.ErrorAs(t, err, &certErr)
	assert.Equal(t, ReasonNoPinMatched, certErr.Reason)
}

// Scenario D: leaf-only chain, no anchor can be found.
func TestCheckServerTrusted_LeafOnly(t *testing.T) {
	h := newHierarchy(t, "acme")
	store := newStore(t, h.root)
	resolver, err := NewTrustAnchorResolver(store, nil)
	require.NoError(t, err)

	t.Run("leaf pinned", func(t *testing.T) {
		tm, err := NewTrustManager(&Config{
			Pins:       pinsFor(t, h.leaf),
			TrustStore: store,
			Validator:  acceptAll,
			Resolver:   resolver,
		})
		require.NoError(t, err)

		v, err := tm.Validate(Chain{h.leaf.Certificate}, "ECDSA")
		require.NoError(t, err)
		assert.True(t, v.Accepted)
		assert.Nil(t, v.Anchor)
	})

	t.Run("leaf not pinned", func(t *testing.T) {
		tm, err := NewTrustManager(&Config{
			Pins:       pinsFor(t, h.root),
			TrustStore: store,
			Validator:  acceptAll,
			Resolver:   resolver,
		})
		require.NoError(t, err)

		v, err := tm.Validate(Chain{h.leaf.Certificate}, "ECDSA")
		assert.ErrorIs(t, err, ErrNoPinMatched)
		assert.False(t, v.Accepted)
		assert.Equal(t, ReasonNoPinMatched, v.Reason)
	})
}

func TestCheckServerTrusted_ChainInvalidRegardlessOfPins(t *testing.T) {
	h := newHierarchy(t, "acme")
	other := newHierarchy(t, "other")
	tm, _, resolver := newManager(t, newStore(t, other.root), pinsFor(t, h.leaf, h.inter, h.root))

	err := tm.CheckServerTrusted(h.chain(), "ECDSA")
	assert.ErrorIs(t, err, ErrChainInvalid)

	var unknown x509.UnknownAuthorityError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, int32(0), resolver.calls.Load())
	assert.Equal(t, 0, tm.CacheStats().Entries)
}

func TestCheckServerTrusted_ExpiredChain(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, err := NewTrustManager(&Config{
		Pins:       pinsFor(t, h.root),
		TrustStore: newStore(t, h.root),
		Clock:      clockwork.NewFakeClockAt(time.Now().Add(72 * time.Hour)),
	})
	require.NoError(t, err)

	err = tm.CheckServerTrusted(h.chain(), "ECDSA")
	assert.ErrorIs(t, err, ErrChainInvalid)
}

func TestCheckServerTrusted_Idempotent(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, validator, resolver := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))

	leafCopy, err := x509.ParseCertificate(h.leaf.Certificate.Raw)
	require.NoError(t, err)
	interCopy, err := x509.ParseCertificate(h.inter.Certificate.Raw)
	require.NoError(t, err)
	require.NoError(t, tm.CheckServerTrusted(Chain{leafCopy, interCopy}, "ECDSA"))

	assert.Equal(t, int32(1), resolver.calls.Load())
	assert.Equal(t, int32(2), validator.calls.Load())

	stats := tm.CacheStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestValidate_CachedVerdictNotAliased(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, _, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	first, err := tm.Validate(h.chain(), "ECDSA")
	require.NoError(t, err)
	want := spkipin.Fingerprint(bytes.Clone(first.Matched))
	first.Matched[0] ^= 0xff

	second, err := tm.Validate(h.chain(), "ECDSA")
	require.NoError(t, err)
	assert.Equal(t, want, second.Matched)
	assert.Equal(t, uint64(1), tm.CacheStats().Hits)
}

func TestCheckServerTrusted_NoPinMatchedIsCached(t *testing.T) {
	h := newHierarchy(t, "acme")
	unrelated := newHierarchy(t, "unrelated")
	tm, _, resolver := newManager(t, newStore(t, h.root), pinsFor(t, unrelated.root))

	assert.ErrorIs(t, tm.CheckServerTrusted(h.chain(), "ECDSA"), ErrNoPinMatched)
	assert.ErrorIs(t, tm.CheckServerTrusted(h.chain(), "ECDSA"), ErrNoPinMatched)
	assert.Equal(t, int32(1), resolver.calls.Load())
}

func TestCheckServerTrusted_DelegateAlwaysRuns(t *testing.T) {
	h := newHierarchy(t, "acme")
	store := newStore(t, h.root)
	fail := false
	validator := ChainValidatorFunc(func(Chain, string) error {
		if fail {
			return x509.UnknownAuthorityError{}
		}
		return nil
	})

	tm, err := NewTrustManager(&Config{Pins: pinsFor(t, h.root), TrustStore: store, Validator: validator})
	require.NoError(t, err)

	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))

	fail = true
	assert.ErrorIs(t, tm.CheckServerTrusted(h.chain(), "ECDSA"), ErrChainInvalid)
}

func TestClearCache_ReRunsResolution(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, _, resolver := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
	assert.Equal(t, int32(1), resolver.calls.Load())

	tm.ClearCache()
	assert.Equal(t, 0, tm.CacheStats().Entries)

	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
	assert.Equal(t, int32(2), resolver.calls.Load())
}

func TestCheckServerTrusted_AnchorResolutionFailed(t *testing.T) {
	h := newHierarchy(t, "acme")
	resolver := &countingResolver{next: ResolverFunc(func(Chain) (*x509.Certificate, error) {
		return nil, errResolverBroken
	})}

	tm, err := NewTrustManager(&Config{
		Pins:       pinsFor(t, h.leaf),
		TrustStore: newStore(t, h.root),
		Resolver:   resolver,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		v, err := tm.Validate(h.chain(), "ECDSA")
		assert.ErrorIs(t, err, ErrAnchorResolutionFailed)
		assert.ErrorIs(t, err, errResolverBroken)
		assert.NotErrorIs(t, err, ErrNoPinMatched)
		assert.Equal(t, ReasonAnchorResolutionFailed, v.Reason)
	}
	assert.Equal(t, int32(2), resolver.calls.Load())
	assert.Equal(t, 0, tm.CacheStats().Entries)
}

func TestCheckServerTrusted_EmptyChain(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, validator, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	assert.ErrorIs(t, tm.CheckServerTrusted(nil, "ECDSA"), ErrEmptyChain)
	assert.ErrorIs(t, tm.CheckServerTrusted(Chain{h.leaf.Certificate, nil}, "ECDSA"), ErrEmptyChain)
	assert.Equal(t, int32(0), validator.calls.Load())
}

func TestCheckServerTrusted_MutatedSPKIRejected(t *testing.T) {
	h := newHierarchy(t, "acme")
	pins := pinsFor(t, h.leaf)
	noAnchor := ResolverFunc(func(Chain) (*x509.Certificate, error) { return nil, nil })

	newTM := func() *TrustManager {
		tm, err := NewTrustManager(&Config{Pins: pins, Validator: acceptAll, Resolver: noAnchor})
		require.NoError(t, err)
		return tm
	}

	require.NoError(t, newTM().CheckServerTrusted(Chain{h.leaf.Certificate}, "ECDSA"))

	mutated := *h.leaf.Certificate
	mutated.RawSubjectPublicKeyInfo = append([]byte(nil), h.leaf.Certificate.RawSubjectPublicKeyInfo...)
	mutated.RawSubjectPublicKeyInfo[len(mutated.RawSubjectPublicKeyInfo)-1] ^= 0x01

	assert.False(t, spkipin.ComputeFingerprint(spkipin.DigestSHA256, &mutated).
		Equal(spkipin.ComputeFingerprint(spkipin.DigestSHA256, h.leaf.Certificate)))
	assert.ErrorIs(t, newTM().CheckServerTrusted(Chain{&mutated}, "ECDSA"), ErrNoPinMatched)
}

func TestCheckServerTrusted_SHA1Pins(t *testing.T) {
	h := newHierarchy(t, "acme")
	pins, err := spkipin.NewPinSet(spkipin.DigestSHA1,
		spkipin.ComputeFingerprint(spkipin.DigestSHA1, h.root.Certificate).String())
	require.NoError(t, err)

	tm, _, _ := newManager(t, newStore(t, h.root), pins)
	assert.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
}

func TestCheckClientTrusted_AlwaysRejects(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, validator, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	err := tm.CheckClientTrusted(h.chain(), "ECDSA")
	assert.ErrorIs(t, err, ErrClientAuthUnsupported)
	assert.Equal(t, int32(0), validator.calls.Load())
}

func TestAcceptedIssuers(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, _, _ := newManager(t, newStore(t, h.root), pinsFor(t, h.root))

	issuers := tm.AcceptedIssuers()
	require.Len(t, issuers, 1)
	assert.Same(t, h.root.Certificate, issuers[0])
	assert.Equal(t, 1, tm.Pins().Len())
}

func TestCacheStats_CustomCache(t *testing.T) {
	h := newHierarchy(t, "acme")
	tm, err := NewTrustManager(&Config{
		Pins:       pinsFor(t, h.root),
		TrustStore: newStore(t, h.root),
		Cache:      &lenOnlyCache{MemoryCache: NewMemoryCache()},
	})
	require.NoError(t, err)

	require.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
	assert.Equal(t, CacheStats{Entries: 1}, tm.CacheStats())
}

// lenOnlyCache hides MemoryCache.Stats.
type lenOnlyCache struct {
	*MemoryCache
}

func (c *lenOnlyCache) Stats() {}

func TestCheckServerTrusted_Concurrent(t *testing.T) {
	h := newHierarchy(t, "acme")
	other := newHierarchy(t, "other")
	tm, _, _ := newManager(t, newStore(t, h.root, other.root), pinsFor(t, h.root))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, tm.CheckServerTrusted(h.chain(), "ECDSA"))
				assert.ErrorIs(t, tm.CheckServerTrusted(other.chain(), "ECDSA"), ErrNoPinMatched)
				if (i+j)%7 == 0 {
					tm.ClearCache()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, tm.CacheStats().Entries, 2)
}
