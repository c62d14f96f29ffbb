// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package testpki generates throwaway certificate hierarchies for tests.
package testpki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Cert is a generated certificate and its private key.
type Cert struct {
	Certificate *x509.Certificate
	Key         *ecdsa.PrivateKey
}

// Validity bounds a certificate's lifetime.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// DefaultValidity starts an hour ago and lasts a day.
func DefaultValidity() Validity {
	now := time.Now()
	return Validity{NotBefore: now.Add(-time.Hour), NotAfter: now.Add(24 * time.Hour)}
}

// Root creates a self-signed CA.
func Root(t testing.TB, cn string) *Cert {
	t.Helper()
	return issue(t, nil, cn, true, DefaultValidity(), nil)
}

// Intermediate creates a CA signed by c.
func (c *Cert) Intermediate(t testing.TB, cn string) *Cert {
	t.Helper()
	return issue(t, c, cn, true, DefaultValidity(), nil)
}

// Leaf creates a server certificate signed by c. Hosts that parse as IP
// addresses become IP SANs, the rest DNS SANs.
func (c *Cert) Leaf(t testing.TB, cn string, hosts ...string) *Cert {
	t.Helper()
	return issue(t, c, cn, false, DefaultValidity(), hosts)
}

// LeafWithValidity creates a server certificate with an explicit lifetime.
func (c *Cert) LeafWithValidity(t testing.TB, cn string, v Validity, hosts ...string) *Cert {
	t.Helper()
	return issue(t, c, cn, false, v, hosts)
}

// PEM returns the certificate in PEM form.
func (c *Cert) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Certificate.Raw})
}

// TLSCertificate returns a tls.Certificate presenting leaf followed by chain.
func TLSCertificate(leaf *Cert, chain ...*Cert) tls.Certificate {
	raw := [][]byte{leaf.Certificate.Raw}
	for _, c := range chain {
		raw = append(raw, c.Certificate.Raw)
	}
	return tls.Certificate{
		Certificate: raw,
		PrivateKey:  leaf.Key,
		Leaf:        leaf.Certificate,
	}
}

func issue(t testing.TB, parent *Cert, cn string, isCA bool, v Validity, hosts []string) *Cert {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"pintrust test"}},
		NotBefore:             v.NotBefore,
		NotAfter:              v.NotAfter,
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		template.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	} else {
		template.KeyUsage = x509.KeyUsageDigitalSignature
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
		for _, h := range hosts {
			if ip := net.ParseIP(h); ip != nil {
				template.IPAddresses = append(template.IPAddresses, ip)
			} else {
				template.DNSNames = append(template.DNSNames, h)
			}
		}
	}

	signerCert, signerKey := template, key
	if parent != nil {
		signerCert, signerKey = parent.Certificate, parent.Key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signerCert, &key.PublicKey, signerKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Cert{Certificate: cert, Key: key}
}
