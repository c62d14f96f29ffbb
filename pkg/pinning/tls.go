// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/tls"
	"crypto/x509"
)

// AuthTypeFor returns the advisory auth type for a leaf certificate, derived
// from its public key algorithm (for example "RSA" or "ECDSA").
func AuthTypeFor(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	return cert.PublicKeyAlgorithm.String()
}

// VerifyConnection is a tls.Config.VerifyConnection hook. It checks the peer
// chain with CheckServerTrusted and then the leaf against the requested
// server name.
func (m *TrustManager) VerifyConnection(cs tls.ConnectionState) error {
	chain := Chain(cs.PeerCertificates)
	if err := m.CheckServerTrusted(chain, AuthTypeFor(chain.Leaf())); err != nil {
		return err
	}
	if cs.ServerName == "" {
		return nil
	}
	if err := chain.Leaf().VerifyHostname(cs.ServerName); err != nil {
		return newCertificateError(ReasonChainInvalid, err)
	}
	return nil
}

// VerifyPeerCertificate is a tls.Config.VerifyPeerCertificate hook for stacks
// that hand over raw DER. Verified chains from the TLS stack are ignored.
func (m *TrustManager) VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	chain, err := ParseChain(rawCerts)
	if err != nil {
		if len(rawCerts) == 0 {
			return newCertificateError(ReasonEmptyChain, nil)
		}
		return newCertificateError(ReasonChainInvalid, err)
	}
	return m.CheckServerTrusted(chain, AuthTypeFor(chain.Leaf()))
}

// TLSConfig returns a client configuration in which the TrustManager is the
// only verifier. Standard verification is switched off and replaced by the
// VerifyConnection hook, which performs chain validation, pin matching and
// host name checks.
func (m *TrustManager) TLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // VerifyConnection performs full verification
		VerifyConnection:   m.VerifyConnection,
	}
}
