// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"log/slog"
	"time"
)

// Certificate Usage values (RFC 6698 Section 2.1.1).
const (
	// UsageCAConstraint (PKIX-TA) names a CA that must appear in the PKIX path.
	UsageCAConstraint uint8 = 0

	// UsageServiceCert (PKIX-EE) names the end-entity certificate after PKIX validation.
	UsageServiceCert uint8 = 1

	// UsageDANETA (DANE-TA) names a trust anchor for the domain.
	UsageDANETA uint8 = 2

	// UsageDANEEE (DANE-EE) names the end-entity certificate without PKIX.
	UsageDANEEE uint8 = 3
)

// Selector values (RFC 6698 Section 2.1.2).
const (
	// SelectorFullCert selects the full DER-encoded certificate.
	SelectorFullCert uint8 = 0

	// SelectorSPKI selects the DER-encoded SubjectPublicKeyInfo.
	SelectorSPKI uint8 = 1
)

// Matching Type values (RFC 6698 Section 2.1.3).
const (
	// MatchingExact carries the selected data unhashed.
	MatchingExact uint8 = 0

	// MatchingSHA256 carries a SHA-256 digest of the selected data.
	MatchingSHA256 uint8 = 1

	// MatchingSHA512 carries a SHA-512 digest of the selected data.
	MatchingSHA512 uint8 = 2
)

// TLSARecord is a parsed TLSA resource record.
type TLSARecord struct {
	Usage        uint8
	Selector     uint8
	MatchingType uint8

	// CertData is the Certificate Association Data.
	CertData []byte
}

// ResolverConfig configures the DNS resolver used for TLSA lookups.
type ResolverConfig struct {
	// Server is the DNS resolver address (e.g., "8.8.8.8:53").
	// When empty, the first nameserver in /etc/resolv.conf is used.
	Server string

	// UseTLS enables DNS-over-TLS (DoT), port 853 by default.
	UseTLS bool

	// TLSServerName is the SNI value for DNS-over-TLS connections.
	TLSServerName string

	// RequireAD rejects responses without the Authenticated Data flag,
	// meaning the resolver did not validate DNSSEC. Pins published over
	// plain DNS can be forged, so callers should set it unless the resolver
	// is trusted by other means.
	RequireAD bool

	// Timeout is the maximum duration for a DNS query. Default: 5 seconds.
	Timeout time.Duration

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// ZoneRecord is a TLSA record rendered for a DNS zone file.
type ZoneRecord struct {
	// Name is the owner name (e.g., "_443._tcp.example.com.").
	Name string

	Usage        uint8
	Selector     uint8
	MatchingType uint8

	// HexData is the hex-encoded Certificate Association Data.
	HexData string

	// ZoneLine is the full zone file line
	// (e.g., "_443._tcp.example.com. IN TLSA 3 1 1 a1b2c3d4...").
	ZoneLine string
}
