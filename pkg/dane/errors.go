// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package dane reads SPKI pins from DNS. TLSA records (RFC 6698) with the
// SubjectPublicKeyInfo selector carry exactly the digests a pin set needs,
// so an operator can publish pins in DNSSEC-signed zones instead of shipping
// them in configuration.
package dane

import "errors"

// DNS lookup errors.
var (
	// ErrNoTLSARecords indicates no TLSA records were found for the queried name.
	ErrNoTLSARecords = errors.New("dane: no TLSA records found")

	// ErrNoPinRecords indicates TLSA records exist but none carries an SPKI
	// digest usable as a pin.
	ErrNoPinRecords = errors.New("dane: no TLSA records usable as SPKI pins")

	// ErrDNSLookupFailed indicates the DNS query for TLSA records failed.
	ErrDNSLookupFailed = errors.New("dane: DNS lookup failed")

	// ErrDNSSECRequired indicates the Authenticated Data (AD) flag was
	// required but missing from the DNS response.
	ErrDNSSECRequired = errors.New("dane: DNSSEC validation required but AD flag not set")
)

// Input validation errors.
var (
	// ErrInvalidCertificate indicates a nil certificate was provided.
	ErrInvalidCertificate = errors.New("dane: invalid certificate")

	// ErrInvalidHostname indicates an empty or malformed hostname was provided.
	ErrInvalidHostname = errors.New("dane: invalid hostname")

	// ErrInvalidPort indicates port number zero was provided.
	ErrInvalidPort = errors.New("dane: invalid port")

	// ErrUnsupportedMatching indicates a matching type with no pin digest.
	ErrUnsupportedMatching = errors.New("dane: unsupported TLSA matching type")

	// ErrResolverConfig indicates the resolver configuration is invalid.
	ErrResolverConfig = errors.New("dane: invalid resolver configuration")
)
