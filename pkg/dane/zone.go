// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"crypto/x509"
	"fmt"

	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
)

// PinZoneRecord renders the TLSA record that publishes cert's SPKI pin for
// hostname and port. The selector is always SPKI; matchingType must be
// MatchingSHA256 or MatchingSHA512.
func PinZoneRecord(cert *x509.Certificate, hostname string, port uint16, usage, matchingType uint8) (*ZoneRecord, error) {
	if cert == nil {
		return nil, ErrInvalidCertificate
	}
	if err := validateHostname(hostname); err != nil {
		return nil, err
	}
	if port == 0 {
		return nil, ErrInvalidPort
	}
	digest, ok := matchingDigests[matchingType]
	if !ok {
		return nil, ErrUnsupportedMatching
	}

	name := formatTLSAName(hostname, port)
	hexData := spkipin.ComputeFingerprint(digest, cert).String()

	return &ZoneRecord{
		Name:         name,
		Usage:        usage,
		Selector:     SelectorSPKI,
		MatchingType: matchingType,
		HexData:      hexData,
		ZoneLine:     fmt.Sprintf("%s IN TLSA %d %d %d %s", name, usage, SelectorSPKI, matchingType, hexData),
	}, nil
}
