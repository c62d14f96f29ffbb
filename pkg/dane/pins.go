// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
)

// matchingDigests maps TLSA matching types to the pin digest they carry.
var matchingDigests = map[uint8]spkipin.Digest{
	MatchingSHA256: spkipin.DigestSHA256,
	MatchingSHA512: spkipin.DigestSHA512,
}

// Pin returns the record's association data as a hex pin when the record
// hashes the SubjectPublicKeyInfo with digest d.
func (r *TLSARecord) Pin(d spkipin.Digest) (string, bool) {
	if r == nil || r.Selector != SelectorSPKI {
		return "", false
	}
	digest, ok := matchingDigests[r.MatchingType]
	if !ok || digest != d || len(r.CertData) != d.Size() {
		return "", false
	}
	return hex.EncodeToString(r.CertData), true
}

// PinsFromRecords returns the distinct pins for digest d carried by records,
// in record order.
func PinsFromRecords(records []*TLSARecord, d spkipin.Digest) []string {
	seen := make(map[string]struct{}, len(records))
	pins := make([]string, 0, len(records))
	for _, rec := range records {
		pin, ok := rec.Pin(d)
		if !ok {
			continue
		}
		if _, dup := seen[pin]; dup {
			continue
		}
		seen[pin] = struct{}{}
		pins = append(pins, pin)
	}
	return pins
}

// LookupPins returns the SHA-256 SPKI pins published for hostname and port,
// taken from TLSA records with selector 1 and matching type 1.
func (r *Resolver) LookupPins(ctx context.Context, hostname string, port uint16) ([]string, error) {
	return r.LookupPinsWithDigest(ctx, hostname, port, spkipin.DigestSHA256)
}

// LookupPinsWithDigest is LookupPins for any digest a TLSA matching type can
// express. Returns ErrNoPinRecords when no record carries such a pin.
func (r *Resolver) LookupPinsWithDigest(ctx context.Context, hostname string, port uint16, d spkipin.Digest) ([]string, error) {
	if !hasMatchingType(d) {
		return nil, fmt.Errorf("%w: no TLSA matching type for %s", ErrUnsupportedMatching, d)
	}

	records, err := r.LookupTLSA(ctx, hostname, port)
	if err != nil {
		return nil, err
	}

	pins := PinsFromRecords(records, d)
	if len(pins) == 0 {
		return nil, ErrNoPinRecords
	}

	r.logger.Debug("pins loaded from DNS", "hostname", hostname, "port", port, "pins", len(pins))
	return pins, nil
}

// LookupPinSet builds a pin set from the published pins.
func (r *Resolver) LookupPinSet(ctx context.Context, hostname string, port uint16, d spkipin.Digest) (*spkipin.PinSet, error) {
	pins, err := r.LookupPinsWithDigest(ctx, hostname, port, d)
	if err != nil {
		return nil, err
	}
	return spkipin.NewPinSet(d, pins...)
}

func hasMatchingType(d spkipin.Digest) bool {
	for _, digest := range matchingDigests {
		if digest == d {
			return true
		}
	}
	return false
}
