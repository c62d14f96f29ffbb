// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package spkipin provides SPKI fingerprint computation and pin sets for TLS
// certificate pinning. A pin is the digest of a certificate's DER-encoded
// SubjectPublicKeyInfo, so it survives certificate renewal as long as the
// key pair does not change.
package spkipin

import (
	"errors"
	"strconv"
)

var (
	// ErrNoPinConfigured is returned when the pin list is empty or a pin is blank.
	ErrNoPinConfigured = errors.New("spkipin: no SPKI pin configured")

	// ErrInvalidPinFormat is returned when a pin is not valid hex or has the
	// wrong length for the configured digest.
	ErrInvalidPinFormat = errors.New("spkipin: invalid pin format")

	// ErrUnsupportedDigest is returned when a digest name or value is not known.
	ErrUnsupportedDigest = errors.New("spkipin: unsupported digest")
)

// PinError reports which configured pin failed to parse.
type PinError struct {
	// Index is the position of the pin in the configured list.
	Index int

	// Pin is the offending value as configured.
	Pin string

	// Err is ErrInvalidPinFormat or ErrNoPinConfigured.
	Err error
}

// Error returns a message naming the pin position and value.
func (e *PinError) Error() string {
	return "spkipin: pin " + strconv.Itoa(e.Index) + " (" + strconv.Quote(e.Pin) + "): " + e.Err.Error()
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *PinError) Unwrap() error {
	return e.Err
}

func wrapPinError(err error, index int, pin string) error {
	return &PinError{Index: index, Pin: pin, Err: err}
}
