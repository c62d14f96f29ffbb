// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package truststore holds immutable snapshots of trusted root certificates.
// A Store is built once from PEM bundles, DER files, or PKCS#7 containers and
// then shared read-only by the pinning engine.
package truststore

import "errors"

var (
	// ErrEmptyStore is returned when a store would contain no certificates.
	ErrEmptyStore = errors.New("truststore: no trusted certificates")

	// ErrParseCertificate is returned when input is neither PEM, DER, nor PKCS#7.
	ErrParseCertificate = errors.New("truststore: failed to parse certificate data")

	// ErrNoCertificatesInPKCS7 is returned when a PKCS#7 container holds no certificates.
	ErrNoCertificatesInPKCS7 = errors.New("truststore: no certificates in PKCS#7 data")

	// ErrReadFile is returned when a trust store file cannot be read.
	ErrReadFile = errors.New("truststore: failed to read file")

	// ErrSystemStoreNotFound is returned when no system CA bundle is present.
	ErrSystemStoreNotFound = errors.New("truststore: system CA bundle not found")
)
