// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinning enforces SPKI pins on top of ordinary X.509 chain
// validation. A TrustManager accepts a server chain only when the chain is
// valid for the trust store and at least one certificate in it, or the trust
// anchor that closes it, carries a pinned public key.
package pinning

import (
	"errors"
	"fmt"
)

var (
	// ErrChainInvalid is returned when standard chain validation fails.
	ErrChainInvalid = errors.New("pinning: certificate chain failed validation")

	// ErrNoPinMatched is returned when a valid chain carries no pinned key.
	ErrNoPinMatched = errors.New("pinning: no valid pins found in chain")

	// ErrAnchorResolutionFailed is returned when trust anchor discovery fails
	// for a reason other than the absence of a path.
	ErrAnchorResolutionFailed = errors.New("pinning: trust anchor resolution failed")

	// ErrClientAuthUnsupported is returned for every client chain check.
	ErrClientAuthUnsupported = errors.New("pinning: client certificate validation is not supported")

	// ErrEmptyChain is returned when the chain has no certificates.
	ErrEmptyChain = errors.New("pinning: empty certificate chain")

	// ErrInvalidConfig is returned when a TrustManager cannot be constructed.
	ErrInvalidConfig = errors.New("pinning: invalid configuration")

	// ErrNoTrustStore is returned when no trust store is available for the
	// default validator or resolver.
	ErrNoTrustStore = errors.New("pinning: no trust store configured")
)

// Reason classifies a rejected chain.
type Reason uint8

const (
	// ReasonNone means the chain was accepted.
	ReasonNone Reason = iota

	// ReasonChainInvalid means the delegate validator rejected the chain.
	ReasonChainInvalid

	// ReasonNoPinMatched means no certificate in the chain or its anchor is pinned.
	ReasonNoPinMatched

	// ReasonAnchorResolutionFailed means the resolver reported an internal error.
	ReasonAnchorResolutionFailed

	// ReasonClientAuthUnsupported means a client chain was submitted.
	ReasonClientAuthUnsupported

	// ReasonEmptyChain means the chain was empty or held a nil certificate.
	ReasonEmptyChain
)

var reasonNames = map[Reason]string{
	ReasonNone:                   "none",
	ReasonChainInvalid:           "chain-invalid",
	ReasonNoPinMatched:           "no-pin-matched",
	ReasonAnchorResolutionFailed: "anchor-resolution-failed",
	ReasonClientAuthUnsupported:  "client-auth-unsupported",
	ReasonEmptyChain:             "empty-chain",
}

var reasonErrors = map[Reason]error{
	ReasonChainInvalid:           ErrChainInvalid,
	ReasonNoPinMatched:           ErrNoPinMatched,
	ReasonAnchorResolutionFailed: ErrAnchorResolutionFailed,
	ReasonClientAuthUnsupported:  ErrClientAuthUnsupported,
	ReasonEmptyChain:             ErrEmptyChain,
}

// String returns a short kebab-case name for the reason.
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Err returns the sentinel error for r, or nil for ReasonNone.
func (r Reason) Err() error {
	return reasonErrors[r]
}

// CertificateError is returned by CheckServerTrusted and CheckClientTrusted.
// It matches both the sentinel for its Reason and, when present, the
// underlying cause with errors.Is and errors.As.
type CertificateError struct {
	// Reason classifies the rejection.
	Reason Reason

	// Err is the underlying cause, such as an x509 verification error.
	// It is nil for rejections that have no further detail.
	Err error
}

// Error returns the sentinel message followed by the cause, if any.
func (e *CertificateError) Error() string {
	msg := e.Reason.String()
	if sentinel := e.Reason.Err(); sentinel != nil {
		msg = sentinel.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the reason sentinel and the cause.
func (e *CertificateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Reason.Err(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newCertificateError(reason Reason, cause error) *CertificateError {
	return &CertificateError{Reason: reason, Err: cause}
}
