// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinclient

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete.
	ErrInvalidConfig = errors.New("pinclient: invalid configuration")

	// ErrRequestFailed is returned when a request fails, including when the
	// server chain is rejected by the trust manager.
	ErrRequestFailed = errors.New("pinclient: request failed")

	// ErrEmptyResponse is returned when the server returns an empty body.
	ErrEmptyResponse = errors.New("pinclient: empty response from server")
)
