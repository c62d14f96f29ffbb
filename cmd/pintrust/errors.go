// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitRejected indicates a chain was rejected or a lookup failed.
	ExitRejected = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLookupFailed is returned when a DNS lookup for pins fails.
	ErrLookupFailed = errors.New("lookup failed")

	// ErrCheckFailed is returned when at least one host failed the pin check.
	ErrCheckFailed = errors.New("pin check failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")
)

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrInvalidInput):
		return ExitConfigError
	default:
		return ExitRejected
	}
}
