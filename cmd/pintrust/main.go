// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Command pintrust computes SPKI pins and checks TLS servers against them.
package main

import "log/slog"

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		exitFunc(exitCode(err))
	}
}
