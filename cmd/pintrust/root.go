// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	quiet      bool
	debug      bool
	format     string
	outputFile string
	logFormat  string
)

// logLevel controls the global slog level at runtime.
var logLevel = new(slog.LevelVar)

// exitFunc is the function called to exit the program.
// This can be overridden in tests to capture exit calls.
var exitFunc = os.Exit

// stdout is where command output goes when --output is not set.
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "pintrust",
	Short: "SPKI certificate pinning tool",
	Long: `pintrust computes SubjectPublicKeyInfo (SPKI) pins and checks TLS
servers against them. A server is accepted only when its chain validates
against the trust store and a certificate in the chain, or the trusted
root that closes it, carries a pinned public key.

Commands:
  pin    - Compute pins for the certificates in a file
  check  - Connect to servers and enforce a pin set
  dane   - Read pins published in DNS TLSA records`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", formatTable, "output format (table|json)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text|json)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(daneCmd)
}

// initLogging configures the global slog logger based on CLI flags.
//
//	--debug: LevelDebug with source location
//	default: LevelInfo
//	--quiet: LevelError (only errors shown)
//
// --debug takes precedence over --quiet.
func initLogging() {
	switch {
	case debug:
		logLevel.Set(slog.LevelDebug)
	case quiet:
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: debug,
	}

	handlers := map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
		"text": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
		"json": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
	}

	factory, ok := handlers[logFormat]
	if !ok {
		factory = handlers["text"]
	}

	slog.SetDefault(slog.New(factory(os.Stderr, opts)))
}

// validateFormat rejects unknown --format values.
func validateFormat() error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("%w: --format must be %s or %s", ErrInvalidInput, formatTable, formatJSON)
	}
	return nil
}

// writeOutput writes data to the configured output file or stdout.
func writeOutput(data []byte) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0o600); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("written to file", "path", outputFile, "bytes", len(data))
		return nil
	}
	if _, err := stdout.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	return nil
}
