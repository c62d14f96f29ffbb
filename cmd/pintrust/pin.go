// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// pinCmd computes SPKI pins for every certificate in a file.
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Compute SPKI pins for the certificates in a file",
	Long: `Compute the SubjectPublicKeyInfo pin of each certificate in a PEM, DER
or PKCS#7 file. The default digest is SHA-256; use --digest sha1 to produce
legacy pins.`,
	RunE: runPin,
}

func init() {
	pinCmd.Flags().String("cert-file", "", "path to certificate file (required)")
	pinCmd.Flags().String("digest", spkipin.DefaultDigest.String(),
		"pin digest ("+strings.Join(spkipin.Digests(), "|")+")")
}

// pinEntry is one computed pin.
type pinEntry struct {
	Subject string `json:"subject"`
	Issuer  string `json:"issuer"`
	Digest  string `json:"digest"`
	Pin     string `json:"pin"`
}

func runPin(cmd *cobra.Command, args []string) error {
	certFile, _ := cmd.Flags().GetString("cert-file")
	digestName, _ := cmd.Flags().GetString("digest")

	if certFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}
	if err := validateFormat(); err != nil {
		return err
	}
	digest, err := spkipin.ParseDigest(digestName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	certs, err := loadCertificates(certFile)
	if err != nil {
		return err
	}

	entries := make([]pinEntry, 0, len(certs))
	for _, cert := range certs {
		slog.Debug("calculating pin", "subject", cert.Subject.String(), "digest", digest.String())
		entries = append(entries, pinEntry{
			Subject: cert.Subject.String(),
			Issuer:  cert.Issuer.String(),
			Digest:  digest.String(),
			Pin:     spkipin.ComputeFingerprint(digest, cert).String(),
		})
	}

	if format == formatJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(append(data, '\n'))
	}

	var buf bytes.Buffer
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "Subject: %s\n", e.Subject)
		fmt.Fprintf(&buf, "Issuer:  %s\n", e.Issuer)
		fmt.Fprintf(&buf, "Pin:     %s (%s)\n", e.Pin, e.Digest)
	}
	return writeOutput(buf.Bytes())
}

// loadCertificates reads every certificate in a PEM, DER or PKCS#7 file.
func loadCertificates(path string) ([]*x509.Certificate, error) {
	certs, err := truststore.LoadFile(path)
	if err != nil {
		if errors.Is(err, truststore.ErrReadFile) {
			return nil, fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return certs, nil
}
