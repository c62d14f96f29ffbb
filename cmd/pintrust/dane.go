// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-pintrust/pkg/dane"
	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
)

const (
	// defaultDANEPort is the default TLS port for DANE/TLSA records.
	defaultDANEPort = 443

	// defaultDANEResolveTimeout bounds a TLSA lookup.
	defaultDANEResolveTimeout = 10 * time.Second
)

// daneCmd is the parent command for DANE/TLSA operations.
var daneCmd = &cobra.Command{
	Use:   "dane",
	Short: "Pins published in DNS TLSA records",
	Long: `Tools for reading and publishing SPKI pins as DANE TLSA records
(RFC 6698). A TLSA record with selector 1 (SPKI) and matching type 1 (SHA-256)
or 2 (SHA-512) carries exactly the pin pintrust enforces.

Subcommands:
  pins   - Look up the pins published for a host
  show   - Display all TLSA records for a host
  record - Print the zone line that publishes a certificate's pin`,
}

var danePinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Look up SPKI pins published in TLSA records",
	RunE:  runDANEPins,
}

var daneShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display TLSA records for a domain",
	Long: `Query and display DANE TLSA records for a given hostname and port.
Queries DNS for _<port>._tcp.<hostname> TLSA records and displays
them in a human-readable format.`,
	RunE: runDANEShow,
}

var daneRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Print the TLSA zone line for a certificate's pin",
	Long: `Render the TLSA record that publishes the SPKI pin of a certificate.
The selector is always SPKI (1). The default usage is DANE-TA (2), suited to
pinning a CA; use --usage 3 to pin the server key itself.`,
	RunE: runDANERecord,
}

func init() {
	daneCmd.AddCommand(danePinsCmd)
	daneCmd.AddCommand(daneShowCmd)
	daneCmd.AddCommand(daneRecordCmd)

	for _, c := range []*cobra.Command{danePinsCmd, daneShowCmd} {
		c.Flags().String("hostname", "", "hostname to query TLSA records for (required)")
		c.Flags().Int("port", defaultDANEPort, "port number for the TLSA record")
		c.Flags().String("dns-server", "", "DNS server address (e.g., 8.8.8.8:53)")
		c.Flags().Bool("dns-over-tls", false, "use DNS-over-TLS (DoT) for TLSA lookups")
		c.Flags().String("dns-tls-server-name", "", "TLS server name for DNS-over-TLS")
		c.Flags().Bool("require-ad", false, "reject answers not validated with DNSSEC")
	}
	danePinsCmd.Flags().String("digest", spkipin.DefaultDigest.String(), "pin digest (sha256|sha512)")

	daneRecordCmd.Flags().String("cert-file", "", "path to certificate file (required)")
	daneRecordCmd.Flags().String("hostname", "", "hostname for the TLSA record (required)")
	daneRecordCmd.Flags().Int("port", defaultDANEPort, "port number for the TLSA record")
	daneRecordCmd.Flags().Int("usage", int(dane.UsageDANETA), "TLSA usage (0-3)")
	daneRecordCmd.Flags().Int("matching-type", int(dane.MatchingSHA256), "TLSA matching type (1=SHA-256, 2=SHA-512)")
}

// daneQuery holds the flags shared by the lookup commands.
type daneQuery struct {
	hostname string
	port     uint16
	resolver *dane.Resolver
}

func newDANEQuery(cmd *cobra.Command) (*daneQuery, error) {
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetInt("port")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	dnsOverTLS, _ := cmd.Flags().GetBool("dns-over-tls")
	dnsTLSServerName, _ := cmd.Flags().GetString("dns-tls-server-name")
	requireAD, _ := cmd.Flags().GetBool("require-ad")

	if hostname == "" {
		return nil, fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: --port must be between 1 and 65535", ErrInvalidInput)
	}

	resolver, err := dane.NewResolver(&dane.ResolverConfig{
		Server:        dnsServer,
		UseTLS:        dnsOverTLS,
		TLSServerName: dnsTLSServerName,
		RequireAD:     requireAD,
		Logger:        slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolver: %w", ErrInvalidInput, err)
	}

	return &daneQuery{hostname: hostname, port: uint16(port), resolver: resolver}, nil
}

func runDANEPins(cmd *cobra.Command, args []string) error {
	digestName, _ := cmd.Flags().GetString("digest")
	if err := validateFormat(); err != nil {
		return err
	}
	digest, err := spkipin.ParseDigest(digestName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	q, err := newDANEQuery(cmd)
	if err != nil {
		return err
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	ctx, cancel := context.WithTimeout(sigCtx, defaultDANEResolveTimeout)
	defer cancel()

	pins, err := q.resolver.LookupPinsWithDigest(ctx, q.hostname, q.port, digest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	slog.Info("resolved TLSA pins", "hostname", q.hostname, "port", q.port, "count", len(pins))

	if format == formatJSON {
		data, err := json.MarshalIndent(pins, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(append(data, '\n'))
	}
	return writeOutput([]byte(strings.Join(pins, "\n") + "\n"))
}

func runDANEShow(cmd *cobra.Command, args []string) error {
	q, err := newDANEQuery(cmd)
	if err != nil {
		return err
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	ctx, cancel := context.WithTimeout(sigCtx, defaultDANEResolveTimeout)
	defer cancel()

	slog.Debug("querying TLSA records", "hostname", q.hostname, "port", q.port, "dns_server", q.resolver.Server())

	records, err := q.resolver.LookupTLSA(ctx, q.hostname, q.port)
	if err != nil {
		return fmt.Errorf("%w: TLSA lookup: %w", ErrLookupFailed, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "TLSA records for _%d._tcp.%s:\n\n", q.port, q.hostname)
	for i, rec := range records {
		fmt.Fprintf(&buf, "Record %d:\n", i+1)
		fmt.Fprintf(&buf, "  Usage:        %d (%s)\n", rec.Usage, tlsaUsageName(rec.Usage))
		fmt.Fprintf(&buf, "  Selector:     %d (%s)\n", rec.Selector, tlsaSelectorName(rec.Selector))
		fmt.Fprintf(&buf, "  MatchingType: %d (%s)\n", rec.MatchingType, tlsaMatchingName(rec.MatchingType))
		fmt.Fprintf(&buf, "  Data:         %s\n\n", hex.EncodeToString(rec.CertData))
	}
	fmt.Fprintf(&buf, "Total: %d record(s)\n", len(records))
	return writeOutput(buf.Bytes())
}

func runDANERecord(cmd *cobra.Command, args []string) error {
	certFile, _ := cmd.Flags().GetString("cert-file")
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetInt("port")
	usage, _ := cmd.Flags().GetInt("usage")
	matchingType, _ := cmd.Flags().GetInt("matching-type")

	if certFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}
	if hostname == "" {
		return fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: --port must be between 1 and 65535", ErrInvalidInput)
	}
	if usage < 0 || usage > int(dane.UsageDANEEE) {
		return fmt.Errorf("%w: --usage must be between 0 and 3", ErrInvalidInput)
	}
	if matchingType < 0 || matchingType > 255 {
		return fmt.Errorf("%w: invalid --matching-type", ErrInvalidInput)
	}

	certs, err := loadCertificates(certFile)
	if err != nil {
		return err
	}

	rec, err := dane.PinZoneRecord(certs[0], hostname, uint16(port), uint8(usage), uint8(matchingType))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return writeOutput([]byte(rec.ZoneLine + "\n"))
}

// usageNames provides O(1) lookup for TLSA usage field descriptions.
var usageNames = map[uint8]string{
	dane.UsageCAConstraint: "PKIX-TA",
	dane.UsageServiceCert:  "PKIX-EE",
	dane.UsageDANETA:       "DANE-TA",
	dane.UsageDANEEE:       "DANE-EE",
}

// selectorNames provides O(1) lookup for TLSA selector field descriptions.
var selectorNames = map[uint8]string{
	dane.SelectorFullCert: "Full Certificate",
	dane.SelectorSPKI:     "SubjectPublicKeyInfo",
}

// matchingNames provides O(1) lookup for TLSA matching type field descriptions.
var matchingNames = map[uint8]string{
	dane.MatchingExact:  "Exact Match",
	dane.MatchingSHA256: "SHA-256",
	dane.MatchingSHA512: "SHA-512",
}

func tlsaUsageName(usage uint8) string {
	if name, ok := usageNames[usage]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", usage)
}

func tlsaSelectorName(selector uint8) string {
	if name, ok := selectorNames[selector]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", selector)
}

func tlsaMatchingName(matchingType uint8) string {
	if name, ok := matchingNames[matchingType]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", matchingType)
}
