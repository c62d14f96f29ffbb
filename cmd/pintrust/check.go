// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-pintrust/pkg/config"
	"github.com/jeremyhahn/go-pintrust/pkg/pinning"
	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

const (
	// defaultCheckPort is used when a host argument carries no port.
	defaultCheckPort = "443"

	// defaultCheckTimeout bounds each TLS handshake.
	defaultCheckTimeout = 10 * time.Second

	// maxParallelChecks limits concurrent handshakes.
	maxParallelChecks = 8
)

// checkCmd connects to servers and enforces a pin set on their chains.
var checkCmd = &cobra.Command{
	Use:   "check host[:port]...",
	Short: "Check TLS servers against a pin set",
	Long: `Connect to each server, validate its certificate chain against the trust
store and require that the chain, or the trusted root that closes it, carries
one of the configured pins.

Pins come from repeated --pin flags, from a --config policy file, or both.
With --config the pin digest is taken from the policy file.
Without --config the trust store is built from --ca-file, falling back to the
system bundle. The command fails if any server is rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringSlice("pin", nil, "hex-encoded SPKI pin (repeatable)")
	checkCmd.Flags().String("config", "", "path to YAML pinning policy")
	checkCmd.Flags().String("digest", spkipin.DefaultDigest.String(), "pin digest for --pin values (not allowed with --config)")
	checkCmd.Flags().StringSlice("ca-file", nil, "trust store file or directory (repeatable)")
	checkCmd.Flags().Duration("timeout", defaultCheckTimeout, "per-host handshake timeout")
}

// certRow describes one certificate presented by a server.
type certRow struct {
	Role    string `json:"role"`
	Subject string `json:"subject"`
	Pin     string `json:"pin"`
	Matched bool   `json:"matched"`
}

// checkResult is the outcome for one host.
type checkResult struct {
	Host     string    `json:"host"`
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason,omitempty"`
	Error    string    `json:"error,omitempty"`
	Chain    []certRow `json:"chain"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return fmt.Errorf("%w: --timeout must be positive", ErrInvalidInput)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	tm, err := buildTrustManager(sigCtx, cmd)
	if err != nil {
		return err
	}

	results := make([]checkResult, len(args))
	g, ctx := errgroup.WithContext(sigCtx)
	g.SetLimit(maxParallelChecks)
	for i, arg := range args {
		g.Go(func() error {
			results[i] = checkHost(ctx, tm, arg, timeout)
			return nil
		})
	}
	_ = g.Wait()

	out, err := renderResults(results)
	if err != nil {
		return err
	}
	if err := writeOutput(out); err != nil {
		return err
	}

	var rejected int
	for _, r := range results {
		if !r.Accepted {
			rejected++
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d hosts rejected", ErrCheckFailed, rejected, len(results))
	}
	return nil
}

// buildTrustManager assembles the TrustManager from --config and the
// command-line pins and trust store flags.
func buildTrustManager(ctx context.Context, cmd *cobra.Command) (*pinning.TrustManager, error) {
	pins, _ := cmd.Flags().GetStringSlice("pin")
	configFile, _ := cmd.Flags().GetString("config")
	digestName, _ := cmd.Flags().GetString("digest")
	caFiles, _ := cmd.Flags().GetStringSlice("ca-file")

	if configFile != "" {
		if cmd.Flags().Changed("digest") {
			return nil, fmt.Errorf("%w: --digest cannot be combined with --config; set digest in the policy file", ErrInvalidInput)
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		cfg.Pins = append(cfg.Pins, pins...)
		cfg.TrustStore.Files = append(cfg.TrustStore.Files, caFiles...)
		tm, err := cfg.Build(ctx, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return tm, nil
	}

	if len(pins) == 0 {
		return nil, fmt.Errorf("%w: --pin or --config is required", ErrInvalidInput)
	}
	digest, err := spkipin.ParseDigest(digestName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	pinSet, err := spkipin.NewPinSet(digest, pins...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var store *truststore.Store
	if len(caFiles) > 0 {
		store, err = truststore.FromFiles(caFiles...)
	} else {
		store, err = truststore.System()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: trust store: %w", ErrInvalidInput, err)
	}

	tm, err := pinning.NewTrustManager(&pinning.Config{
		Pins:       pinSet,
		TrustStore: store,
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return tm, nil
}

// splitHostPort accepts "host", "host:port" and bracketed IPv6 forms.
func splitHostPort(arg string) (host, port string) {
	if h, p, err := net.SplitHostPort(arg); err == nil {
		return h, p
	}
	return arg, defaultCheckPort
}

// checkHost performs one handshake with tm as the only verifier and reports
// the chain the server presented.
func checkHost(ctx context.Context, tm *pinning.TrustManager, arg string, timeout time.Duration) checkResult {
	host, port := splitHostPort(arg)
	addr := net.JoinHostPort(host, port)
	result := checkResult{Host: addr}

	var peer []*x509.Certificate
	tlsCfg := tm.TLSConfig(host)
	verify := tlsCfg.VerifyConnection
	tlsCfg.VerifyConnection = func(cs tls.ConnectionState) error {
		peer = cs.PeerCertificates
		return verify(cs)
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    tlsCfg,
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Debug("checking host", "addr", addr)

	conn, dialErr := dialer.DialContext(dialCtx, "tcp", addr)
	if dialErr == nil {
		_ = conn.Close()
		result.Accepted = true
	} else {
		result.Error = dialErr.Error()
	}

	if len(peer) == 0 {
		slog.Warn("no certificates received", "addr", addr, "error", dialErr)
		return result
	}

	chain := pinning.Chain(peer)
	verdict, _ := tm.Validate(chain, pinning.AuthTypeFor(chain.Leaf()))
	switch {
	case !verdict.Accepted:
		result.Accepted = false
		result.Reason = verdict.Reason.String()
	case dialErr != nil:
		// The pins matched but the leaf does not cover the host name.
		result.Reason = pinning.ReasonChainInvalid.String()
	}
	result.Chain = describeChain(tm.Pins(), chain, verdict)

	slog.Info("host checked", "addr", addr, "accepted", result.Accepted, "reason", result.Reason)
	return result
}

// describeChain lists the presented certificates followed by the resolved
// anchor when the server did not send it.
func describeChain(pins *spkipin.PinSet, chain pinning.Chain, verdict pinning.Verdict) []certRow {
	rows := make([]certRow, 0, len(chain)+1)
	anchorSent := false
	for i, cert := range chain {
		if verdict.Anchor != nil && cert.Equal(verdict.Anchor) {
			anchorSent = true
		}
		rows = append(rows, newCertRow(pins, chainRole(chain, i), cert, verdict))
	}
	if verdict.Anchor != nil && !anchorSent {
		rows = append(rows, newCertRow(pins, "anchor", verdict.Anchor, verdict))
	}
	return rows
}

func newCertRow(pins *spkipin.PinSet, role string, cert *x509.Certificate, verdict pinning.Verdict) certRow {
	fp := pins.Fingerprint(cert)
	return certRow{
		Role:    role,
		Subject: cert.Subject.String(),
		Pin:     fp.String(),
		Matched: verdict.Matched != nil && fp.Equal(verdict.Matched),
	}
}

func chainRole(chain pinning.Chain, i int) string {
	switch {
	case i == 0:
		return "leaf"
	case i == len(chain)-1 && bytes.Equal(chain[i].RawSubject, chain[i].RawIssuer):
		return "root"
	default:
		return "intermediate"
	}
}

// renderResults formats check results according to --format.
func renderResults(results []checkResult) ([]byte, error) {
	if format == formatJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"Host", "Status", "#", "Role", "Subject", "Pin", "Match"})

	var rows [][]string
	for _, r := range results {
		status := "accepted"
		if !r.Accepted {
			status = "rejected"
			if r.Reason != "" {
				status += " (" + r.Reason + ")"
			}
		}
		if len(r.Chain) == 0 {
			rows = append(rows, []string{r.Host, status, "-", "-", r.Error, "-", "-"})
			continue
		}
		for i, c := range r.Chain {
			match := ""
			if c.Matched {
				match = "yes"
			}
			rows = append(rows, []string{r.Host, status, fmt.Sprintf("%d", i+1), c.Role, c.Subject, c.Pin, match})
		}
	}

	if err := table.Bulk(rows); err != nil {
		return nil, err
	}
	if err := table.Render(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
