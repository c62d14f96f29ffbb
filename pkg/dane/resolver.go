// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultTimeout is the default DNS query timeout.
	defaultTimeout = 5 * time.Second

	defaultDNSPort = "53"
	defaultDoTPort = "853"

	// resolvConf is consulted when no server is configured.
	resolvConf = "/etc/resolv.conf"
)

// Resolver performs TLSA lookups over UDP or DNS-over-TLS.
type Resolver struct {
	client    *dns.Client
	server    string
	requireAD bool
	logger    *slog.Logger
}

// NewResolver creates a resolver. A zero Timeout selects 5 seconds and an
// empty Server selects the system resolver.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg == nil {
		return nil, ErrResolverConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &dns.Client{Net: "udp", Timeout: timeout}
	port := defaultDNSPort
	if cfg.UseTLS {
		client.Net = "tcp-tls"
		client.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.TLSServerName,
		}
		port = defaultDoTPort
	}

	server, err := resolveServer(cfg.Server, port)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		client:    client,
		server:    server,
		requireAD: cfg.RequireAD,
		logger:    logger.With("component", "dane"),
	}, nil
}

// resolveServer appends the default port to server, or picks the first
// system nameserver when server is empty.
func resolveServer(server, port string) (string, error) {
	if server != "" {
		if _, _, err := net.SplitHostPort(server); err == nil {
			return server, nil
		}
		return net.JoinHostPort(strings.Trim(server, "[]"), port), nil
	}

	systemCfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolverConfig, err)
	}
	if len(systemCfg.Servers) == 0 {
		return "", fmt.Errorf("%w: no nameservers in %s", ErrResolverConfig, resolvConf)
	}
	if systemCfg.Port != "" {
		port = systemCfg.Port
	}
	return net.JoinHostPort(systemCfg.Servers[0], port), nil
}

// Server returns the address queries are sent to.
func (r *Resolver) Server() string {
	return r.server
}

// LookupTLSA queries "_<port>._tcp.<hostname>." for TLSA records. Records
// whose association data is not valid hex are skipped.
func (r *Resolver) LookupTLSA(ctx context.Context, hostname string, port uint16) ([]*TLSARecord, error) {
	if err := validateHostname(hostname); err != nil {
		return nil, err
	}
	if port == 0 {
		return nil, ErrInvalidPort
	}

	qname := formatTLSAName(hostname, port)

	msg := new(dns.Msg)
	msg.SetQuestion(qname, dns.TypeTLSA)
	msg.SetEdns0(4096, true)
	msg.RecursionDesired = true

	r.logger.Debug("querying TLSA records", "name", qname, "server", r.server)

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDNSLookupFailed, err)
	}
	if resp == nil {
		return nil, ErrDNSLookupFailed
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: rcode %s", ErrDNSLookupFailed, dns.RcodeToString[resp.Rcode])
	}
	if r.requireAD && !resp.AuthenticatedData {
		return nil, ErrDNSSECRequired
	}

	records := make([]*TLSARecord, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		tlsa, ok := rr.(*dns.TLSA)
		if !ok {
			continue
		}
		data, err := hex.DecodeString(tlsa.Certificate)
		if err != nil {
			r.logger.Debug("skipping TLSA record with malformed data", "name", qname)
			continue
		}
		records = append(records, &TLSARecord{
			Usage:        tlsa.Usage,
			Selector:     tlsa.Selector,
			MatchingType: tlsa.MatchingType,
			CertData:     data,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoTLSARecords
	}
	return records, nil
}

func validateHostname(hostname string) error {
	if hostname == "" || len(hostname) > 253 || strings.ContainsRune(hostname, 0) {
		return ErrInvalidHostname
	}
	return nil
}

// formatTLSAName returns the absolute owner name "_<port>._tcp.<hostname>.".
func formatTLSAName(hostname string, port uint16) string {
	return fmt.Sprintf("_%d._tcp.%s", port, dns.Fqdn(hostname))
}
