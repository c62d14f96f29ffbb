// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-pintrust/internal/testpki"
)

// captureOutput redirects command output into a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	format = formatTable
	outputFile = ""
	t.Cleanup(func() {
		stdout = os.Stdout
		format = formatTable
		outputFile = ""
	})
	return &buf
}

// resetFlags restores every flag of cmd to its default.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	})
}

// writePEM writes the certificates to a PEM file in a temp directory.
func writePEM(t *testing.T, certs ...*testpki.Cert) string {
	t.Helper()
	var data []byte
	for _, c := range certs {
		data = append(data, c.PEM()...)
	}
	path := filepath.Join(t.TempDir(), "certs.pem")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// startTLSServer serves leaf and chain on 127.0.0.1.
func startTLSServer(t *testing.T, leaf *testpki.Cert, chain ...*testpki.Cert) string {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	srv.TLS = &tls.Config{
		Certificates: []tls.Certificate{testpki.TLSCertificate(leaf, chain...)},
		MinVersion:   tls.VersionTLS12,
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv.Listener.Addr().String()
}

// startMockDNS answers every TLSA query with records.
func startMockDNS(t *testing.T, records ...*dns.TLSA) string {
	t.Helper()

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.AuthenticatedData = true
		for _, q := range r.Question {
			for _, rec := range records {
				answer := dns.Copy(rec)
				answer.Header().Name = q.Name
				m.Answer = append(m.Answer, answer)
			}
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{PacketConn: pc, Handler: handler}
	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

func tlsaRR(usage, selector, matching uint8, data string) *dns.TLSA {
	return &dns.TLSA{
		Hdr:          dns.RR_Header{Rrtype: dns.TypeTLSA, Class: dns.ClassINET, Ttl: 300},
		Usage:        usage,
		Selector:     selector,
		MatchingType: matching,
		Certificate:  data,
	}
}
