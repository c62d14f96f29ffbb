// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package truststore

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
	"github.com/valyala/bytebufferpool"
)

const pemCertificateType = "CERTIFICATE"

// envCertFile overrides the system bundle location.
const envCertFile = "SSL_CERT_FILE"

// systemBundles lists the usual CA bundle locations on Linux distributions.
var systemBundles = []string{
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/pki/tls/certs/ca-bundle.crt",
	"/etc/ssl/ca-bundle.pem",
	"/etc/pki/ca-trust/extracted/pem/tls-ca-bundle.pem",
	"/etc/ssl/cert.pem",
}

var readPool bytebufferpool.Pool

// Parse decodes every certificate in data. PEM bundles, concatenated DER
// certificates and PKCS#7 containers are accepted.
func Parse(data []byte) ([]*x509.Certificate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrParseCertificate
	}

	if bytes.Contains(trimmed, []byte("-----BEGIN ")) {
		return parsePEM(trimmed)
	}

	if certs, err := x509.ParseCertificates(trimmed); err == nil && len(certs) > 0 {
		return certs, nil
	}

	return parsePKCS7(trimmed)
}

// parsePEM parses all CERTIFICATE and PKCS7 blocks; other block types are skipped.
func parsePEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data

	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case pemCertificateType, "TRUSTED CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
			}
			certs = append(certs, cert)
		case "PKCS7":
			inner, err := parsePKCS7(block.Bytes)
			if err != nil {
				return nil, err
			}
			certs = append(certs, inner...)
		}
	}

	if len(certs) == 0 {
		return nil, ErrParseCertificate
	}
	return certs, nil
}

func parsePKCS7(data []byte) ([]*x509.Certificate, error) {
	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificatesInPKCS7
	}
	return p.Content.SignedData.Certificates, nil
}

// readFile reads path through a pooled buffer and returns a private copy.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // trust store paths are operator supplied
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	defer f.Close()

	buf := readPool.Get()
	defer readPool.Put(buf)

	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFile, path, err)
	}
	return append([]byte(nil), buf.B...), nil
}

// LoadFile parses every certificate in the file at path.
func LoadFile(path string) ([]*x509.Certificate, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	certs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return certs, nil
}

// LoadDir parses every regular file in dir whose extension is .pem, .crt,
// .cer, .der or .p7b. Files are read in lexical order.
func LoadDir(dir string) ([]*x509.Certificate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var certs []*x509.Certificate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !certExtensions[filepath.Ext(entry.Name())] {
			continue
		}
		loaded, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		certs = append(certs, loaded...)
	}
	return certs, nil
}

var certExtensions = map[string]bool{
	".pem": true,
	".crt": true,
	".cer": true,
	".der": true,
	".p7b": true,
	".p7c": true,
}

// FromFiles builds a Store from files and directories.
func FromFiles(paths ...string) (*Store, error) {
	var certs []*x509.Certificate
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
		}
		var loaded []*x509.Certificate
		if info.IsDir() {
			loaded, err = LoadDir(path)
		} else {
			loaded, err = LoadFile(path)
		}
		if err != nil {
			return nil, err
		}
		certs = append(certs, loaded...)
	}
	return New(certs...)
}

// System builds a Store from the host CA bundle. SSL_CERT_FILE, when set,
// names the only bundle consulted.
func System() (*Store, error) {
	if path := os.Getenv(envCertFile); path != "" {
		return FromFiles(path)
	}
	for _, path := range systemBundles {
		if _, err := os.Stat(path); err == nil {
			return FromFiles(path)
		}
	}
	return nil, ErrSystemStoreNotFound
}
