// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package config loads the YAML file that describes a pinning policy: the
// digest and pins to enforce, where trusted roots come from, and optionally
// a DNS name whose TLSA records publish additional pins.
package config

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-pintrust/pkg/dane"
	"github.com/jeremyhahn/go-pintrust/pkg/pinning"
	"github.com/jeremyhahn/go-pintrust/pkg/spkipin"
	"github.com/jeremyhahn/go-pintrust/pkg/truststore"
)

// DefaultDANEPort is used when dane.port is omitted.
const DefaultDANEPort = 443

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Error describes a single invalid field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return "config: " + e.Message
}

// Unwrap returns ErrInvalidConfig.
func (e *Error) Unwrap() error {
	return ErrInvalidConfig
}

func fieldError(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Config is the top-level pinning policy.
type Config struct {
	// Digest names the pin digest ("sha256", "sha1", ...). Default: sha256.
	Digest string `yaml:"digest"`

	// Pins are hex-encoded SPKI fingerprints.
	Pins []string `yaml:"pins"`

	// TrustStore selects the trusted roots.
	TrustStore TrustStoreConfig `yaml:"trust-store"`

	// DANE adds pins published in TLSA records.
	DANE *DANEConfig `yaml:"dane,omitempty"`
}

// TrustStoreConfig lists root certificate sources. Files may name PEM, DER
// or PKCS#7 files and directories.
type TrustStoreConfig struct {
	Files  []string `yaml:"files"`
	System bool     `yaml:"system"`
}

// DANEConfig describes where to look up TLSA pins.
type DANEConfig struct {
	Hostname  string        `yaml:"hostname"`
	Port      uint16        `yaml:"port"`
	Server    string        `yaml:"server"`
	UseTLS    bool          `yaml:"use-tls"`
	RequireAD bool          `yaml:"require-ad"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration without touching the network or the
// file system, and fills in the DANE port default.
func (c *Config) Validate() error {
	digest, err := spkipin.ParseDigest(c.Digest)
	if err != nil {
		return fieldError("digest", "unsupported digest %q", c.Digest)
	}

	if len(c.Pins) == 0 && c.DANE == nil {
		return fieldError("pins", "at least one pin or a dane section is required")
	}
	if len(c.Pins) > 0 {
		if _, err := spkipin.NewPinSet(digest, c.Pins...); err != nil {
			return fieldError("pins", "%v", err)
		}
	}

	if len(c.TrustStore.Files) == 0 && !c.TrustStore.System {
		return fieldError("trust-store", "set files or system")
	}

	if c.DANE != nil {
		if c.DANE.Hostname == "" {
			return fieldError("dane.hostname", "required field is missing")
		}
		if c.DANE.Port == 0 {
			c.DANE.Port = DefaultDANEPort
		}
		if c.DANE.Timeout < 0 {
			return fieldError("dane.timeout", "must not be negative")
		}
	}
	return nil
}

// PinDigest returns the configured digest. Validate must have succeeded.
func (c *Config) PinDigest() spkipin.Digest {
	d, _ := spkipin.ParseDigest(c.Digest)
	return d
}

// LoadTrustStore builds the trust store from the configured sources.
func (c *Config) LoadTrustStore() (*truststore.Store, error) {
	var certs []*x509.Certificate
	if c.TrustStore.System {
		system, err := truststore.System()
		if err != nil {
			return nil, err
		}
		certs = append(certs, system.Certificates()...)
	}
	if len(c.TrustStore.Files) > 0 {
		files, err := truststore.FromFiles(c.TrustStore.Files...)
		if err != nil {
			return nil, err
		}
		certs = append(certs, files.Certificates()...)
	}
	return truststore.New(certs...)
}

// LoadPins returns the configured pins followed by any pins published over
// DANE.
func (c *Config) LoadPins(ctx context.Context, logger *slog.Logger) (*spkipin.PinSet, error) {
	pins := append([]string(nil), c.Pins...)

	if c.DANE != nil {
		resolver, err := dane.NewResolver(&dane.ResolverConfig{
			Server:    c.DANE.Server,
			UseTLS:    c.DANE.UseTLS,
			RequireAD: c.DANE.RequireAD,
			Timeout:   c.DANE.Timeout,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		published, err := resolver.LookupPinsWithDigest(ctx, c.DANE.Hostname, c.DANE.Port, c.PinDigest())
		if err != nil {
			return nil, err
		}
		pins = append(pins, published...)
	}

	return spkipin.NewPinSet(c.PinDigest(), pins...)
}

// Build assembles a TrustManager from the configuration.
func (c *Config) Build(ctx context.Context, logger *slog.Logger) (*pinning.TrustManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pins, err := c.LoadPins(ctx, logger)
	if err != nil {
		return nil, err
	}

	store, err := c.LoadTrustStore()
	if err != nil {
		return nil, err
	}

	return pinning.NewTrustManager(&pinning.Config{
		Pins:       pins,
		TrustStore: store,
		Logger:     logger,
	})
}
