package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// NATSTLS builds a *tls.Config for the NATS change feed. A CA alone pins the
// server; a cert/key pair adds client authentication. Returns nil, nil when
// none of the NATS TLS fields are set.
func (c *Config) NATSTLS() (*tls.Config, error) {
	if c.NATSTLSCert == "" && c.NATSTLSKey == "" && c.NATSTLSCACert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.NATSTLSCert != "" || c.NATSTLSKey != "" {
		cert, err := tls.LoadX509KeyPair(c.NATSTLSCert, c.NATSTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load nats client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.NATSTLSCACert != "" {
		caPEM, err := os.ReadFile(c.NATSTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read nats CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("parse nats CA cert: no certificates found")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
