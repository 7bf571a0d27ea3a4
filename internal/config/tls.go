package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// WebhookTLS builds a *tls.Config from the webhook TLS fields.
// Returns nil, nil if nothing is configured (default transport).
func (c *Config) WebhookTLS() (*tls.Config, error) {
	if c.WebhookTLSCert == "" && c.WebhookTLSKey == "" && c.WebhookTLSCACert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{}

	if c.WebhookTLSCert != "" || c.WebhookTLSKey != "" {
		cert, err := tls.LoadX509KeyPair(c.WebhookTLSCert, c.WebhookTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load webhook client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.WebhookTLSCACert != "" {
		caPEM, err := os.ReadFile(c.WebhookTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read webhook CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse webhook CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if c.WebhookTLSServerName != "" {
		tlsConfig.ServerName = c.WebhookTLSServerName
	}

	return tlsConfig, nil
}
