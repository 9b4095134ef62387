package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CertManager loads the CA certificates the kiosk trusts when talking to
// the attendance backend over TLS (school servers often use a private CA).
type CertManager struct {
	certDir string
	now     func() time.Time
}

// NewCertManager creates a new CertManager for the given directory.
func NewCertManager(certDir string) *CertManager {
	return &CertManager{certDir: certDir, now: time.Now}
}

// LoadCertificates loads every .crt/.pem certificate under the cert directory.
func (cm *CertManager) LoadCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	err := filepath.Walk(cm.certDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(info.Name(), ".crt") || strings.HasSuffix(info.Name(), ".pem") {
			loaded, err := cm.loadCertificates(path)
			if err != nil {
				return err
			}
			certs = append(certs, loaded...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return certs, nil
}

// loadCertificates loads all CERTIFICATE blocks of a PEM file.
func (cm *CertManager) loadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("failed to parse certificate PEM: " + path)
	}
	return certs, nil
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}

// Pool returns the system roots plus every non-expired certificate of the
// directory, and the subjects of the expired ones that were skipped.
func (cm *CertManager) Pool() (*x509.CertPool, []string, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	certs, err := cm.LoadCertificates()
	if err != nil {
		return nil, nil, err
	}
	var expired []string
	for _, c := range certs {
		if cm.IsExpired(c) {
			expired = append(expired, c.Subject.String())
			continue
		}
		pool.AddCert(c)
	}
	return pool, expired, nil
}

// TLSConfig returns a client TLS configuration trusting Pool().
func (cm *CertManager) TLSConfig() (*tls.Config, []string, error) {
	pool, expired, err := cm.Pool()
	if err != nil {
		return nil, nil, err
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, expired, nil
}
