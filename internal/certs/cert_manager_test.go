package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCert(t *testing.T, dir, name, cn string, notAfter time.Time) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             notAfter.Add(-48 * time.Hour),
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	out := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, name), out, 0600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
}

func TestPoolSkipsExpired(t *testing.T) {
	dir := t.TempDir()
	writeCert(t, dir, "school.crt", "School CA", time.Now().Add(24*time.Hour))
	writeCert(t, dir, "old.pem", "Old CA", time.Now().Add(-time.Hour))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	cm := NewCertManager(dir)
	certs, err := cm.LoadCertificates()
	if err != nil {
		t.Fatalf("LoadCertificates() failed: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("loaded %d certificates, want 2", len(certs))
	}

	_, expired, err := cm.Pool()
	if err != nil {
		t.Fatalf("Pool() failed: %v", err)
	}
	if len(expired) != 1 || expired[0] != "CN=Old CA" {
		t.Fatalf("expired = %v, want [CN=Old CA]", expired)
	}
}

func TestLoadRejectsGarbagePEM(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.pem"), []byte("not a cert"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewCertManager(dir).LoadCertificates(); err == nil {
		t.Fatal("expected parse error")
	}
}
