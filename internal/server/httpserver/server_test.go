package httpserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/crudkv-go/internal/infra/tlsroots"
)

func TestNew(t *testing.T) {
	s := New(ServerConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, okHandler())
	if s.httpServer.ReadTimeout != time.Second {
		t.Errorf("ReadTimeout = %v", s.httpServer.ReadTimeout)
	}
	if s.httpServer.ReadHeaderTimeout == 0 {
		t.Error("ReadHeaderTimeout not set")
	}
	if s.TLSEnabled() {
		t.Error("TLS enabled without a certificate")
	}

	tlsServer := New(ServerConfig{TLSCertFile: "cert.pem", TLSKeyFile: "key.pem"}, okHandler())
	if !tlsServer.TLSEnabled() {
		t.Error("TLS not enabled with certificate and key")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := New(ServerConfig{}, okHandler())
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("response = %d %q", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() after Shutdown = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_ListenAndServe_BadAddr(t *testing.T) {
	s := New(ServerConfig{Addr: "256.0.0.1:http-nope"}, okHandler())
	if err := s.ListenAndServe(); err == nil {
		t.Error("ListenAndServe() should fail for an invalid address")
	}
}

func TestServer_ServeTLS(t *testing.T) {
	certFile, keyFile := writeTestCert(t, t.TempDir())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := New(ServerConfig{TLSCertFile: certFile, TLSKeyFile: keyFile, Logger: discardLogger}, okHandler())
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	tlsCfg, err := tlsroots.ClientConfig(certFile)
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsCfg}}

	resp, err := client.Get("https://" + l.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() after Shutdown = %v, want nil", err)
	}
}

func TestServer_ServeTLS_MissingCert(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	dir := t.TempDir()
	s := New(ServerConfig{
		TLSCertFile: filepath.Join(dir, "none.crt"),
		TLSKeyFile:  filepath.Join(dir, "none.key"),
		Logger:      discardLogger,
	}, okHandler())
	if err := s.Serve(l); err == nil {
		t.Error("Serve() should fail without a certificate")
	}
}

// writeTestCert writes a self-signed certificate for 127.0.0.1.
func writeTestCert(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "crudkv-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}
