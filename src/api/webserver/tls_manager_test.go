package webserver

import (
	"context"
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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSelfSigned(t *testing.T, dir, cn string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestTLSReloaderPicksUpRenewal(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "first")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, err := NewTLSReloader(ctx, certFile, keyFile)
	require.NoError(t, err)

	first, err := r.GetCertificate()(nil)
	require.NoError(t, err)
	require.NoError(t, r.reloadIfChanged())
	same, _ := r.GetCertificate()(nil)
	assert.Same(t, first, same)

	writeSelfSigned(t, dir, "second")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(certFile, later, later))
	require.NoError(t, r.reloadIfChanged())

	second, _ := r.GetCertificate()(nil)
	assert.NotSame(t, first, second)
	assert.Equal(t, uint16(0x0303), r.GetConfig().MinVersion)
}

func TestTLSReloaderMissingFiles(t *testing.T) {
	_, err := NewTLSReloader(context.Background(), "/nonexistent/cert.pem", "/nonexistent/key.pem")
	assert.Error(t, err)
}
