package webserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

const tlsPollInterval = 5 * time.Minute

// TLSReloader serves a certificate pair from disk and swaps in renewed files
// without a restart.
type TLSReloader struct {
	certFile string
	keyFile  string

	mu      sync.RWMutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

// NewTLSReloader loads the pair and polls for changes until ctx is done.
func NewTLSReloader(ctx context.Context, certFile, keyFile string) (*TLSReloader, error) {
	r := &TLSReloader{certFile: certFile, keyFile: keyFile}
	certMod, keyMod, err := r.modTimes()
	if err != nil {
		return nil, err
	}
	if err := r.load(certMod, keyMod); err != nil {
		return nil, err
	}
	go r.poll(ctx, tlsPollInterval)
	return r, nil
}

func (r *TLSReloader) modTimes() (time.Time, time.Time, error) {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("tls cert: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("tls key: %w", err)
	}
	return certInfo.ModTime(), keyInfo.ModTime(), nil
}

func (r *TLSReloader) load(certMod, keyMod time.Time) error {
	pair, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("tls pair: %w", err)
	}
	r.mu.Lock()
	r.cert = &pair
	r.certMod = certMod
	r.keyMod = keyMod
	r.mu.Unlock()

	log.Printf("api: TLS certificate loaded from %s", r.certFile)
	return nil
}

func (r *TLSReloader) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reloadIfChanged(); err != nil {
				// Keep serving the previous pair.
				log.Printf("api: TLS reload failed: %v", err)
			}
		}
	}
}

// reloadIfChanged reloads when either file is newer than the loaded pair.
func (r *TLSReloader) reloadIfChanged() error {
	certMod, keyMod, err := r.modTimes()
	if err != nil {
		return err
	}
	r.mu.RLock()
	stale := certMod.After(r.certMod) || keyMod.After(r.keyMod)
	r.mu.RUnlock()
	if !stale {
		return nil
	}
	return r.load(certMod, keyMod)
}

func (r *TLSReloader) GetCertificate() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.cert, nil
	}
}

// GetConfig returns a server config backed by the reloader.
func (r *TLSReloader) GetConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate(),
		MinVersion:     tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}
