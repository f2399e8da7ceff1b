package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	certFileName = "mockapi.crt"
	keyFileName  = "mockapi.key"

	defaultValidity = 365 * 24 * time.Hour
)

// ErrNoCertificate is returned when nothing could be loaded and generation is off
var ErrNoCertificate = errors.New("no TLS certificate found and auto-generation is disabled")

// Options configures where certificates come from
type Options struct {
	CertFile     string        // Explicit certificate, takes precedence over the store
	KeyFile      string        // Explicit private key
	StorePath    string        // Directory holding generated certificates
	AutoGenerate bool          // Create a self-signed pair in StorePath when none exists
	Hosts        []string      // Extra DNS names or IPs for generated certificates
	Validity     time.Duration // Lifetime of generated certificates
}

// Manager loads or creates the certificate the mock server presents
type Manager struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a certificate manager
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Validity <= 0 {
		opts.Validity = defaultValidity
	}
	return &Manager{opts: opts, logger: logger, now: time.Now}
}

// Paths returns the certificate and key files in use
func (m *Manager) Paths() (certPath, keyPath string) {
	if m.opts.CertFile != "" && m.opts.KeyFile != "" {
		return m.opts.CertFile, m.opts.KeyFile
	}
	return filepath.Join(m.opts.StorePath, certFileName), filepath.Join(m.opts.StorePath, keyFileName)
}

// Certificate returns the configured pair, a previously generated one from
// the store, or a freshly generated self-signed one
func (m *Manager) Certificate() (*tls.Certificate, error) {
	if m.opts.CertFile != "" && m.opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.opts.CertFile, m.opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate from %s and %s: %w", m.opts.CertFile, m.opts.KeyFile, err)
		}
		m.logger.Info("loaded TLS certificate", zap.String("cert", m.opts.CertFile))
		return &cert, nil
	}

	certPath, keyPath := m.Paths()
	if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil && m.now().After(leaf.NotAfter) {
			m.logger.Warn("stored TLS certificate expired", zap.String("cert", certPath), zap.Time("notAfter", leaf.NotAfter))
		} else {
			m.logger.Debug("loaded stored TLS certificate", zap.String("cert", certPath))
			return &cert, nil
		}
	}

	if !m.opts.AutoGenerate {
		return nil, ErrNoCertificate
	}

	return m.generate()
}

// TLSConfig returns a server configuration presenting Certificate
func (m *Manager) TLSConfig() (*tls.Config, error) {
	cert, err := m.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}, nil
}

// generate creates a self-signed ECDSA pair and writes it to the store
func (m *Manager) generate() (*tls.Certificate, error) {
	if err := os.MkdirAll(m.opts.StorePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create certificate store directory: %w", err)
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := m.now().Add(-time.Minute)
	dnsNames, ips := m.subjectAltNames()

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"go-mockapi"},
			CommonName:   "go-mockapi self-signed",
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(m.opts.Validity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	certPath, keyPath := m.Paths()
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return nil, fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}

	m.logger.Info("generated self-signed TLS certificate",
		zap.String("cert", certPath),
		zap.Strings("dnsNames", dnsNames),
		zap.Int("ips", len(ips)),
		zap.Time("notAfter", template.NotAfter),
	)

	return &cert, nil
}

// subjectAltNames covers localhost, the configured hosts and local interfaces
func (m *Manager) subjectAltNames() ([]string, []net.IP) {
	dnsNames := []string{"localhost"}
	ips := []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}

	for _, host := range m.opts.Hosts {
		if host == "" || host == "localhost" {
			continue
		}
		if ip := net.ParseIP(host); ip != nil {
			if !ip.IsUnspecified() {
				ips = append(ips, ip)
			}
			continue
		}
		dnsNames = append(dnsNames, host)
	}

	if local, err := localIPs(); err == nil {
		ips = append(ips, local...)
	} else {
		m.logger.Debug("could not list interface addresses", zap.Error(err))
	}

	return dnsNames, ips
}

// localIPs returns all non-loopback interface addresses
func localIPs() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips, nil
}
