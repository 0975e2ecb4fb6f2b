package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/readyctl/internal/testutil/testlog"
	"github.com/danmuck/readyctl/internal/testutil/tlstest"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestWithDefaultsKeepsOverridesAndFillsGaps(t *testing.T) {
	testlog.Start(t)
	cfg := Config{WriteTimeout: time.Second, PingInterval: 10 * time.Second}.WithDefaults()
	if cfg.WriteTimeout != time.Second {
		t.Fatalf("write timeout overridden: %v", cfg.WriteTimeout)
	}
	if cfg.PongWait <= cfg.PingInterval {
		t.Fatalf("pong wait %v must exceed ping interval %v", cfg.PongWait, cfg.PingInterval)
	}
	if cfg.SecurityMode != SecurityModeDevelopment {
		t.Fatalf("unexpected security mode %q", cfg.SecurityMode)
	}
	if cfg.MaxMessageBytes != DefaultConfig().MaxMessageBytes {
		t.Fatalf("unexpected max message bytes %d", cfg.MaxMessageBytes)
	}
}

func TestValidateTransportPolicy(t *testing.T) {
	testlog.Start(t)

	prod := DefaultConfig()
	prod.SecurityMode = SecurityModeProduction
	if err := prod.ValidateServerTransport(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
	prod.TLS.Enabled = true
	if err := prod.ValidateServerTransport(); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}
	prod.TLS.InsecureSkipVerify = true
	if err := prod.ValidateClientTransport(); !errors.Is(err, ErrTLSInsecureSkipNotAllow) {
		t.Fatalf("expected ErrTLSInsecureSkipNotAllow, got %v", err)
	}

	dev := DefaultConfig()
	dev.TLS.Enabled = true
	if err := dev.ValidateClientTransport(); !errors.Is(err, ErrTLSCAFileRequired) {
		t.Fatalf("expected ErrTLSCAFileRequired, got %v", err)
	}

	bad := DefaultConfig()
	bad.SecurityMode = "paranoid"
	if err := bad.ValidateServerTransport(); !errors.Is(err, ErrInvalidSecurityMode) {
		t.Fatalf("expected ErrInvalidSecurityMode, got %v", err)
	}
}

func TestTLSConfigsFromFiles(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "readyctl-test-ca")
	certFile, keyFile := ca.IssueServerCert(t, dir, "coordinator", []string{"localhost"}, []net.IP{net.ParseIP("127.0.0.1")})

	server := DefaultConfig()
	server.TLS = TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}
	srvTLS, err := server.ServerTLSConfig()
	if err != nil {
		t.Fatalf("server tls: %v", err)
	}
	if len(srvTLS.Certificates) != 1 {
		t.Fatalf("expected one server certificate")
	}

	client := DefaultConfig()
	client.TLS = TLSConfig{Enabled: true, CAFile: ca.CAFile()}
	cliTLS, err := client.ClientTLSConfig("wss://127.0.0.1:8443/ws")
	if err != nil {
		t.Fatalf("client tls: %v", err)
	}
	if cliTLS.ServerName != "127.0.0.1" {
		t.Fatalf("unexpected server name %q", cliTLS.ServerName)
	}
	if cliTLS.RootCAs == nil {
		t.Fatalf("expected root CAs from ca file")
	}

	disabled, err := DefaultConfig().ClientTLSConfig("ws://127.0.0.1:8080/ws")
	if err != nil || disabled != nil {
		t.Fatalf("expected nil tls config when disabled, got %v %v", disabled, err)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := BackoffConfig{InitialDelay: time.Hour, Multiplier: 1}
	if err := Sleep(ctx, cfg, 1, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := Sleep(context.Background(), BackoffConfig{InitialDelay: time.Millisecond}, 1, nil); err != nil {
		t.Fatalf("sleep: %v", err)
	}
}

func TestEventChannelURL(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		address string
		tls     bool
		want    string
	}{
		{"http://127.0.0.1:8080", false, "ws://127.0.0.1:8080/ws"},
		{"https://coord.example:443/", false, "wss://coord.example:443/ws"},
		{"ws://10.0.0.5:9000/ws", false, "ws://10.0.0.5:9000/ws"},
		{"localhost:8080", false, "ws://localhost:8080/ws"},
		{"localhost:8080", true, "wss://localhost:8080/ws"},
		{"http://localhost:8080/custom", true, "wss://localhost:8080/custom"},
	}
	for _, tc := range cases {
		got, err := EventChannelURL(tc.address, tc.tls)
		if err != nil {
			t.Fatalf("EventChannelURL(%q): %v", tc.address, err)
		}
		if got != tc.want {
			t.Fatalf("EventChannelURL(%q) = %q, want %q", tc.address, got, tc.want)
		}
	}
	for _, bad := range []string{"", "  ", "ftp://host:21", "http://"} {
		if _, err := EventChannelURL(bad, false); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected ErrInvalidAddress for %q, got %v", bad, err)
		}
	}
}
