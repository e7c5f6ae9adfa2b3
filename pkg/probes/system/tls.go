package system

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
)

// TLSExpirer implements probes.CertificateExpirer with one TLS handshake
// against the domain's HTTPS port.
type TLSExpirer struct {
	timeout time.Duration
}

func NewTLSExpirer(timeout time.Duration) *TLSExpirer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TLSExpirer{timeout: timeout}
}

func (e *TLSExpirer) CertificateExpiry(ctx context.Context, domain string) (time.Time, error) {
	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: e.timeout},
		Config:    &tls.Config{ServerName: domain},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(domain, "443"))
	if err != nil {
		return time.Time{}, errors.NewNetworkError("TLS handshake failed", err).WithContext("domain", domain)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return time.Time{}, errors.NewInternalError("unexpected connection type", nil).WithContext("domain", domain)
	}

	certificates := tlsConn.ConnectionState().PeerCertificates
	if len(certificates) == 0 {
		return time.Time{}, errors.NewNetworkError("no peer certificate presented", nil).WithContext("domain", domain)
	}

	return certificates[0].NotAfter, nil
}
