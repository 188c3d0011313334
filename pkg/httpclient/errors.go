package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrConnect indicates the TCP connection could not be established.
	ErrConnect = errors.New("httpclient: connection failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("httpclient: timeout")

	// ErrTransport is any other failure while sending or reading.
	ErrTransport = errors.New("httpclient: transport error")

	// ErrInvalidRequest indicates the request could not be built (bad URL or method).
	ErrInvalidRequest = errors.New("httpclient: invalid request")
)

// Classify wraps err with the matching sentinel. The original error stays
// in the chain, so context.Canceled remains detectable with errors.Is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var dnsErr *net.DNSError
	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var opErr *net.OpError
	var netErr net.Error

	switch {
	case errors.As(err, &dnsErr):
		return fmt.Errorf("%w: %w", ErrDNS, err)
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &unknownAuth), errors.As(err, &hostnameErr):
		return fmt.Errorf("%w: %w", ErrTLS, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// IsTransportError reports whether err came from the network rather than
// from request construction or cancellation.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrDNS) || errors.Is(err, ErrConnect) ||
		errors.Is(err, ErrTLS) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrTransport)
}
