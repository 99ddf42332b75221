package executor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"

	"pulsewatch/internals/modules/history"
	"pulsewatch/pkg/httpclient"
)

// classifyError maps a transport failure onto an outcome and reason code.
func classifyError(err error) (history.Outcome, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return history.OutcomeTimeout, history.ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return history.OutcomeError, history.ReasonCanceled
	}
	if errors.Is(err, httpclient.ErrTooManyRedirects) {
		return history.OutcomeError, history.ReasonTooManyRedirects
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return history.OutcomeTimeout, history.ReasonTimeout
		}
		return history.OutcomeError, history.ReasonDNSFailure
	}

	if isTLSError(err) {
		return history.OutcomeError, history.ReasonTLSFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return history.OutcomeError, history.ReasonConnectionRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return history.OutcomeTimeout, history.ReasonTimeout
		}
		return history.OutcomeError, history.ReasonNetworkError
	}

	return history.OutcomeError, history.ReasonUnknown
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}
