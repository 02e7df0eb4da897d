package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport matches every *TransportError.
var ErrTransport = errors.New("transport failure")

// TransportError describes a page that could not be retrieved: a network
// or TLS failure, or a non-200 status.
type TransportError struct {
	URL        string
	StatusCode int
	TLS        bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch %s: HTTP error: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case e.TLS:
		return fmt.Sprintf("failed to fetch %s: TLS failure: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsTLS reports whether err is a transport failure caused by certificate
// verification or the TLS handshake.
func IsTLS(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.TLS
}

func isTLSFailure(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
		alertErr    tls.AlertError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &alertErr)
}
