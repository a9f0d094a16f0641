package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies fetch failures for logging and skip decisions.
type ErrorType string

const (
	ErrTypeNotFound    ErrorType = "not_found"
	ErrTypeForbidden   ErrorType = "forbidden"
	ErrTypeRateLimited ErrorType = "rate_limited"
	ErrTypeUpstream    ErrorType = "upstream"
	ErrTypeUnexpected  ErrorType = "unexpected"
	ErrTypeNetwork     ErrorType = "network"
	ErrTypeTLS         ErrorType = "tls"
	ErrTypeRobots      ErrorType = "robots_disallowed"
)

// ErrBlocked is returned for pages that turned out to be bot-protection
// challenges.
var ErrBlocked = errors.New("blocked by bot protection")

// Error is a classified fetch failure. StatusCode is set for HTTP errors.
type Error struct {
	Type       ErrorType
	StatusCode int
	URL        string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: HTTP %d for %s", e.Type, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch %s: %v for %s", e.Type, e.Cause, e.URL)
}

func (e *Error) Unwrap() error { return e.Cause }

// ClassifyHTTPStatus maps a non-200 status to an Error.
func ClassifyHTTPStatus(statusCode int, url string) *Error {
	e := &Error{StatusCode: statusCode, URL: url, Cause: fmt.Errorf("HTTP %d", statusCode)}
	switch {
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		e.Type = ErrTypeNotFound
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Type = ErrTypeForbidden
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrTypeRateLimited
	case statusCode >= 500 && statusCode <= 599:
		e.Type = ErrTypeUpstream
	default:
		e.Type = ErrTypeUnexpected
	}
	return e
}

// ClassifyTransportError tells certificate verification failures apart from
// other network errors.
func ClassifyTransportError(cause error, url string) *Error {
	if IsTLSVerification(cause) {
		return &Error{Type: ErrTypeTLS, URL: url, Cause: cause}
	}
	return &Error{Type: ErrTypeNetwork, URL: url, Cause: cause}
}

// IsTLSVerification reports whether err comes from certificate verification.
func IsTLSVerification(err error) bool {
	var (
		verifyErr  *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostname   x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) || errors.As(err, &unknownCA) ||
		errors.As(err, &hostname) || errors.As(err, &invalidErr)
}

// TypeOf returns the classification of err, or "" for unclassified errors.
func TypeOf(err error) ErrorType {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ""
}

func IsNotFound(err error) bool {
	return TypeOf(err) == ErrTypeNotFound
}
