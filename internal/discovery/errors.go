package discovery

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrUnrecognizedDevice is returned when a description's UDN does not belong
// to a known WeMo line
var ErrUnrecognizedDevice = errors.New("unrecognized device")

// ErrorType represents the category of a fetch failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the request did not complete in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-200 status code
	ErrTypeHTTP
	// ErrTypeRead indicates the response body could not be read
	ErrTypeRead
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRead:
		return "Read Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// FetchError describes a failed description fetch
type FetchError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	URL        string    // URL being fetched
	StatusCode int       // HTTP status code (ErrTypeHTTP only)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s (caused by: %v)", e.Type, e.Message, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Type, e.Message, e.URL)
}

// Unwrap returns the underlying error for error chain inspection
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed FetchError.
// Wrapped errors (*url.Error from net/http) are inspected through errors.As.
func ClassifyNetworkError(err error, rawURL string) *FetchError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &FetchError{Type: ErrTypeTimeout, Message: "request timed out", URL: rawURL, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Type: ErrTypeDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), URL: rawURL, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &FetchError{Type: ErrTypeConnectionRefused, Message: "device refused connection", URL: rawURL, Err: err}
	}

	return &FetchError{Type: ErrTypeNetwork, Message: "network error", URL: rawURL, Err: err}
}

// NewHTTPError creates an error for an unexpected status code
func NewHTTPError(rawURL string, statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code %d from", statusCode),
		URL:        rawURL,
		StatusCode: statusCode,
	}
}

// IsFetchError reports whether err is (or wraps) a FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsTimeout reports whether err is a fetch timeout
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == ErrTypeTimeout
}
