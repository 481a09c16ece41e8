package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetworkError(t *testing.T) {
	const target = "http://10.0.0.5:49153/setup.xml"

	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{
			name: "deadline exceeded wrapped in url error",
			err:  &url.Error{Op: "Get", URL: target, Err: context.DeadlineExceeded},
			want: ErrTypeTimeout,
		},
		{
			name: "dns failure",
			err:  &url.Error{Op: "Get", URL: target, Err: &net.DNSError{Err: "no such host", Name: "wemo.invalid"}},
			want: ErrTypeDNS,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: target, Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
			}},
			want: ErrTypeConnectionRefused,
		},
		{
			name: "generic",
			err:  errors.New("something broke"),
			want: ErrTypeNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, target)
			if got.Type != tt.want {
				t.Errorf("Type = %v, want %v", got.Type, tt.want)
			}
			if got.URL != target {
				t.Errorf("URL = %v, want %v", got.URL, target)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestFetchError_Error(t *testing.T) {
	err := NewHTTPError("http://10.0.0.5:49153/setup.xml", 500)
	msg := err.Error()

	if !strings.Contains(msg, "HTTP Error") || !strings.Contains(msg, "500") {
		t.Errorf("Error() = %q, should mention type and status", msg)
	}

	wrapped := &FetchError{Type: ErrTypeRead, Message: "failed to read body from", URL: "u", Err: errors.New("eof")}
	if !strings.Contains(wrapped.Error(), "caused by: eof") {
		t.Errorf("Error() = %q, should include cause", wrapped.Error())
	}
}

func TestIsTimeoutAndIsFetchError(t *testing.T) {
	timeout := &FetchError{Type: ErrTypeTimeout}
	wrapped := fmt.Errorf("probe: %w", timeout)

	if !IsTimeout(wrapped) {
		t.Error("IsTimeout() should see through wrapping")
	}
	if !IsFetchError(wrapped) {
		t.Error("IsFetchError() should see through wrapping")
	}
	if IsTimeout(NewHTTPError("u", 404)) {
		t.Error("HTTP error is not a timeout")
	}
	if IsFetchError(errors.New("plain")) {
		t.Error("plain error is not a FetchError")
	}
}

func TestErrorType_String(t *testing.T) {
	if ErrTypeConnectionRefused.String() != "Connection Refused" {
		t.Errorf("String() = %q", ErrTypeConnectionRefused.String())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("String() = %q", ErrorType(99).String())
	}
}
