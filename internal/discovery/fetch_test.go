package discovery

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHTTPFetcher(t *testing.T) {
	f := NewHTTPFetcher()

	if f.Client == nil {
		t.Fatal("Client should not be nil")
	}
	if f.Client.Timeout != DefaultFetchTimeout {
		t.Errorf("Timeout = %v, want %v", f.Client.Timeout, DefaultFetchTimeout)
	}
	if DefaultFetchTimeout != 10*time.Second {
		t.Errorf("DefaultFetchTimeout = %v, want 10s", DefaultFetchTimeout)
	}
}

func TestFetch_Success(t *testing.T) {
	body := setupXML("Belkin International Inc.", "uuid:Socket-1_0-1", "AABBCCDDEEFF")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/setup.xml" {
			t.Errorf("Path = %s, want /setup.xml", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(body))
	}))
	defer server.Close()

	got, err := NewHTTPFetcher().Fetch(context.Background(), server.URL+"/setup.xml")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("Fetch() body = %q, want %q", got, body)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher().Fetch(context.Background(), server.URL+"/setup.xml")
	if err == nil {
		t.Fatal("Fetch() should fail on 404")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error should be *FetchError, got %T", err)
	}
	if fe.Type != ErrTypeHTTP {
		t.Errorf("Type = %v, want %v", fe.Type, ErrTypeHTTP)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fe.StatusCode)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewHTTPFetcher()
	f.SetTimeout(50 * time.Millisecond)

	_, err := f.Fetch(context.Background(), server.URL+"/setup.xml")
	if err == nil {
		t.Fatal("Fetch() should time out")
	}
	if !IsTimeout(err) {
		t.Errorf("error should be a timeout, got %v", err)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close the listener so nothing is listening
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	_, err = NewHTTPFetcher().Fetch(context.Background(), "http://"+addr+"/setup.xml")
	if err == nil {
		t.Fatal("Fetch() should fail when nothing listens")
	}
	if !IsFetchError(err) {
		t.Errorf("error should be *FetchError, got %T", err)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher().Fetch(context.Background(), "http://[::1")
	if err == nil {
		t.Fatal("Fetch() should fail for invalid URL")
	}
	if !IsFetchError(err) {
		t.Errorf("error should be *FetchError, got %T", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<root/>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPFetcher().Fetch(ctx, server.URL); err == nil {
		t.Error("Fetch() with cancelled context should fail")
	}
}
