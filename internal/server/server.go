package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

const (
	// DefaultInterval is the time between discovery cycles
	DefaultInterval = time.Minute

	// shutdownTimeout bounds graceful shutdown after a signal
	shutdownTimeout = 10 * time.Second
)

// DiscoverFunc runs one discovery cycle
type DiscoverFunc func(ctx context.Context) ([]*wemo.Device, error)

// Publisher receives the device list of every successful cycle
type Publisher interface {
	Publish(ctx context.Context, devices []*wemo.Device) error
}

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	Interval time.Duration
	CertPath string // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath  string
	LogLevel string
}

// Snapshot is the result of the latest discovery cycle
type Snapshot struct {
	Devices   []*wemo.Device `json:"devices"`
	Cycle     int            `json:"cycle"`
	UpdatedAt time.Time      `json:"updated_at"`
	Error     string         `json:"error,omitempty"`
}

// Server is the wemo-watch daemon
type Server struct {
	config     *Config
	discover   DiscoverFunc
	publishers []Publisher
	tlsConfig  *tls.Config
	httpServer *http.Server
	hub        *hub

	wg         sync.WaitGroup
	mu         sync.RWMutex
	snapshot   Snapshot
	cancelLoop context.CancelFunc
}

// New creates a new Server instance
func New(config *Config, discover DiscoverFunc, publishers ...Publisher) (*Server, error) {
	if discover == nil {
		return nil, errors.New("discover function is required")
	}

	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:     config,
		discover:   discover,
		publishers: publishers,
		tlsConfig:  tlsConfig,
		snapshot:   Snapshot{Devices: []*wemo.Device{}},
	}
	s.hub = newHub(s.Snapshot, &s.wg)
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start listens on the configured address and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	logging.Info("Starting WeMo watch server",
		zap.String("addr", addr),
		zap.Duration("interval", s.config.Interval),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Int("publishers", len(s.publishers)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx, listener)
}

// Serve runs the discovery loop and serves HTTP on listener until ctx is
// cancelled or the HTTP server fails.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelLoop = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.discoveryLoop(loopCtx)
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

// discoveryLoop runs a cycle immediately and then once per interval
func (s *Server) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle performs one discovery, updates the snapshot, notifies
// WebSocket clients and invokes the publishers.
func (s *Server) runCycle(ctx context.Context) {
	start := time.Now()
	devices, err := s.discover(ctx)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	next := Snapshot{
		Cycle:     s.snapshot.Cycle + 1,
		UpdatedAt: time.Now().UTC(),
		Devices:   devices,
	}
	if err != nil {
		next.Devices = s.snapshot.Devices
		next.Error = err.Error()
	}
	if next.Devices == nil {
		next.Devices = []*wemo.Device{}
	}
	s.snapshot = next
	s.mu.Unlock()

	if err != nil {
		logging.Warn("Discovery cycle failed",
			zap.Int("cycle", next.Cycle),
			zap.Error(err),
		)
	} else {
		logging.Info("Discovery cycle complete",
			zap.Int("cycle", next.Cycle),
			zap.Int("devices", len(next.Devices)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	s.hub.broadcast(next)

	if err != nil {
		return
	}
	for _, p := range s.publishers {
		if perr := p.Publish(ctx, next.Devices); perr != nil {
			logging.Warn("Publisher failed",
				zap.Int("cycle", next.Cycle),
				zap.Error(perr),
			)
		}
	}
}

// Snapshot returns the latest discovery result
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Devices = make([]*wemo.Device, len(s.snapshot.Devices))
	copy(snap.Devices, s.snapshot.Devices)
	return snap
}

// Handler returns the HTTP handler serving the server's endpoints
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.RLock()
	cancel := s.cancelLoop
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error shutting down HTTP server", zap.Error(err))
	}

	// Hijacked WebSocket connections are not tracked by http.Server
	s.hub.closeAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()

	return nil
}

// GetActiveConnections returns the number of connected WebSocket clients
func (s *Server) GetActiveConnections() int {
	return s.hub.count()
}
