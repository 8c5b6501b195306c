package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/statusreporter/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// recentLimit is the number of attempts returned by /api/status and
	// replayed to new SSE clients.
	recentLimit = 20

	endpointPlaceholder = "{{.Endpoint}}"
)

// Info describes the reporter served by the status API.
type Info struct {
	State           string  `json:"state"`
	Endpoint        string  `json:"endpoint"`
	IntervalSeconds float64 `json:"interval_seconds"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Info
	Attempts []store.AttemptRecord `json:"attempts"`
}

// Server is the local status server of a running reporter.
//
// Server provides these endpoints:
//   - GET /: Status page (when assets are set)
//   - GET /api/status: Reporter state and recent attempts as JSON
//   - GET /api/sse: Server-Sent Events stream of new attempts
//   - GET /metrics: Prometheus metrics (when a metrics handler is set)
//   - GET /healthz: 200 while the reporter is running, 503 once stopped
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	addr       string
	info       func() Info
	metrics    http.Handler
	assets     fs.FS
	httpServer *http.Server
	logger     *slog.Logger

	mu      sync.Mutex
	boundTo net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the recent attempts
//   - addr: TCP address to listen on (e.g. ":9464", "127.0.0.1:0")
//   - info: Returns the current reporter description
//   - metrics: Handler mounted at /metrics (may be nil)
//   - assets: Embedded filesystem containing the status page (may be nil)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, addr string, info func() Info, metrics http.Handler, assets fs.FS, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		addr:    addr,
		info:    info,
		metrics: metrics,
		assets:  assets,
		logger:  logger,
	}
}

// Handler returns the router serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	if s.assets != nil {
		mux.HandleFunc("/", s.handlePage)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify address availability synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.boundTo = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// all request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the address the server is bound to, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// handlePage serves the status page with the report URL filled in.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Status page not found", http.StatusInternalServerError)
		return
	}

	// escape before substitution, the endpoint comes from user config
	rendered := strings.ReplaceAll(string(content), endpointPlaceholder, html.EscapeString(s.info().Endpoint))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write status page", "error", err)
	}
}

// handleStatus returns the reporter state and recent attempts as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{
		Info:     s.info(),
		Attempts: s.store.Recent(recentLimit),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleHealth reports whether the reporter is still running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.info().State == "stopped" {
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleSSE streams new attempts via Server-Sent Events.
//
// Writes carry a deadline so a slow or disconnected client cannot block the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may be unsupported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// replay recent attempts oldest first; the subscription is already open,
	// so an attempt added meanwhile can arrive on ch as well
	recent := s.store.Recent(recentLimit)
	replayed := make(map[string]struct{}, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		replayed[recent[i].ID] = struct{}{}
		data, err := json.Marshal(recent[i])
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			if _, dup := replayed[rec.ID]; dup {
				delete(replayed, rec.ID)
				continue
			}
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
