package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cjeanneret/CamGo/internal/debug"
)

// shutdownTimeout bounds graceful shutdown; open SSE streams are cut after it.
const shutdownTimeout = 5 * time.Second

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server configured for the given address and dependencies.
func NewServer(addr string, broadcaster *StatusBroadcaster, sess SessionController, dev DeviceLookup) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: sub static fs: %w", err)
	}

	return &Server{
		addr:     addr,
		handlers: NewHandlers(broadcaster, sess, dev, subFS),
	}, nil
}

// Handlers exposes the route handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Router returns an http.Handler with all routes registered.
func (s *Server) Router() http.Handler {
	h := s.handlers
	r := mux.NewRouter()

	// api routes live on the root router so a method mismatch answers 405;
	// a subrouter reports it as 404
	r.HandleFunc("/api/state", h.HandleState).Methods(http.MethodGet)
	r.HandleFunc("/api/state/stream", h.HandleStateStream).Methods(http.MethodGet)
	r.HandleFunc("/api/capture", h.HandleCapture).Methods(http.MethodPost)
	r.HandleFunc("/api/next", h.HandleNext).Methods(http.MethodPost)
	r.HandleFunc("/api/previous", h.HandlePrevious).Methods(http.MethodPost)
	r.HandleFunc("/api/device", h.HandleDevice).Methods(http.MethodGet)
	r.HandleFunc("/api/config", h.HandleConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config", h.HandleUpdateConfig).Methods(http.MethodPut)

	r.HandleFunc("/status/stream", h.HandleStatusStream).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	r.HandleFunc("/", h.ServeIndex).Methods(http.MethodGet)

	r.Use(logRequests)
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		debug.Trace("HTTP %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		return err
	}
}
