package audit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// Server serves the audit page over HTTP for local review.
type Server struct {
	server  *http.Server
	addr    string
	dataset *Dataset
	log     *slog.Logger
}

func NewServer(addr string, ds *Dataset, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{addr: addr, dataset: ds, log: log}
}

// ListenAndServe starts the HTTP server and blocks until it fails or
// ctx is cancelled. Cancellation triggers a graceful shutdown (the
// usual path: Ctrl-C through the signal context) and returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admins", http.StatusFound)
	})
	r.Get("/admins", s.handleAdmins)

	s.log.Info("starting audit server", "addr", s.addr)

	s.server = &http.Server{
		Addr: s.addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}).Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// ListenAndServe returns ErrServerClosed once Shutdown completes.
		<-errCh
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleAdmins(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Render(w, s.dataset, nil); err != nil {
		s.log.Error("failed to render audit page", "error", err)
	}
}
