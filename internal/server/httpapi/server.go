// Package httpapi exposes the core operations over HTTP. It is glue only:
// multipart decoding in, structured JSON out, every decision delegated to
// the services. Request handling is plain sequential composition
// (authenticate, then execute) with no continuation-passing middleware.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

type Server struct {
	address   string
	logger    logging.Logger
	transfer  *services.TransferService
	userFiles *services.UserFileService
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, ts *services.TransferService, us *services.UserFileService, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		transfer:  ts,
		userFiles: us,
		jwtSecret: []byte(secretKey),
	}
}

// Handler builds the route table. Split from Run so tests can drive it
// through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Anonymous single-shot exchange.
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /download/{id...}", s.handleDownload)
	mux.HandleFunc("DELETE /{id...}", s.handleDelete)

	// Owner-scoped flow with catalog bookkeeping.
	mux.HandleFunc("POST /user/files", s.handleUserUpload)
	mux.HandleFunc("GET /user/files", s.handleUserList)
	mux.HandleFunc("GET /user/files/{id}", s.handleUserDownload)
	mux.HandleFunc("DELETE /user/files/{id}", s.handleUserDelete)
	mux.HandleFunc("POST /user/files/presign", s.handleUserPresign)

	return s.logRequests(mux)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// logRequests records method and path only. Query strings stay out of the
// logs: a share link's key parameter is the sole copy of a decryption key.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info(r.Context(), "request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
