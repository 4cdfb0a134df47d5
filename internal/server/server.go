package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"
)

// Config carries the externally constructed service handles the HTTP
// handlers close over. All durable state lives behind the store
// interfaces; the server itself holds no mutable state.
type Config struct {
	Addr          string // e.g. ":8080"
	AllowedOrigin string // browser origin allowed for CORS, empty disables CORS headers

	DB       *sql.DB
	Blobs    BlobStore
	Images   ImageStore
	Users    UserStore
	Notifier Notifier
	Hub      *Hub
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	// The hub doubles as the notifier unless a caller injected one.
	if cfg.Notifier == nil && cfg.Hub != nil {
		cfg.Notifier = cfg.Hub
	}

	mux := http.NewServeMux()

	mux.Handle("/upload", cfg.uploadHandler())
	mux.Handle("/latest-image", cfg.latestImageHandler())
	mux.HandleFunc("/register", cfg.registerHandler)
	mux.HandleFunc("/login", cfg.loginHandler)
	mux.HandleFunc("/health", cfg.healthHandler)
	if cfg.Hub != nil {
		mux.Handle("/ws", cfg.wsHandler(cfg.Hub))
	}

	limiter := newRateLimiter(120, time.Minute)

	// Wrap middleware: requestID -> logging -> security headers -> CORS -> ratelimit -> mux
	var handler http.Handler = mux
	handler = limiter.middleware(handler)
	handler = corsMiddleware(cfg.AllowedOrigin)(handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
