// Package httpapi translates HTTP requests into Coordinator calls and
// serializes responses, grounded on the teacher's server/httpapi
// (Recovery → CORS → Logging middleware chain over a plain
// net/http.ServeMux).
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kasuganosora/tablesync/internal/config"
	"github.com/kasuganosora/tablesync/internal/logging"
	"github.com/kasuganosora/tablesync/internal/store"
	"github.com/kasuganosora/tablesync/internal/sync"
)

// Server is the HTTP surface over a Sync Coordinator.
type Server struct {
	coord      *sync.Coordinator
	store      store.Store
	cfg        config.Config
	log        logging.Logger
	httpServer *http.Server
}

// NewServer constructs a Server. log may be nil to disable logging.
func NewServer(coord *sync.Coordinator, s store.Store, cfg config.Config, log logging.Logger) *Server {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Server{coord: coord, store: s, cfg: cfg, log: log}
}

func (s *Server) mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", handleHealth)
	mux.Handle("/api/sync", newSyncHandler(s.coord, s.cfg.MaxSyncBatchSize))
	mux.Handle("/api/tables", newTablesHandler(s.store))

	if s.cfg.Debug {
		dbg := newDebugHandler(s.store)
		mux.HandleFunc("/api/debug/events", dbg.events)
		mux.HandleFunc("/api/debug/reset", dbg.reset)
	}

	return chain(mux,
		RecoveryMiddleware(s.log),
		CORSMiddleware(s.cfg.CORSOrigins),
		LoggingMiddleware(s.log),
	)
}

// Start binds and serves HTTP, blocking until Shutdown is called or
// ListenAndServe fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.mux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info("http surface listening", "addr", addr, "debug", s.cfg.Debug)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
