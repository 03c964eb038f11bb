package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/tablesync/internal/applier"
	"github.com/kasuganosora/tablesync/internal/config"
	"github.com/kasuganosora/tablesync/internal/cursor"
	"github.com/kasuganosora/tablesync/internal/httpapi"
	"github.com/kasuganosora/tablesync/internal/logging"
	"github.com/kasuganosora/tablesync/internal/store"
	"github.com/kasuganosora/tablesync/internal/store/badgerstore"
	"github.com/kasuganosora/tablesync/internal/store/pgstore"
	"github.com/kasuganosora/tablesync/internal/sync"
)

func main() {
	cfg := config.Load()

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.NewDefault(level)

	s, err := openStore(cfg)
	if err != nil {
		log.Fatalf("tablesync: opening store: %v", err)
	}

	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		log.Fatalf("tablesync: initializing store: %v", err)
	}

	a := applier.New(s, locker(s, cfg))
	coord := sync.New(s, a, cursor.NewGenerator(), logger)
	srv := httpapi.NewServer(coord, s, cfg, logger)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("tablesync: http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if err := s.Close(shutdownCtx); err != nil {
		logger.Error("store close", "err", err)
	}
}

// openStore selects the backend per config.Backend, matching the
// dialect-by-prefix selection in internal/config.
func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return pgstore.Open(pgstore.DefaultOptions(cfg.DatabaseURL))
	default:
		return badgerstore.Open(badgerstore.Options{Dir: badgerDir(cfg)})
	}
}

// badgerDir resolves the embedded engine's on-disk directory. An empty
// DATABASE_URL falls back to a local relative path rather than an
// ephemeral in-memory database, since that would discard state across
// restarts in a real deployment.
func badgerDir(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	return "./data/tablesync"
}

// locker fetches the TableLocker the backend carries, so the Applier
// locks the same per-table critical section any other holder of that
// store's locker would. The backends themselves never lock it.
func locker(s store.Store, cfg config.Config) *store.TableLocker {
	switch v := s.(type) {
	case *badgerstore.Store:
		return v.Locker()
	case *pgstore.Store:
		return v.Locker()
	default:
		return store.NewTableLocker()
	}
}
