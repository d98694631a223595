package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meur/residency/internal/allocation"
	"github.com/meur/residency/internal/api"
	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/drafts"
	"github.com/meur/residency/internal/metrics"
	"github.com/meur/residency/internal/rankings"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with the JSON API, the board websocket, /metrics and /health.

Examples:
  # Serve with defaults (sqlite in ./data)
  residency serve

  # Use postgres and redis drafts
  RESIDENCY_DATABASE_DRIVER=postgres \
  RESIDENCY_DATABASE_DSN=postgres://localhost/residency?sslmode=disable \
  RESIDENCY_REDIS_URL=redis://localhost:6379/0 residency serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	health := map[string]api.HealthCheck{"database": store.Ping}

	var draftStore drafts.Store = drafts.NewMemoryStore()
	if cfg.Redis.URL != "" {
		client, err := drafts.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		redisDrafts := drafts.NewRedisStore(client, cfg.Redis.DraftTTL)
		draftStore = redisDrafts
		health["redis"] = redisDrafts.HealthCheck
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return err
	}

	mgr := rankings.NewManager(store, draftStore, m, log.Named("rankings"), board.Options{
		Policy: board.SubmitPolicy{
			LockAfterSubmit: cfg.Ranking.LockAfterSubmit,
			RevertAfter:     cfg.Ranking.RevertAfter,
		},
		SaveTimeout: cfg.Ranking.SaveTimeout,
	})
	mgr.SetRefreshInterval(cfg.Ranking.RefreshInterval)
	runner := allocation.NewRunner(store, limits(cfg), m, log.Named("allocation"))

	srv := api.New(store, mgr, runner, m, log.Named("api"), api.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		EventRate:      cfg.Ranking.EventRate,
		Gatherer:       reg,
		Health:         health,
	})

	// Serve the built frontend (for production deployment)
	if cfg.Server.StaticDir != "" {
		FileServer(srv.Router(), "/", http.Dir(cfg.Server.StaticDir))
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("residency API starting",
			zap.String("addr", httpServer.Addr),
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("redis_drafts", cfg.Redis.URL != ""),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}
